package config

import (
	"os"
	"path"
	"strings"

	"github.com/joho/godotenv"
)

// FileSystem abstracts the file operations of the loader for tests.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// OSFileSystem reads the real file system and process environment.
type OSFileSystem struct{}

func (OSFileSystem) Exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// LoadEnv loads a .env file into the process environment without
// overriding variables that are already set.
func (OSFileSystem) LoadEnv(p string) error {
	return godotenv.Load(p)
}

// Resolver locates the config.yml and .env files of a service.
type Resolver struct {
	FileSystem FileSystem
}

// ResolvedFiles contains the resolved config and env file paths. Empty
// means none was found.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles returns the explicit paths from opts, searching for the
// ones that are unset.
func (r *Resolver) ResolveFiles(serviceName string, opts LoaderConfig) ResolvedFiles {
	files := ResolvedFiles{ConfigFile: opts.ConfigFile, EnvFile: opts.EnvFile}
	if files.ConfigFile == "" {
		files.ConfigFile = r.first(configCandidates(serviceName))
	}
	if files.EnvFile == "" {
		files.EnvFile = r.first(envCandidates(serviceName))
	}
	return files
}

func (r *Resolver) first(candidates []string) string {
	for _, c := range candidates {
		if r.FileSystem.Exists(c) {
			return c
		}
	}
	return ""
}

// serviceDirs lists the directories a service keeps its files in, relative
// to the repository root. A dashed name ("acme-sseld") also matches its
// last segment.
func serviceDirs(serviceName string) []string {
	names := []string{serviceName}
	if i := strings.LastIndex(serviceName, "-"); i >= 0 && i < len(serviceName)-1 {
		names = append(names, serviceName[i+1:])
	}
	var dirs []string
	for _, n := range names {
		dirs = append(dirs, path.Join("cmd", n), path.Join("config", n))
	}
	return append(dirs, "config", ".")
}

// upward prefixes let binaries and tests run from nested directories.
var upward = []string{".", "..", "../.."}

func configCandidates(serviceName string) []string {
	var out []string
	for _, dir := range serviceDirs(serviceName) {
		if strings.HasPrefix(dir, "config/") {
			continue
		}
		for _, up := range upward {
			out = append(out, candidate(up, dir, "config.yml"))
		}
	}
	return out
}

func envCandidates(serviceName string) []string {
	var out []string
	for _, name := range []string{".env." + serviceName, ".env"} {
		out = append(out, name)
		for _, dir := range serviceDirs(serviceName) {
			for _, up := range upward {
				out = append(out, candidate(up, dir, name))
			}
		}
	}
	return out
}

func candidate(up, dir, file string) string {
	p := path.Join(up, dir, file)
	if up == "." {
		return "./" + p
	}
	return p
}
