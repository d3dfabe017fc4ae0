// Package config loads service configuration for streamkit binaries.
//
// Values come from a config.yml found in the usual cmd/<service>, config/
// or working directory locations, then from a .env file loaded with
// godotenv, then from the process environment. Every leaf key of the
// config struct is bound to two variables: SSELD_SSE_EXEC_LIMIT and
// SSE_EXEC_LIMIT both set sse.exec_limit, the service-prefixed one winning.
//
// # Usage
//
//	var cfg Config
//	if err := config.LoadConfig("sseld", &cfg, config.WithConfigFile(path)); err != nil {
//	    return err
//	}
package config
