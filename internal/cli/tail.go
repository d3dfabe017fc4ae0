package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/streamkit/sseclient"
)

// TailOptions holds flags for the tail command.
type TailOptions struct {
	LastEventID string
	Count       int
	Reconnect   bool
}

// defaultReconnectDelay applies when the server sent no retry directive.
const defaultReconnectDelay = time.Second

// NewTailCommand creates the tail command, a minimal stream client.
func NewTailCommand() *cobra.Command {
	opts := &TailOptions{}
	cmd := &cobra.Command{
		Use:   "tail URL",
		Short: "Print events from a stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return tail(cmd.Context(), http.DefaultClient, args[0], opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.LastEventID, "last-event-id", "", "resume after this event id")
	cmd.Flags().IntVarP(&opts.Count, "count", "n", 0, "exit after n events (0 = unlimited)")
	cmd.Flags().BoolVar(&opts.Reconnect, "reconnect", false, "reconnect when the stream ends, honoring retry:")
	return cmd
}

// tail prints "id event data" lines until the stream ends, ctx is done or
// Count events were printed. With Reconnect it resumes from the last seen
// id after the server's retry delay.
func tail(ctx context.Context, client *http.Client, url string, opts *TailOptions, out io.Writer) error {
	lastID := opts.LastEventID
	printed := 0
	for {
		r, err := sseclient.Connect(ctx, client, url, lastID)
		if err != nil {
			return err
		}
		done, err := drain(r, opts.Count, &printed, out)
		if id := r.LastEventID(); id != "" {
			lastID = id
		}
		delay := r.Retry()
		_ = r.Close()
		if err != nil && ctx.Err() == nil {
			return err
		}
		if done || !opts.Reconnect || ctx.Err() != nil {
			return nil
		}

		if delay <= 0 {
			delay = defaultReconnectDelay
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

func drain(r sseclient.Reader, limit int, printed *int, out io.Writer) (bool, error) {
	for {
		ev, err := r.Next()
		if stderrors.Is(err, io.EOF) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		name := ev.Event
		if name == "" {
			name = "message"
		}
		id := ev.ID
		if _, perr := ev.IntID(); perr != nil {
			id = "-"
		}
		fmt.Fprintf(out, "%s %s %s\n", id, name, strconv.Quote(ev.Data))
		*printed++
		if limit > 0 && *printed >= limit {
			return true, nil
		}
	}
}
