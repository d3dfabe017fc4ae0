package sseclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kbukum/streamkit/errors"
)

// Connect opens url as an event stream. lastEventID, when non-empty, is
// sent as Last-Event-ID so the server resumes its id sequence.
func Connect(ctx context.Context, client *http.Client, url, lastEventID string) (Reader, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.InvalidInput("url", err.Error())
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if lastEventID != "" {
		req.Header.Set("Last-Event-ID", lastEventID)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.ConnectionFailed(url).WithCause(err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.New(errors.ErrCodeServiceUnavailable,
			fmt.Sprintf("stream returned status %d", resp.StatusCode), resp.StatusCode)
	}
	return NewReader(resp.Body), nil
}
