// Package client implements the HTTP transport collaborator: it opens one
// request cycle per submission and drives the stream core (splitter,
// decoder, session) with the response body's chunks.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/inkwell/pkg/chat"
	"github.com/go-go-golems/inkwell/pkg/events"
	"github.com/go-go-golems/inkwell/pkg/sse"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *chat.Session

	mu     sync.Mutex
	cancel context.CancelFunc
}

type ClientOption func(*Client)

func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = h
	}
}

func NewClient(baseURL string, session *chat.Session, options ...ClientOption) *Client {
	ret := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		session:    session,
	}

	for _, o := range options {
		o(ret)
	}

	return ret
}

// ChatRequest is the request body for the backend's chat route.
type ChatRequest struct {
	Message string `json:"message"`
	Stream  bool   `json:"stream"`
}

// Submit starts one request/response cycle and blocks until the stream ends,
// errors out, or is aborted. A submission while a cycle is open fails with
// chat.ErrBusy and changes nothing.
func (c *Client) Submit(ctx context.Context, text string) error {
	if err := c.session.Begin(text); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	defer func() {
		cancel()
		c.mu.Lock()
		c.cancel = nil
		c.mu.Unlock()
	}()

	body, err := json.Marshal(ChatRequest{Message: text, Stream: true})
	if err != nil {
		c.session.Fail("failed to encode request")
		return errors.Wrap(err, "failed to encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		c.session.Fail("failed to create request")
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			c.session.Abort()
			return nil
		}
		c.session.Fail("request failed: " + err.Error())
		return errors.Wrap(err, "request failed")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		msg := errors.Errorf("server returned status %d", resp.StatusCode)
		c.session.Fail(msg.Error())
		return msg
	}

	return c.consume(ctx, resp.Body)
}

// Abort cancels the in-flight cycle, if any. The read loop observes the
// cancellation and runs the stream-error finalization path.
func (c *Client) Abort() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// consume is the sequential read loop: no event is processed before the
// previous one has fully updated the session and notified the renderer.
func (c *Client) consume(ctx context.Context, body io.Reader) error {
	splitter := sse.NewSplitter()
	buf := make([]byte, 4096)
	terminal := false

	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			for _, frame := range splitter.Feed(buf[:n]) {
				ev := events.DecodeFrame(frame)
				if ev == nil {
					continue
				}
				c.session.Apply(ev)
				if isTerminal(ev) {
					// sentinels promise no further events; whatever else
					// this chunk carried is not applied
					terminal = true
					break
				}
			}
		}
		if terminal {
			return nil
		}
		if readErr != nil {
			if frame, ok := splitter.Flush(); ok {
				// a non-empty flush means the stream stopped mid-frame
				log.Warn().Str("frame", frame).Msg("stream ended with incomplete frame")
			}
			if errors.Is(readErr, io.EOF) {
				c.session.Fail("stream ended unexpectedly")
				return nil
			}
			if ctx.Err() != nil {
				c.session.Abort()
				return nil
			}
			c.session.Fail("stream read failed: " + readErr.Error())
			return errors.Wrap(readErr, "stream read failed")
		}
	}
}

func isTerminal(ev events.Event) bool {
	switch ev.Type() {
	case events.EventTypeStreamEnd, events.EventTypeStreamError:
		return true
	default:
		return false
	}
}
