// Package media maintains the websocket link to the media plane.
//
// The media agent pushes call events (agent_ready, call_started,
// transcription, dtmf, call_ended) over a single websocket per deployment.
// The client forwards each frame to the session manager and writes the
// reply back on the same connection so the agent can speak it. The link is
// re-dialed with exponential backoff whenever it drops.
package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/voicehive/voicehive/internal/observe"
	"github.com/voicehive/voicehive/internal/session"
)

const (
	defaultReconnectBase = time.Second
	defaultReconnectCap  = 30 * time.Second
)

// Handler consumes call events. *session.Manager satisfies it.
type Handler interface {
	Handle(ctx context.Context, ev session.Event) session.Reply
}

// frame is the inbound event envelope on the media websocket.
type frame struct {
	Event               string         `json:"event"`
	RoomName            string         `json:"room_name"`
	ParticipantIdentity string         `json:"participant_identity,omitempty"`
	Data                map[string]any `json:"data"`
}

// replyFrame is the outbound envelope carrying the manager's reply.
type replyFrame struct {
	Status   string        `json:"status"`
	Event    string        `json:"event"`
	RoomName string        `json:"room_name"`
	Response session.Reply `json:"response"`
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithMetrics wires the OTel instruments.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithReconnectBackoff tunes the re-dial delays.
func WithReconnectBackoff(base, cap time.Duration) Option {
	return func(c *Client) {
		c.reconnectBase = base
		c.reconnectCap = cap
	}
}

// Client is the media-plane websocket consumer. Create with NewClient and
// drive with Run.
type Client struct {
	url     string
	token   string
	handler Handler

	logger  *slog.Logger
	metrics *observe.Metrics

	reconnectBase time.Duration
	reconnectCap  time.Duration
}

// NewClient creates a media client for the given websocket URL. token is the
// shared bearer secret presented on dial; empty disables the header.
func NewClient(url, token string, handler Handler, opts ...Option) (*Client, error) {
	if url == "" {
		return nil, errors.New("media: url must not be empty")
	}
	if handler == nil {
		return nil, errors.New("media: handler must not be nil")
	}
	c := &Client{
		url:           url,
		token:         token,
		handler:       handler,
		logger:        slog.Default(),
		reconnectBase: defaultReconnectBase,
		reconnectCap:  defaultReconnectCap,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Run dials the media plane and serves frames until ctx is cancelled,
// re-dialing with backoff after every disconnect.
func (c *Client) Run(ctx context.Context) error {
	attempt := 0
	for {
		conn, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			attempt++
			delay := c.backoff(attempt)
			c.logger.Warn("media dial failed", "url", c.url, "attempt", attempt, "retry_in", delay, "error", err)
			c.metrics.RecordProviderError(ctx, "media", "dial")
			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		attempt = 0
		c.logger.Info("media link established", "url", c.url)
		err = c.serve(ctx, conn)
		conn.Close(websocket.StatusNormalClosure, "reconnecting")
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("media link lost", "url", c.url, "error", err)
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	headers := http.Header{}
	if c.token != "" {
		headers.Set("Authorization", "Bearer "+c.token)
	}
	conn, _, err := websocket.Dial(ctx, c.url, &websocket.DialOptions{
		HTTPHeader: headers,
	})
	if err != nil {
		return nil, fmt.Errorf("media: dial %s: %w", c.url, err)
	}
	return conn, nil
}

// serve reads event frames until the connection breaks or ctx is cancelled.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var f frame
		if err := json.Unmarshal(msg, &f); err != nil {
			c.logger.Warn("malformed media frame", "error", err)
			continue
		}
		if f.Data == nil {
			f.Data = map[string]any{}
		}
		if f.ParticipantIdentity != "" {
			f.Data["participant_identity"] = f.ParticipantIdentity
		}

		ev, err := session.ParseEvent(f.Event, f.RoomName, f.Data)
		if err != nil {
			c.logger.Warn("unroutable media frame", "event", f.Event, "error", err)
			if err := c.write(ctx, conn, replyFrame{Status: "ignored", Event: f.Event, RoomName: f.RoomName}); err != nil {
				return err
			}
			continue
		}

		reply := c.handler.Handle(ctx, ev)
		out := replyFrame{
			Status:   reply.Status,
			Event:    f.Event,
			RoomName: f.RoomName,
			Response: reply,
		}
		if err := c.write(ctx, conn, out); err != nil {
			return err
		}
	}
}

func (c *Client) write(ctx context.Context, conn *websocket.Conn, out replyFrame) error {
	raw, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("media: marshal reply: %w", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, raw); err != nil {
		return fmt.Errorf("media: write reply: %w", err)
	}
	return nil
}

// backoff returns min(cap, base × 2^(attempt-1)) plus jitter in [0, base).
func (c *Client) backoff(attempt int) time.Duration {
	delay := c.reconnectBase << (attempt - 1)
	if delay > c.reconnectCap || delay <= 0 {
		delay = c.reconnectCap
	}
	return delay + time.Duration(rand.Int63n(int64(c.reconnectBase)))
}
