package ws

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"quickassist/config"
	"quickassist/shared/failure"
)

// Channel is one logical streaming subscription. It owns a single
// connection, reopens it with bounded exponential backoff when it
// drops, and closes its message stream once the retry ceiling is hit.
type Channel interface {
	// Messages yields raw inbound payloads in arrival order. The
	// channel is closed when the subscription terminates, either by
	// Close or by exhausting reconnect attempts.
	Messages() <-chan json.RawMessage
	// Send writes one JSON payload. Sends while disconnected fail.
	Send(v any) error
	// Err reports the terminal error, if any, after Messages closes.
	Err() error
	Close()
}

// Dialer opens channels against the configured streaming endpoint.
type Dialer interface {
	Dial(ctx context.Context, path string) Channel
}

type dialerImpl struct {
	baseURL         string
	initialInterval time.Duration
	maxInterval     time.Duration
	maxRetries      int
}

func NewDialer(cfg *config.Config) Dialer {
	return &dialerImpl{
		baseURL:         strings.TrimRight(cfg.WS.BaseURL, "/"),
		initialInterval: time.Duration(cfg.WS.Reconnect.InitialIntervalMS) * time.Millisecond,
		maxInterval:     time.Duration(cfg.WS.Reconnect.MaxIntervalMS) * time.Millisecond,
		maxRetries:      cfg.WS.Reconnect.MaxRetries,
	}
}

func (d *dialerImpl) Dial(ctx context.Context, path string) Channel {
	ch := &channelImpl{
		url:      d.baseURL + path,
		dialer:   d,
		messages: make(chan json.RawMessage, 16),
		closing:  make(chan struct{}),
	}

	go ch.run(ctx)

	return ch
}

type channelImpl struct {
	url    string
	dialer *dialerImpl

	messages chan json.RawMessage
	closing  chan struct{}

	mu        sync.Mutex
	conn      *websocket.Conn
	err       error
	closeOnce sync.Once
}

func (c *channelImpl) Messages() <-chan json.RawMessage {
	return c.messages
}

func (c *channelImpl) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return failure.ChannelUnavailable
	}

	if err := c.conn.WriteJSON(v); err != nil {
		return failure.Network(err)
	}

	return nil
}

func (c *channelImpl) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.err
}

func (c *channelImpl) Close() {
	c.closeOnce.Do(func() {
		close(c.closing)

		c.mu.Lock()
		if c.conn != nil {
			_ = c.conn.Close()
		}
		c.mu.Unlock()
	})
}

func (c *channelImpl) run(ctx context.Context) {
	defer close(c.messages)

	for {
		conn, err := c.connect(ctx)
		if err != nil {
			select {
			case <-c.closing:
				// User-initiated close, not a terminal channel failure.
			default:
				c.setErr(err)
			}

			return
		}

		c.setConn(conn)
		c.readLoop(conn)
		c.setConn(nil)
		_ = conn.Close()

		select {
		case <-c.closing:
			return
		case <-ctx.Done():
			return
		default:
		}

		log.Info().Str("url", c.url).Msg("stream dropped, reconnecting")
	}
}

// connect dials with bounded exponential backoff. Exhausting the
// retry budget is terminal for the channel.
func (c *channelImpl) connect(ctx context.Context) (*websocket.Conn, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.dialer.initialInterval
	bo.MaxInterval = c.dialer.maxInterval
	bo.MaxElapsedTime = 0

	for attempt := 0; ; attempt++ {
		conn, res, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
		if err == nil {
			return conn, nil
		}

		if res != nil {
			_ = res.Body.Close()
		}

		if attempt >= c.dialer.maxRetries {
			log.Error().Err(err).Str("url", c.url).Int("attempts", attempt+1).Msg("reconnect budget exhausted, channel unavailable")

			return nil, failure.ChannelUnavailable
		}

		wait := bo.NextBackOff()
		log.Warn().Err(err).Str("url", c.url).Dur("retry_in", wait).Msg("stream dial failed")

		select {
		case <-time.After(wait):
		case <-c.closing:
			return nil, failure.ChannelUnavailable
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (c *channelImpl) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.closing:
			default:
				log.Debug().Err(err).Str("url", c.url).Msg("stream read ended")
			}

			return
		}

		select {
		case c.messages <- json.RawMessage(raw):
		case <-c.closing:
			return
		}
	}
}

func (c *channelImpl) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func (c *channelImpl) setErr(err error) {
	c.mu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.mu.Unlock()
}
