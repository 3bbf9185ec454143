package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/TheNaotagrey/Asgaria/api"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
)

// Event is a backend notification received over the websocket.
type Event struct {
	Type      api.MessageType
	Data      json.RawMessage
	Timestamp time.Time
}

// PixelsSaved decodes a pixels_saved payload.
func (e Event) PixelsSaved() (api.PixelsSavedData, error) {
	var d api.PixelsSavedData
	err := json.Unmarshal(e.Data, &d)
	return d, err
}

// Barony decodes a barony_* payload.
func (e Event) Barony() (api.BaronyEventData, error) {
	var d api.BaronyEventData
	err := json.Unmarshal(e.Data, &d)
	return d, err
}

type wireEvent struct {
	Type      api.MessageType `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

func (c *Client) wsURL() string {
	switch {
	case strings.HasPrefix(c.base, "https://"):
		return "wss://" + strings.TrimPrefix(c.base, "https://") + "/ws"
	case strings.HasPrefix(c.base, "http://"):
		return "ws://" + strings.TrimPrefix(c.base, "http://") + "/ws"
	}
	return c.base + "/ws"
}

// Subscribe streams backend events until ctx is cancelled, reconnecting with
// backoff when the connection drops. Events caused by this client, acks and
// pings are filtered out. The channel is closed when ctx is done.
func (c *Client) Subscribe(ctx context.Context) <-chan Event {
	out := make(chan Event, 64)
	go func() {
		defer close(out)
		for ctx.Err() == nil {
			conn, err := c.dial(ctx)
			if err != nil {
				return
			}
			c.log.Info("subscribed to backend events")
			c.readEvents(ctx, conn, out)
		}
	}()
	return out
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialInterval
	b.MaxInterval = 30 * time.Second

	header := http.Header{}
	header.Set(api.ClientHeader, c.id)

	return backoff.Retry(ctx, func() (*websocket.Conn, error) {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL(), header)
		if err != nil {
			return nil, fmt.Errorf("dial events: %w", err)
		}
		return conn, nil
	}, backoff.WithBackOff(b), backoff.WithMaxElapsedTime(0), backoff.WithNotify(func(err error, next time.Duration) {
		c.log.WithError(err).WithField("retry", next).Debug("event subscription unavailable")
	}))
}

func (c *Client) readEvents(ctx context.Context, conn *websocket.Conn, out chan<- Event) {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	for {
		var msg wireEvent
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() == nil {
				c.log.WithError(err).Warn("event connection lost")
			}
			return
		}
		switch msg.Type {
		case api.MessageTypeAck, api.MessageTypePing, api.MessageTypeError, api.MessageTypeStatus:
			continue
		}
		var origin struct {
			Origin string `json:"origin"`
		}
		if len(msg.Data) > 0 && json.Unmarshal(msg.Data, &origin) == nil && origin.Origin == c.id {
			continue
		}
		select {
		case out <- Event{Type: msg.Type, Data: msg.Data, Timestamp: msg.Timestamp}:
		case <-ctx.Done():
			return
		}
	}
}
