// Package feed consumes a live tile-update stream from an external rule
// server over a websocket. The feed never writes to the store itself: decoded
// batches are handed to the coordinator, which stays the store's only
// mutator.
package feed

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/feralbyte/gridclaim/internal/world"
)

// Message is the wire envelope. Type selects which payload field is set.
type Message struct {
	Type  string      `json:"type"` // "tiles" or "snapshot"
	Tiles []TileEvent `json:"tiles,omitempty"`
	Data  string      `json:"data,omitempty"` // base64 lz4 snapshot
}

// TileEvent is one cell mutation from the rule layer.
type TileEvent struct {
	X         int     `json:"x"`
	Y         int     `json:"y"`
	Faction   string  `json:"faction"`
	Color     uint32  `json:"color"`
	Player    string  `json:"player,omitempty"`
	Overpaint uint8   `json:"overpaint,omitempty"`
	Flags     uint8   `json:"flags,omitempty"`
	Expiry    float64 `json:"expiry,omitempty"`
	PaintedAt uint32  `json:"paintedAt,omitempty"`
}

// Client reads the feed and exposes decoded updates on channels drained by
// the coordinator. A decode or connection error ends the run loop; the app
// degrades to offline mode and keeps presenting.
type Client struct {
	url       string
	batches   chan []world.BatchWrite
	snapshots chan *world.Snapshot
	errs      chan error
	quit      chan struct{}
}

// Dial creates a client for the given websocket URL. Run must be called to
// start reading.
func Dial(url string) *Client {
	return &Client{
		url:       url,
		batches:   make(chan []world.BatchWrite, 32),
		snapshots: make(chan *world.Snapshot, 1),
		errs:      make(chan error, 4),
		quit:      make(chan struct{}),
	}
}

// Batches delivers decoded tile batches for the coordinator to apply.
func (c *Client) Batches() <-chan []world.BatchWrite { return c.batches }

// Snapshots delivers decoded full snapshots for the coordinator to apply.
func (c *Client) Snapshots() <-chan *world.Snapshot { return c.snapshots }

// Errs delivers tagged feed failures.
func (c *Client) Errs() <-chan error { return c.errs }

// Close stops the read loop.
func (c *Client) Close() { close(c.quit) }

// Run connects and reads until the connection drops or Close is called.
func (c *Client) Run() {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(c.url, nil)
	if err != nil {
		c.report(fmt.Errorf("feed dial %s: %w", c.url, err))
		return
	}
	defer conn.Close()

	go func() {
		<-c.quit
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.quit: // deliberate close, not a fault
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					c.report(fmt.Errorf("feed read: %w", err))
				}
			}
			return
		}
		if err := c.handle(raw); err != nil {
			c.report(err)
		}
	}
}

// handle decodes one message. Malformed messages are reported and skipped;
// the stream keeps flowing.
func (c *Client) handle(raw []byte) error {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("feed decode: %w", err)
	}
	switch msg.Type {
	case "tiles":
		batch := make([]world.BatchWrite, 0, len(msg.Tiles))
		for _, ev := range msg.Tiles {
			batch = append(batch, world.BatchWrite{
				X: ev.X, Y: ev.Y,
				TileWrite: world.TileWrite{
					Faction:   ev.Faction,
					Color:     ev.Color,
					Player:    ev.Player,
					Overpaint: ev.Overpaint,
					Flags:     ev.Flags,
					Expiry:    ev.Expiry,
					PaintedAt: ev.PaintedAt,
				},
			})
		}
		select {
		case c.batches <- batch:
		case <-c.quit:
		}
	case "snapshot":
		data, err := base64.StdEncoding.DecodeString(msg.Data)
		if err != nil {
			return fmt.Errorf("feed snapshot: %w", err)
		}
		snap, err := world.DecodeSnapshot(data)
		if err != nil {
			return fmt.Errorf("feed snapshot: %w", err)
		}
		// Only the newest snapshot matters; drop a pending older one.
		select {
		case c.snapshots <- snap:
		default:
			select {
			case <-c.snapshots:
			default:
			}
			select {
			case c.snapshots <- snap:
			default:
			}
		}
	default:
		return fmt.Errorf("feed: unknown message type %q", msg.Type)
	}
	return nil
}

func (c *Client) report(err error) {
	select {
	case c.errs <- err:
	default:
	}
}
