package websocket

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second

	pongWait = 60 * time.Second

	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 64 * 1024 // 64KB; clients only send control frames
)

func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID) *Client {
	return &Client{
		ID:       uuid.New(),
		UserID:   userID,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		Channels: make(map[string]bool),
		Hub:      hub,
	}
}

// ReadPump consumes control frames from the client. The only client-driven
// operations are channel subscribe/unsubscribe; all chat mutations go over
// the REST API.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var frame ControlFrame
		if err := c.Conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("websocket read error", "socket_id", c.ID, "error", err)
			}
			break
		}

		switch frame.Type {
		case TypePong:
			continue

		case TypeSubscribe:
			if frame.Channel == "" {
				c.SendError(ErrInvalidFrame.Error())
				continue
			}
			if err := c.Hub.Subscribe(c.Hub.ctx, c, frame.Channel); err != nil {
				c.Hub.logger.Info("subscription denied",
					"socket_id", c.ID, "user_id", c.UserID, "channel", frame.Channel, "error", err)
				c.enqueue(marshalControl(ControlFrame{
					Type:    TypeError,
					Channel: frame.Channel,
					Message: ErrSubscriptionDenied.Error(),
				}))
				continue
			}
			c.enqueue(marshalControl(ControlFrame{
				Type:    TypeSubscribed,
				Channel: frame.Channel,
			}))

		case TypeUnsubscribe:
			if frame.Channel != "" {
				c.Hub.Unsubscribe(c, frame.Channel)
			}

		default:
			c.SendError(ErrInvalidFrame.Error())
		}
	}
}

// WritePump flushes the send queue and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			c.Conn.WriteMessage(websocket.TextMessage, message)

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) SendError(message string) {
	c.enqueue(marshalControl(ControlFrame{Type: TypeError, Message: message}))
}

func (c *Client) enqueue(data []byte) {
	select {
	case c.Send <- data:
	default:
	}
}

// SendJSON marshals and queues an arbitrary payload for this client.
func (c *Client) SendJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case c.Send <- data:
		return nil
	default:
		return ErrClientQueueFull
	}
}

func (c *Client) IsSubscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Channels[channel]
}
