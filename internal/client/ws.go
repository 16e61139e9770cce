package client

import (
	"context"
	"net/url"
	"sync"

	"github.com/alejandrocid0/alagloria-sub001/internal/domain"
	"github.com/gorilla/websocket"
)

// WSConn adapts a gorilla websocket to the Conn interface. Writes are
// serialized under a mutex since the ticker and the UI can both send.
type WSConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// DialWS connects to a game server's /ws endpoint.
func DialWS(ctx context.Context, baseURL, gameID, userID, displayName string) (*WSConn, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("gameId", gameID)
	q.Set("userId", userID)
	q.Set("name", displayName)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, err
	}
	return &WSConn{conn: conn}, nil
}

func (c *WSConn) Receive() (Envelope, error) {
	var env Envelope
	if err := c.conn.ReadJSON(&env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

func (c *WSConn) Submit(sub domain.AnswerSubmission) error {
	return c.writeJSON(map[string]any{"type": "answer", "payload": sub})
}

func (c *WSConn) RequestPhase() error {
	return c.writeJSON(map[string]any{"type": "phase"})
}

func (c *WSConn) Close() error {
	return c.conn.Close()
}

func (c *WSConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}
