package http

import (
	"time"

	"github.com/gorilla/websocket"
)

// wsConn adapts *websocket.Conn to session.Conn. Gorilla's Conn exposes
// ReadMessage/WriteMessage with a message-type byte; the session state
// machine only ever speaks binary frames, so text and control frames are
// filtered here rather than in the session package.
type wsConn struct {
	conn *websocket.Conn
}

func newWSConn(c *websocket.Conn) *wsConn { return &wsConn{conn: c} }

func (c *wsConn) ReadBinary() (data []byte, ok bool, err error) {
	messageType, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, false, err
	}
	if messageType != websocket.BinaryMessage {
		return nil, false, nil
	}
	return data, true, nil
}

func (c *wsConn) WriteBinary(data []byte) error {
	return c.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (c *wsConn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

func (c *wsConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// closeWriteTimeout bounds how long the best-effort Close control frame
// write is allowed to block; the underlying socket closes regardless of
// whether the client ever reads it.
const closeWriteTimeout = time.Second

func (c *wsConn) Close(code int, reason string) error {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout))
	return c.conn.Close()
}
