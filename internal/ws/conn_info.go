package ws

import "time"

// ConnInfo carries identity and request metadata recorded at handshake
// time, used when publishing lifecycle events for the connection.
type ConnInfo struct {
	ConnID      string
	UserID      int
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
