// internal/websocket/errors.go
package websocket

import "errors"

var (
	ErrHubClosed   = errors.New("websocket hub is not running")
	ErrUnsupported = errors.New("unsupported message type")
)
