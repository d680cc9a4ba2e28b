package websocket

import "errors"

// ErrClientQueueFull reports a frame dropped because the connection's
// send queue is saturated; the write pump is not keeping up.
var ErrClientQueueFull = errors.New("client message queue is full")
