package websocket

import "errors"

var (
	ErrClientQueueFull    = errors.New("client message queue is full")
	ErrInvalidFrame       = errors.New("invalid frame format")
	ErrSubscriptionDenied = errors.New("subscription denied")
)
