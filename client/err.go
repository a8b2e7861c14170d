package client

import "errors"

var (
	// ErrClosed is returned by any operation attempted after Close.
	ErrClosed = errors.New("amqp10: connection closed")
	// ErrDialTimeout is returned when the connection does not reach
	// ConnOpenExchanged before the configured dial timeout.
	ErrDialTimeout = errors.New("amqp10: dial timeout")
	// ErrSendTimeout is returned by Sender.Send when a context deadline
	// elapses before the remote settles the delivery.
	ErrSendTimeout = errors.New("amqp10: send timeout")
	// ErrRejected is returned by Sender.Send when the remote settles a
	// delivery with a rejected outcome.
	ErrRejected = errors.New("amqp10: delivery rejected")
	// ErrReleased is returned by Sender.Send when the remote settles a
	// delivery with a released outcome.
	ErrReleased = errors.New("amqp10: delivery released")
)
