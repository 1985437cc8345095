package stream

import "context"

// Transport moves messages between a lane and its client.
type Transport interface {
	// Receive blocks for the next inbound message. An orderly close by
	// either side is reported as model.ErrTransportClosed.
	Receive(ctx context.Context) ([]byte, error)
	// Send writes one outbound frame.
	Send(ctx context.Context, f Frame) error
	// Close releases the transport. It is safe to call more than once.
	Close() error
}
