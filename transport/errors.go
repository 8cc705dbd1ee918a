package transport

import "errors"

// Transport errors.
var (
	// ErrEmptyTopic indicates an operation was attempted without a topic.
	ErrEmptyTopic = errors.New("transport: empty topic")
	// ErrNoListener indicates a client was created against a topic with no
	// live subscriber.
	ErrNoListener = errors.New("transport: no live listener on handshake topic")
	// ErrNoReply indicates a direct send received no reply before the
	// deadline.
	ErrNoReply = errors.New("transport: no reply received")
	// ErrClosed indicates the transport or client has been closed.
	ErrClosed = errors.New("transport: closed")
	// ErrGroupChatUnsupported indicates the configured transport cannot run
	// group-chat broadcasts.
	ErrGroupChatUnsupported = errors.New("transport: group chat not supported")
)
