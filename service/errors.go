package service

import "errors"

// Stable failure kinds. Callers match with errors.Is; the wrapped cause is
// always preserved so nothing gets silently swallowed.
var (
	// ErrAuthentication: bad or missing credential at handshake.
	ErrAuthentication = errors.New("authentication failed")
	// ErrNotAuthorized: authenticated but not a member of the conversation.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrNotFound: unknown conversation or user.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument: malformed id, empty content or name.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrProvider: assistant completion failed. Never broadcast into a room.
	ErrProvider = errors.New("completion provider error")
	// ErrDelivery: a single peer write failed. Isolated per connection.
	ErrDelivery = errors.New("delivery failed")
)
