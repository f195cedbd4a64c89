package sechat

import "errors"

// Error taxonomy for the protocol and session layers.
var (
	// ErrRoomNotFound indicates the requested room does not exist.
	ErrRoomNotFound = errors.New("room not found")

	// ErrRoomPermission indicates posting is not permitted in the room,
	// because it is inactive, frozen, or the logged-in user lacks rights.
	ErrRoomPermission = errors.New("not permitted to post in this room")

	// ErrPrivateRoom indicates a join was blocked because the room is private.
	ErrPrivateRoom = errors.New("room is private")

	// ErrInvalidCredentials indicates the login flow was rejected by the site.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrShutdown indicates shutdown has begun; the operation was rejected
	// because the client is tearing down.
	ErrShutdown = errors.New("shutdown requested")
)

// Typed outcomes for edit/delete operations, mapped from literal service
// response bodies. Anything the service answers that is not recognized is
// logged as unexpected but not treated as fatal.
var (
	// ErrMessageTooOld indicates the edit/delete window has passed.
	ErrMessageTooOld = errors.New("message is too old to edit or delete")

	// ErrNotYourMessage indicates the message belongs to another user.
	ErrNotYourMessage = errors.New("message belongs to another user")

	// ErrAlreadyDeleted indicates the message was already deleted.
	ErrAlreadyDeleted = errors.New("message has already been deleted")
)

// Standard error messages shared across the session layer.
const (
	ErrMsgMissingFkey     = "no fkey found in room page"
	ErrMsgSocketClosed    = "socket is closed"
	ErrMsgRateLimited     = "rate limited after maximum attempts"
	ErrMsgNotInRoom       = "not joined to room"
	ErrMsgUnexpectedReply = "unexpected service response"
)
