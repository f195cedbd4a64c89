package sechat

import "time"

// Action is one side effect a collaborator asks the bot to perform. The
// executor processes actions breadth-first: continuations returned by an
// action are appended to the work list and executed in turn, enabling
// chained, conditional effects.
//
// Action is a closed sum; the executor's type switch is exhaustive over the
// variants below.
type Action interface {
	isAction()
}

// PostMessage posts text to a room (or to every non-quiet joined room when
// Broadcast is set).
type PostMessage struct {
	// RoomID is the target room. Ignored when Broadcast is set.
	RoomID int64

	// Text is the message to post.
	Text string

	// Condensed, when non-empty, replaces the message after the configured
	// hide duration once the service echoes it back.
	Condensed string

	// Split selects how over-long messages are broken into wire parts.
	Split SplitStrategy

	// BypassFilters skips the registered response filters.
	BypassFilters bool

	// Ephemeral deletes every wire part after the hide duration instead of
	// condensing.
	Ephemeral bool

	// Delay defers the post via the timer service instead of sending now.
	Delay time.Duration

	// Broadcast sends to every joined room that is not quiet.
	Broadcast bool
}

func (PostMessage) isAction() {}

// DeleteMessage deletes a previously posted message. Outcomes are delivered
// through the continuations, each of which may yield further actions.
type DeleteMessage struct {
	// RoomID is the room whose session performs the delete. Zero means any
	// joined room (the operation only needs a session fkey).
	RoomID    int64
	MessageID int64

	OnSuccess func() []Action
	OnError   func(err error) []Action
}

func (DeleteMessage) isAction() {}

// JoinRoom joins a room. Failures are never propagated across the executor
// boundary; every outcome is converted into the matching continuation so
// callers can present user-facing results.
type JoinRoom struct {
	RoomID int64

	OnSuccess func() []Action

	// IfRoomDoesNotExist runs when the room id does not resolve.
	IfRoomDoesNotExist func() []Action

	// IfLackingPermissionToPost runs when the room was joined but posting
	// is forbidden (the room is left again first), or when a
	// permission-type error occurs during the join.
	IfLackingPermissionToPost func() []Action

	// OnError runs for any other failure, including the room-count cap.
	OnError func(err error) []Action
}

func (JoinRoom) isAction() {}

// LeaveRoom leaves a room, best effort.
type LeaveRoom struct {
	RoomID int64
}

func (LeaveRoom) isAction() {}

// Shutdown terminates the bot by enqueueing a Stop chore. Farewell, when
// non-empty, is broadcast to every non-quiet room first.
type Shutdown struct {
	Farewell string
}

func (Shutdown) isAction() {}
