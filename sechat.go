package sechat

import "time"

// DefaultMaxRooms caps how many rooms the bot joins at once when no
// explicit limit is configured.
const DefaultMaxRooms = 10

// Bot is the surface the scheduling engine exposes to its collaborators
// (listeners, scheduled tasks, inactivity tasks).
//
// All methods are only safe to call from the scheduler goroutine, which is
// where every Listener and task runs; collaborators never need their own
// synchronization.
type Bot interface {
	// Trigger returns the command prefix the bot answers to.
	Trigger() string

	// UserID returns the chat user id the bot is logged in as.
	UserID() int64

	// UserName returns the chat display name the bot is logged in as.
	UserName() string

	// Rooms returns the ids of every currently joined room.
	Rooms() []int64

	// HomeRooms returns the ids of the configured home rooms.
	HomeRooms() []int64

	// QuietRooms returns the ids of rooms excluded from broadcasts.
	QuietRooms() []int64

	// InRoom reports whether the bot is currently joined to the room.
	InRoom(roomID int64) bool

	// JoinRoom joins the given room. Prefer the JoinRoom action, which
	// converts every failure into a caller-supplied continuation.
	JoinRoom(roomID int64) error

	// LeaveRoom leaves the given room, best effort.
	LeaveRoom(roomID int64) error

	// LatestMessages returns up to n of the room's most recent messages.
	LatestMessages(roomID int64, n int) ([]*ChatMessage, error)

	// Send posts text to a single room, applying the active split strategy.
	Send(roomID int64, text string) error

	// Broadcast posts text to every joined room that is not quiet.
	Broadcast(text string) error

	// SetTimeout makes the bot ignore non-admin messages for the duration.
	// Re-arming replaces any pending expiry.
	SetTimeout(d time.Duration)

	// CancelTimeout clears an active timeout immediately.
	CancelTimeout()

	// Admins returns the configured admin user ids.
	Admins() []int64

	// IsAdmin reports whether the user id is a configured admin.
	IsAdmin(userID int64) bool

	// MaxRooms returns the configured cap on simultaneously joined rooms.
	MaxRooms() int
}

// Listener is a chat-event collaborator. It is invoked once per qualifying
// message event, on the scheduler goroutine, and returns the Actions the bot
// should perform in response. A panicking listener is isolated and logged;
// it never blocks other listeners or the scheduler loop.
type Listener interface {
	OnMessage(msg *ChatMessage, bot Bot) []Action
}

// ListenerFunc adapts a plain function to the Listener interface.
type ListenerFunc func(msg *ChatMessage, bot Bot) []Action

// OnMessage implements Listener.
func (f ListenerFunc) OnMessage(msg *ChatMessage, bot Bot) []Action {
	return f(msg, bot)
}

// ScheduledTask is a self-perpetuating periodic collaborator. After each Run
// the engine asks NextRun for the delay until the next execution and re-arms
// a timer, for the lifetime of the process.
type ScheduledTask interface {
	// NextRun returns the delay until the task should run next.
	NextRun() time.Duration

	// Run executes the task on the scheduler goroutine.
	Run(bot Bot)
}

// InactivityTask watches a room's silence duration.
//
// InactivityTime returns the silence threshold after which the task should
// run, or ok=false when the task does not apply to the room. Run is invoked
// once the threshold is exceeded; the engine handles warn/grace bookkeeping
// and rescheduling.
type InactivityTask interface {
	InactivityTime(roomID int64, bot Bot) (d time.Duration, ok bool)
	Run(roomID int64, bot Bot)
}

// ResponseFilter rewrites outbound message text. Filters apply to every
// PostMessage that does not set BypassFilters, in registration order.
type ResponseFilter interface {
	// Enabled reports whether the filter applies to the room.
	Enabled(roomID int64) bool

	// Filter returns the rewritten text.
	Filter(text string) string
}

// Store is the opaque persistence boundary. The engine calls Commit after
// every executed chore and once more during teardown; Get and Set are for
// collaborator state.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Commit() error
}
