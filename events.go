package sechat

import "time"

// EventKind identifies a reconstructed chat event.
type EventKind int

const (
	// MessagePosted is a new message, including reply- and mention-enriched
	// posts reconstructed from their raw companion frames.
	MessagePosted EventKind = iota
	// MessageEdited is an edit to an existing message.
	MessageEdited
	// MessageDeleted is a deletion; the message content is nil.
	MessageDeleted
	// MessageStarred is a star count change.
	MessageStarred
	// UserEntered is a user joining the room.
	UserEntered
	// UserLeft is a user leaving the room.
	UserLeft
	// MessagesMoved is a batch of messages moved out of or into the room.
	MessagesMoved
	// Invitation is an invitation for the bot to join another room.
	Invitation
)

var eventKindNames = map[EventKind]string{
	MessagePosted:  "message_posted",
	MessageEdited:  "message_edited",
	MessageDeleted: "message_deleted",
	MessageStarred: "message_starred",
	UserEntered:    "user_entered",
	UserLeft:       "user_left",
	MessagesMoved:  "messages_moved",
	Invitation:     "invitation",
}

func (k EventKind) String() string {
	if s, ok := eventKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// MoveInfo carries the details of a MessagesMoved event.
type MoveInfo struct {
	// Out is true when messages were moved out of this room, false when
	// they were moved in.
	Out bool
	// CounterpartRoomID and CounterpartRoomName identify the other room
	// involved in the move, recovered from the service's announcement
	// message.
	CounterpartRoomID   int64
	CounterpartRoomName string
	// MoverID and MoverName identify the user who performed the move.
	MoverID   int64
	MoverName string
	// MessageIDs lists the moved messages.
	MessageIDs []int64
}

// Event is one reconstructed chat event. Kind selects which payload fields
// are populated: Message for the message kinds, Moved for MessagesMoved,
// and the User fields for entered/left/invitation.
type Event struct {
	ID   int64
	Kind EventKind
	Time time.Time

	RoomID   int64
	RoomName string

	UserID   int64
	UserName string

	Message *ChatMessage
	Moved   *MoveInfo
}
