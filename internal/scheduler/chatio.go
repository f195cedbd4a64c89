package scheduler

import (
	"context"

	"github.com/luciancaetano/sechat"
	"github.com/luciancaetano/sechat/internal/chat"
)

// ChatRoom is the slice of a joined room the engine drives. *chat.Room
// satisfies it; tests substitute fakes.
type ChatRoom interface {
	ID() int64
	CanPost() bool
	OnEvent(fn chat.EventListener)
	SendWith(ctx context.Context, text string, strategy sechat.SplitStrategy) ([]int64, error)
	Edit(ctx context.Context, messageID int64, text string) error
	Delete(ctx context.Context, messageID int64) error
	Messages(ctx context.Context, n int) ([]*sechat.ChatMessage, error)
}

// ChatClient is the slice of the chat session the engine drives.
type ChatClient interface {
	UserID() int64
	JoinRoom(ctx context.Context, roomID int64) (ChatRoom, error)
	Room(roomID int64) (ChatRoom, bool)
	Rooms() []ChatRoom
	LeaveRoom(ctx context.Context, roomID int64) error
	DeleteMessage(ctx context.Context, roomID, messageID int64) error
	Close(ctx context.Context) error
}

var (
	_ ChatRoom   = (*chat.Room)(nil)
	_ ChatClient = clientAdapter{}
)

// clientAdapter lifts *chat.Client to the ChatClient interface; the
// indirection exists only because Go method return types are invariant.
type clientAdapter struct {
	c *chat.Client
}

// AdaptClient wraps a concrete chat client for use by the engine.
func AdaptClient(c *chat.Client) ChatClient {
	return clientAdapter{c: c}
}

func (a clientAdapter) UserID() int64 {
	return a.c.UserID()
}

func (a clientAdapter) JoinRoom(ctx context.Context, roomID int64) (ChatRoom, error) {
	r, err := a.c.JoinRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (a clientAdapter) Room(roomID int64) (ChatRoom, bool) {
	r, ok := a.c.Room(roomID)
	if !ok {
		return nil, false
	}
	return r, true
}

func (a clientAdapter) Rooms() []ChatRoom {
	concrete := a.c.Rooms()
	rooms := make([]ChatRoom, len(concrete))
	for i, r := range concrete {
		rooms[i] = r
	}
	return rooms
}

func (a clientAdapter) LeaveRoom(ctx context.Context, roomID int64) error {
	return a.c.LeaveRoom(ctx, roomID)
}

func (a clientAdapter) DeleteMessage(ctx context.Context, roomID, messageID int64) error {
	return a.c.DeleteMessage(ctx, roomID, messageID)
}

func (a clientAdapter) Close(ctx context.Context) error {
	return a.c.Close(ctx)
}
