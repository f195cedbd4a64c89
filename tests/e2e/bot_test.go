package e2e_test

import (
	"testing"
	"time"

	"github.com/luciancaetano/sechat"
	"github.com/luciancaetano/sechat/internal/scheduler"
	"github.com/luciancaetano/sechat/internal/store"
)

// startBot assembles a full engine against the fake service and runs its
// loop until the test finishes.
func startBot(t *testing.T, f *fakeService, cfg scheduler.Config, opts ...scheduler.Option) (*scheduler.Engine, chan struct{}) {
	t.Helper()
	e := scheduler.New(scheduler.AdaptClient(f.client()), store.NewMemory(), cfg, opts...)
	if err := e.Start(); err != nil {
		t.Fatalf("engine start: %v", err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := e.Loop(); err != nil {
			t.Errorf("engine loop: %v", err)
		}
	}()
	t.Cleanup(func() {
		e.Stop()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("engine did not stop")
		}
	})
	return e, done
}

func TestBotAnswersCommandOverSocket(t *testing.T) {
	t.Parallel()

	f := newFakeService(t)
	startBot(t, f, scheduler.Config{Trigger: "!", Rooms: []int64{139}},
		scheduler.WithListener(sechat.ListenerFunc(func(msg *sechat.ChatMessage, bot sechat.Bot) []sechat.Action {
			if msg.Content.Text != "!ping" {
				return nil
			}
			return []sechat.Action{sechat.PostMessage{RoomID: msg.RoomID, Text: "pong"}}
		})))
	conn := f.socket(t)

	pushEvent(t, conn, 139, 7, 601, "!ping")

	waitFor(t, 5*time.Second, func() bool {
		for _, m := range f.sentMessages() {
			if m.roomID == 139 && m.text == "pong" {
				return true
			}
		}
		return false
	})
}

func TestBotIgnoresOtherRoomsInFrame(t *testing.T) {
	t.Parallel()

	f := newFakeService(t)
	startBot(t, f, scheduler.Config{Trigger: "!", Rooms: []int64{139}},
		scheduler.WithListener(sechat.ListenerFunc(func(msg *sechat.ChatMessage, bot sechat.Bot) []sechat.Action {
			return []sechat.Action{sechat.PostMessage{RoomID: msg.RoomID, Text: "seen"}}
		})))
	conn := f.socket(t)

	// Events addressed to a room the socket does not serve are dropped at
	// the frame layer.
	pushEvent(t, conn, 140, 7, 601, "hello")
	pushEvent(t, conn, 139, 7, 602, "hello")

	waitFor(t, 5*time.Second, func() bool {
		return len(f.sentMessages()) == 1
	})
	time.Sleep(100 * time.Millisecond)
	if got := f.sentMessages(); len(got) != 1 {
		t.Fatalf("sent = %v, want exactly one reply", got)
	}
}

func TestBotShutdownActionStopsLoop(t *testing.T) {
	t.Parallel()

	f := newFakeService(t)
	_, done := startBot(t, f, scheduler.Config{Trigger: "!", Rooms: []int64{139}},
		scheduler.WithListener(sechat.ListenerFunc(func(msg *sechat.ChatMessage, bot sechat.Bot) []sechat.Action {
			if msg.Content.Text != "!die" {
				return nil
			}
			return []sechat.Action{sechat.Shutdown{Farewell: "bye"}}
		})))
	conn := f.socket(t)

	pushEvent(t, conn, 139, 7, 603, "!die")

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown action did not stop the loop")
	}

	found := false
	for _, m := range f.sentMessages() {
		if m.text == "bye" {
			found = true
		}
	}
	if !found {
		t.Fatalf("sent = %v, want the farewell", f.sentMessages())
	}
}

func TestBotSplitsLongReply(t *testing.T) {
	t.Parallel()

	long := ""
	for i := 0; i < 120; i++ {
		long += "word "
	}

	f := newFakeService(t)
	startBot(t, f, scheduler.Config{Trigger: "!", Rooms: []int64{139}},
		scheduler.WithListener(sechat.ListenerFunc(func(msg *sechat.ChatMessage, bot sechat.Bot) []sechat.Action {
			return []sechat.Action{sechat.PostMessage{RoomID: msg.RoomID, Text: long, Split: sechat.SplitWord}}
		})))
	conn := f.socket(t)

	pushEvent(t, conn, 139, 7, 604, "!wall")

	waitFor(t, 5*time.Second, func() bool {
		return len(f.sentMessages()) >= 2
	})
	for _, m := range f.sentMessages() {
		if len(m.text) > sechat.DefaultMaxMessageLength {
			t.Fatalf("part of %d chars exceeds the cap", len(m.text))
		}
	}
}
