package unit_test

import (
	"fmt"
	"testing"

	"github.com/luciancaetano/sechat"
	"github.com/luciancaetano/sechat/internal/wire"
)

// TestFrameToEventPipeline runs a socket frame through parse and
// reconstruction exactly as the room read loop does.
func TestFrameToEventPipeline(t *testing.T) {
	t.Parallel()

	frame := []byte(`{
		"r139": {"e": [
			{"event_type": 1, "id": 900, "time_stamp": 1700000000,
			 "content": "hello there", "user_id": 7, "user_name": "Alice",
			 "room_id": 139, "room_name": "Sandbox", "message_id": 450},
			{"event_type": 3, "id": 901, "time_stamp": 1700000001,
			 "user_id": 9, "user_name": "Bob", "room_id": 139, "room_name": "Sandbox"}
		]},
		"r1": {"e": [
			{"event_type": 1, "id": 902, "message_id": 451, "content": "other room",
			 "user_id": 7, "room_id": 1}
		]}
	}`)

	raw, err := wire.ParseFrame(frame, 139)
	if err != nil {
		t.Fatalf("ParseFrame() error = %v", err)
	}
	if len(raw) != 2 {
		t.Fatalf("ParseFrame() returned %d events, want 2 (other rooms ignored)", len(raw))
	}

	events := wire.Reconstruct(raw)
	if len(events) != 2 {
		t.Fatalf("Reconstruct() returned %d events, want 2", len(events))
	}
	if events[0].Kind != sechat.MessagePosted || events[0].Message == nil {
		t.Errorf("event 0 = %v, want a message-posted event with payload", events[0].Kind)
	}
	if events[0].Message.Content.Text != "hello there" {
		t.Errorf("message text = %q, want %q", events[0].Message.Content.Text, "hello there")
	}
	if events[1].Kind != sechat.UserEntered {
		t.Errorf("event 1 = %v, want user-entered", events[1].Kind)
	}
}

// TestReplyPipelineEmitsSingleEvent covers the companion consumption a
// reply generates: the service sends both a reply-posted and a
// message-posted record for the same message.
func TestReplyPipelineEmitsSingleEvent(t *testing.T) {
	t.Parallel()

	frame := []byte(`{"r139": {"e": [
		{"event_type": 18, "id": 910, "time_stamp": 1700000000,
		 "content": ":449 sure", "user_id": 7, "user_name": "Alice",
		 "room_id": 139, "message_id": 455, "parent_id": 449, "target_user_id": 42},
		{"event_type": 1, "id": 911, "time_stamp": 1700000000,
		 "content": ":449 sure", "user_id": 7, "user_name": "Alice",
		 "room_id": 139, "message_id": 455, "parent_id": 449}
	]}}`)

	raw, err := wire.ParseFrame(frame, 139)
	if err != nil {
		t.Fatalf("ParseFrame() error = %v", err)
	}
	events := wire.Reconstruct(raw)
	if len(events) != 1 {
		t.Fatalf("Reconstruct() returned %d events, want the reply collapsed to 1", len(events))
	}
	if events[0].Kind != sechat.MessagePosted {
		t.Errorf("kind = %v, want message_posted", events[0].Kind)
	}
	if events[0].Message.ParentID != 449 {
		t.Errorf("parent id = %d, want 449", events[0].Message.ParentID)
	}
}

// TestSplitRoundTripThroughContent checks that split parts survive the
// content parser without picking up spurious markup flags.
func TestSplitRoundTripThroughContent(t *testing.T) {
	t.Parallel()

	long := ""
	for i := 0; i < 200; i++ {
		long += fmt.Sprintf("w%d ", i)
	}
	parts := sechat.Split(long, sechat.DefaultMaxMessageLength, sechat.SplitWord)
	if len(parts) < 2 {
		t.Fatalf("Split() = %d parts, want at least 2", len(parts))
	}
	for i, p := range parts {
		if len(p) > sechat.DefaultMaxMessageLength {
			t.Errorf("part %d is %d chars, exceeds the cap", i, len(p))
		}
		c := sechat.NewContent(p)
		if c.Onebox || c.FixedFont {
			t.Errorf("part %d misdetected as markup", i)
		}
	}
}
