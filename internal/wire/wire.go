// Package wire parses raw socket frames and reconstructs the higher-level
// chat events the scheduler consumes. The frame layout, event type codes and
// announcement text patterns encode an external, versionless wire format;
// they are pinned by fixture tests and must not be generalized.
package wire

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/luciancaetano/sechat"
)

// Raw event type codes as they appear in the "event_type" field.
const (
	TypeMessagePosted  = 1
	TypeMessageEdited  = 2
	TypeUserEntered    = 3
	TypeUserLeft       = 4
	TypeMessageStarred = 6
	TypeUserMentioned  = 8
	TypeMessageDeleted = 10
	TypeInvitation     = 15
	TypeReplyPosted    = 18
	TypeMovedOut       = 19
	TypeMovedIn        = 20
)

// RawEvent is one event object from a socket frame, before reconstruction.
type RawEvent struct {
	EventType    int    `json:"event_type"`
	ID           int64  `json:"id"`
	TimeStamp    int64  `json:"time_stamp"`
	Content      string `json:"content"`
	UserID       int64  `json:"user_id"`
	UserName     string `json:"user_name"`
	TargetUserID int64  `json:"target_user_id"`
	RoomID       int64  `json:"room_id"`
	RoomName     string `json:"room_name"`
	MessageID    int64  `json:"message_id"`
	ParentID     int64  `json:"parent_id"`
	MessageEdits int    `json:"message_edits"`
	MessageStars int    `json:"message_stars"`
}

// frameRoom is the per-room object inside a frame.
type frameRoom struct {
	Events []RawEvent `json:"e"`
}

// ParseFrame extracts the raw events addressed to roomID from one socket
// frame. Frames are JSON objects keyed "r<roomId>"; events for other rooms
// are ignored.
func ParseFrame(data []byte, roomID int64) ([]RawEvent, error) {
	var frame map[string]json.RawMessage
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("parse frame: %w", err)
	}
	raw, ok := frame[fmt.Sprintf("r%d", roomID)]
	if !ok {
		return nil, nil
	}
	var room frameRoom
	if err := json.Unmarshal(raw, &room); err != nil {
		return nil, fmt.Errorf("parse frame room object: %w", err)
	}
	return room.Events, nil
}

// Message builds the immutable ChatMessage carried by a message event.
func (r *RawEvent) Message() *sechat.ChatMessage {
	m := &sechat.ChatMessage{
		ID:           r.MessageID,
		ParentID:     r.ParentID,
		UserID:       r.UserID,
		UserName:     r.UserName,
		TargetUserID: r.TargetUserID,
		RoomID:       r.RoomID,
		RoomName:     r.RoomName,
		Edits:        r.MessageEdits,
		Stars:        r.MessageStars,
		Posted:       time.Unix(r.TimeStamp, 0),
	}
	if r.Content != "" {
		m.Content = sechat.NewContent(r.Content)
	}
	return m
}

// event builds an Event of the given kind from the raw frame fields.
func (r *RawEvent) event(kind sechat.EventKind) sechat.Event {
	ev := sechat.Event{
		ID:       r.ID,
		Kind:     kind,
		Time:     time.Unix(r.TimeStamp, 0),
		RoomID:   r.RoomID,
		RoomName: r.RoomName,
		UserID:   r.UserID,
		UserName: r.UserName,
	}
	switch kind {
	case sechat.MessagePosted, sechat.MessageEdited, sechat.MessageDeleted, sechat.MessageStarred:
		ev.Message = r.Message()
	}
	return ev
}
