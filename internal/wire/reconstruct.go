package wire

import (
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/luciancaetano/sechat"
	"github.com/luciancaetano/sechat/internal/logger"
	"github.com/luciancaetano/sechat/internal/telemetry"
)

// The service announces moves with a plain message in the affected room.
// These literal patterns recover the counterpart room id and name.
var (
	movedOutPattern = regexp.MustCompile(`(?:→|&rarr;).*moved to <a href="[^"]*/rooms/(\d+)[^"]*">([^<]+)</a>`)
	movedInPattern  = regexp.MustCompile(`(?:←|&larr;).*moved from <a href="[^"]*/rooms/(\d+)[^"]*">([^<]+)</a>`)
)

type slot struct {
	ev       RawEvent
	consumed bool
}

// Reconstruct turns one frame's raw events into the events dispatched to
// listeners. Raw frames are coarser-grained than the desired events, so:
//
//  1. Reply and mention frames consume their posted/edited companion frame
//     (same message id) and emit a single enriched event each.
//  2. Moved-out/in batches consume the companion announcement message and
//     emit one MessagesMoved event per direction.
//  3. The remaining frames are sorted ascending by event id and mapped to
//     their direct event kind; unknown type codes are logged and dropped.
//
// The returned slice preserves exactly this production order.
func Reconstruct(events []RawEvent) []sechat.Event {
	slots := make([]*slot, len(events))
	for i, ev := range events {
		slots[i] = &slot{ev: ev}
	}

	var out []sechat.Event
	out = append(out, reconstructEnriched(slots, TypeReplyPosted)...)
	out = append(out, reconstructEnriched(slots, TypeUserMentioned)...)
	if ev, ok := reconstructMove(slots, TypeMovedOut, movedOutPattern, true); ok {
		out = append(out, ev)
	}
	if ev, ok := reconstructMove(slots, TypeMovedIn, movedInPattern, false); ok {
		out = append(out, ev)
	}
	return append(out, reconstructDirect(slots)...)
}

// reconstructEnriched handles reply and mention frames. The companion
// posted/edited frame sharing the message id is removed from its pool so
// the same message is never dispatched twice; the enriched event is built
// from the reply/mention frame's fields.
func reconstructEnriched(slots []*slot, frameType int) []sechat.Event {
	var out []sechat.Event
	for _, s := range slots {
		if s.consumed || s.ev.EventType != frameType {
			continue
		}
		s.consumed = true
		kind := sechat.MessagePosted
		if c := findCompanion(slots, s.ev.MessageID); c != nil {
			if c.ev.EventType == TypeMessageEdited {
				kind = sechat.MessageEdited
			}
			c.consumed = true
		}
		out = append(out, s.ev.event(kind))
	}
	return out
}

func findCompanion(slots []*slot, messageID int64) *slot {
	for _, s := range slots {
		if s.consumed {
			continue
		}
		if s.ev.EventType != TypeMessagePosted && s.ev.EventType != TypeMessageEdited {
			continue
		}
		if s.ev.MessageID == messageID {
			return s
		}
	}
	return nil
}

// reconstructMove collapses a batch of moved-message frames into one
// MessagesMoved event, recovering the counterpart room from the companion
// announcement message.
func reconstructMove(slots []*slot, frameType int, pattern *regexp.Regexp, out bool) (sechat.Event, bool) {
	var batch []*slot
	for _, s := range slots {
		if !s.consumed && s.ev.EventType == frameType {
			batch = append(batch, s)
		}
	}
	if len(batch) == 0 {
		return sechat.Event{}, false
	}

	move := &sechat.MoveInfo{Out: out}
	for _, s := range batch {
		s.consumed = true
		move.MessageIDs = append(move.MessageIDs, s.ev.MessageID)
	}

	anchor := &batch[0].ev
	for _, s := range slots {
		if s.consumed || s.ev.EventType != TypeMessagePosted {
			continue
		}
		m := pattern.FindStringSubmatch(s.ev.Content)
		if m == nil {
			continue
		}
		s.consumed = true
		anchor = &s.ev
		move.CounterpartRoomID, _ = strconv.ParseInt(m[1], 10, 64)
		move.CounterpartRoomName = m[2]
		break
	}
	move.MoverID = anchor.UserID
	move.MoverName = anchor.UserName

	return sechat.Event{
		ID:       anchor.ID,
		Kind:     sechat.MessagesMoved,
		Time:     time.Unix(anchor.TimeStamp, 0),
		RoomID:   anchor.RoomID,
		RoomName: anchor.RoomName,
		UserID:   anchor.UserID,
		UserName: anchor.UserName,
		Moved:    move,
	}, true
}

var directKinds = map[int]sechat.EventKind{
	TypeMessagePosted:  sechat.MessagePosted,
	TypeMessageEdited:  sechat.MessageEdited,
	TypeUserEntered:    sechat.UserEntered,
	TypeUserLeft:       sechat.UserLeft,
	TypeMessageStarred: sechat.MessageStarred,
	TypeMessageDeleted: sechat.MessageDeleted,
	TypeInvitation:     sechat.Invitation,
}

// reconstructDirect maps the leftover frames. Batches may arrive out of
// order relative to creation, so they are sorted ascending by event id
// first.
func reconstructDirect(slots []*slot) []sechat.Event {
	var rest []*slot
	for _, s := range slots {
		if !s.consumed {
			rest = append(rest, s)
		}
	}
	sort.Slice(rest, func(i, j int) bool {
		return rest[i].ev.ID < rest[j].ev.ID
	})

	var out []sechat.Event
	for _, s := range rest {
		kind, ok := directKinds[s.ev.EventType]
		if !ok {
			telemetry.EventsDropped.Inc()
			logger.Warn("unknown_event_type",
				"event_type", s.ev.EventType,
				"event_id", s.ev.ID,
				"room_id", s.ev.RoomID,
			)
			continue
		}
		out = append(out, s.ev.event(kind))
	}
	return out
}
