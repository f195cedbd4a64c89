package scheduler

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/luciancaetano/sechat"
	"github.com/luciancaetano/sechat/internal/logger"
)

// executeActions processes a batch of collaborator actions breadth-first:
// continuations returned by an action are appended to the work list, so a
// chain of conditional effects runs within the same chore.
func (e *Engine) executeActions(actions []sechat.Action) {
	work := append([]sechat.Action(nil), actions...)
	for i := 0; i < len(work); i++ {
		switch a := work[i].(type) {
		case sechat.PostMessage:
			work = append(work, e.execPost(a)...)
		case sechat.DeleteMessage:
			work = append(work, e.execDelete(a)...)
		case sechat.JoinRoom:
			work = append(work, e.execJoin(a)...)
		case sechat.LeaveRoom:
			work = append(work, e.execLeave(a)...)
		case sechat.Shutdown:
			work = append(work, e.execShutdown(a)...)
		default:
			logger.Error("unknown_action", "action", fmt.Sprintf("%T", a))
		}
	}
}

func (e *Engine) execPost(p sechat.PostMessage) []sechat.Action {
	if p.Delay > 0 {
		deferred := p
		deferred.Delay = 0
		e.timers.Schedule(p.Delay, &Chore{Kind: ChoreDelayedMessage, Post: &deferred})
		return nil
	}
	if p.Broadcast {
		for _, r := range e.client.Rooms() {
			if e.quiet(r.ID()) {
				continue
			}
			e.postTo(r, p)
		}
		return nil
	}
	r, ok := e.client.Room(p.RoomID)
	if !ok {
		logger.Warn("post_room_not_joined", "room_id", p.RoomID)
		return nil
	}
	e.postTo(r, p)
	return nil
}

// postTo sends one message, applying response filters and registering the
// parts for echo tracking when the condense lifecycle is configured.
func (e *Engine) postTo(r ChatRoom, p sechat.PostMessage) {
	text := p.Text
	if !p.BypassFilters {
		for _, f := range e.filters {
			if f.Enabled(r.ID()) {
				text = f.Filter(text)
			}
		}
	}
	ids, err := r.SendWith(e.ctx, text, p.Split)
	if err != nil {
		logger.Error("post_failed", "room_id", r.ID(), "error", err)
		return
	}
	if e.cfg.HideOneboxAfter <= 0 {
		return
	}
	rec := &postedMessage{
		id:         uuid.NewString(),
		posted:     e.now(),
		original:   text,
		condensed:  p.Condensed,
		ephemeral:  p.Ephemeral,
		roomID:     r.ID(),
		messageIDs: ids,
	}
	for _, id := range ids {
		e.awaitingEcho[id] = rec
	}
}

func (e *Engine) execDelete(d sechat.DeleteMessage) []sechat.Action {
	if err := e.client.DeleteMessage(e.ctx, d.RoomID, d.MessageID); err != nil {
		if d.OnError != nil {
			return d.OnError(err)
		}
		logger.Warn("delete_failed", "room_id", d.RoomID, "message_id", d.MessageID, "error", err)
		return nil
	}
	if d.OnSuccess != nil {
		return d.OnSuccess()
	}
	return nil
}

func (e *Engine) execJoin(j sechat.JoinRoom) []sechat.Action {
	if !e.InRoom(j.RoomID) && len(e.client.Rooms()) >= e.cfg.MaxRooms {
		return e.joinError(j, fmt.Errorf("room cap reached (%d)", e.cfg.MaxRooms))
	}
	r, err := e.join(j.RoomID)
	if err != nil {
		switch {
		case errors.Is(err, sechat.ErrRoomNotFound):
			if j.IfRoomDoesNotExist != nil {
				return j.IfRoomDoesNotExist()
			}
			return nil
		case errors.Is(err, sechat.ErrRoomPermission), errors.Is(err, sechat.ErrPrivateRoom):
			if j.IfLackingPermissionToPost != nil {
				return j.IfLackingPermissionToPost()
			}
			return nil
		default:
			return e.joinError(j, err)
		}
	}
	if !r.CanPost() {
		// Read-only membership is useless to the bot; back out again.
		if lerr := e.leave(j.RoomID); lerr != nil {
			logger.Warn("leave_after_join_failed", "room_id", j.RoomID, "error", lerr)
		}
		if j.IfLackingPermissionToPost != nil {
			return j.IfLackingPermissionToPost()
		}
		return nil
	}
	if j.OnSuccess != nil {
		return j.OnSuccess()
	}
	return nil
}

func (e *Engine) joinError(j sechat.JoinRoom, err error) []sechat.Action {
	if j.OnError != nil {
		return j.OnError(err)
	}
	logger.Warn("join_failed", "room_id", j.RoomID, "error", err)
	return nil
}

func (e *Engine) execLeave(l sechat.LeaveRoom) []sechat.Action {
	if err := e.leave(l.RoomID); err != nil {
		logger.Warn("leave_failed", "room_id", l.RoomID, "error", err)
	}
	return nil
}

func (e *Engine) execShutdown(s sechat.Shutdown) []sechat.Action {
	if s.Farewell != "" {
		for _, r := range e.client.Rooms() {
			if e.quiet(r.ID()) {
				continue
			}
			if _, err := r.SendWith(e.ctx, s.Farewell, sechat.SplitNone); err != nil {
				logger.Warn("farewell_failed", "room_id", r.ID(), "error", err)
			}
		}
	}
	e.Stop()
	return nil
}
