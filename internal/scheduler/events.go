package scheduler

import (
	"github.com/luciancaetano/sechat"
	"github.com/luciancaetano/sechat/internal/logger"
)

// handleChatEvent runs the inbound filter chain and fans a qualifying
// message out to the registered listeners. Drops are silent beyond debug
// logging; the protocol layer already counted the event as dispatched.
func (e *Engine) handleChatEvent(ev *sechat.Event) {
	if ev == nil {
		return
	}
	switch ev.Kind {
	case sechat.Invitation:
		e.handleInvitation(ev)
		return
	case sechat.MessagePosted, sechat.MessageEdited:
	default:
		// Presence, stars and moves update nothing at the engine level.
		return
	}
	msg := ev.Message
	if msg == nil || msg.Content == nil {
		return
	}
	if msg.UserID == e.client.UserID() {
		e.handleEcho(msg)
		return
	}
	if e.timeoutActive() && !e.IsAdmin(msg.UserID) {
		logger.Debug("message_dropped_timeout", "user_id", msg.UserID, "room_id", msg.RoomID)
		return
	}
	if len(e.cfg.AllowList) > 0 && !containsID(e.cfg.AllowList, msg.UserID) {
		return
	}
	if containsID(e.cfg.Banned, msg.UserID) {
		logger.Debug("message_dropped_banned", "user_id", msg.UserID, "room_id", msg.RoomID)
		return
	}
	if !e.InRoom(msg.RoomID) {
		return
	}
	e.lastActivity[msg.RoomID] = e.now()

	var actions []sechat.Action
	for _, l := range e.listeners {
		actions = append(actions, e.invokeListener(l, msg)...)
	}
	e.executeActions(actions)
}

// invokeListener isolates one listener: a panic is logged and yields no
// actions, leaving the remaining listeners unaffected.
func (e *Engine) invokeListener(l sechat.Listener, msg *sechat.ChatMessage) (actions []sechat.Action) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("listener_panicked", "panic", r, "message_id", msg.ID, "room_id", msg.RoomID)
			actions = nil
		}
	}()
	return l.OnMessage(msg, e)
}

// handleInvitation auto-joins the inviting room when the bot is not
// already in it and the room cap allows another join.
func (e *Engine) handleInvitation(ev *sechat.Event) {
	if e.InRoom(ev.RoomID) {
		return
	}
	if len(e.client.Rooms()) >= e.cfg.MaxRooms {
		logger.Info("invitation_ignored_cap", "room_id", ev.RoomID, "max_rooms", e.cfg.MaxRooms)
		return
	}
	if _, err := e.join(ev.RoomID); err != nil {
		logger.Warn("invitation_join_failed", "room_id", ev.RoomID, "error", err)
		return
	}
	logger.Info("invitation_accepted", "room_id", ev.RoomID, "inviter_id", ev.UserID)
}

// runScheduledTask executes one periodic task run and re-arms its timer;
// the task perpetuates itself for the lifetime of the process.
func (e *Engine) runScheduledTask(task sechat.ScheduledTask) {
	func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("scheduled_task_panicked", "panic", r)
			}
		}()
		task.Run(e)
	}()
	e.timers.Schedule(task.NextRun(), &Chore{Kind: ChoreScheduledTaskRun, Task: task})
}
