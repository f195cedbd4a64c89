package scheduler

import (
	"regexp"

	"github.com/luciancaetano/sechat"
	"github.com/luciancaetano/sechat/internal/logger"
)

// replyMarker is the service's reply reference: a message starting with
// ":<id> " renders as a native reply to that message.
var replyMarker = regexp.MustCompile(`^:\d+ `)

// handleEcho resolves a bot-authored message event against the awaiting
// tracker. Once the service has echoed a tracked post back, the engine
// knows whether it oneboxed and can arm the condense timer.
func (e *Engine) handleEcho(msg *sechat.ChatMessage) {
	rec, ok := e.awaitingEcho[msg.ID]
	if !ok {
		return
	}
	for _, id := range rec.messageIDs {
		delete(e.awaitingEcho, id)
	}
	if e.cfg.HideOneboxAfter <= 0 {
		return
	}
	onebox := msg.Content != nil && msg.Content.Onebox
	if !onebox && rec.condensed == "" && !rec.ephemeral {
		return
	}
	// The clock started at send time, not echo time; an echo that arrives
	// late eats into the visible window.
	delay := e.cfg.HideOneboxAfter - e.now().Sub(rec.posted)
	if delay < 0 {
		delay = 0
	}
	e.timers.Schedule(delay, &Chore{Kind: ChoreCondenseMessage, Condense: rec})
	logger.Debug("condense_armed", "post", rec.id, "room_id", rec.roomID, "delay", delay)
}

// condense performs the hide transition for one tracked post: ephemeral
// posts are deleted outright, others are edited down to their condensed
// form with any extra split parts removed.
func (e *Engine) condense(rec *postedMessage) {
	if rec == nil || len(rec.messageIDs) == 0 {
		return
	}
	if rec.ephemeral {
		for _, id := range rec.messageIDs {
			if err := e.client.DeleteMessage(e.ctx, rec.roomID, id); err != nil {
				logger.Warn("ephemeral_delete_failed", "post", rec.id, "room_id", rec.roomID, "message_id", id, "error", err)
			}
		}
		return
	}
	r, ok := e.client.Room(rec.roomID)
	if !ok {
		return
	}
	text := rec.condensed
	if text == "" {
		text = rec.original
	}
	text = carryReplyMarker(rec.original, text)
	if err := r.Edit(e.ctx, rec.messageIDs[0], text); err != nil {
		logger.Warn("condense_edit_failed", "post", rec.id, "room_id", rec.roomID, "message_id", rec.messageIDs[0], "error", err)
	}
	for _, id := range rec.messageIDs[1:] {
		if err := r.Delete(e.ctx, id); err != nil {
			logger.Warn("condense_delete_failed", "post", rec.id, "room_id", rec.roomID, "message_id", id, "error", err)
		}
	}
}

// carryReplyMarker preserves the original post's leading reply reference
// on the condensed text, so the edit stays attached to the conversation.
func carryReplyMarker(original, text string) string {
	m := replyMarker.FindString(original)
	if m == "" || replyMarker.MatchString(text) {
		return text
	}
	return m + text
}
