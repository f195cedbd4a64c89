package scheduler

import (
	"time"

	"github.com/luciancaetano/sechat"
	"github.com/luciancaetano/sechat/internal/logger"
)

// maxInactivityWarnings caps how many times a task warns about the same
// room before the engine gives up on it until the room sees activity via
// a rejoin.
const maxInactivityWarnings = 3

// inactivityState is the per-room, per-task bookkeeping for silence
// monitoring. It lives on the scheduler goroutine only.
type inactivityState struct {
	task   sechat.InactivityTask
	roomID int64

	warned    bool
	warnedAt  time.Time
	warnCount int

	handle *Handle
}

// armInactivityForRoom starts one monitor per applicable task when a room
// is joined.
func (e *Engine) armInactivityForRoom(roomID int64) {
	for _, task := range e.inactivityTasks {
		d, ok := task.InactivityTime(roomID, e)
		if !ok {
			continue
		}
		st := &inactivityState{task: task, roomID: roomID}
		e.armInactivity(st, d)
		e.inactivityStates[roomID] = append(e.inactivityStates[roomID], st)
	}
}

func (e *Engine) armInactivity(st *inactivityState, d time.Duration) {
	st.handle = e.timers.Schedule(d, &Chore{Kind: ChoreInactivityCheck, Inactivity: st})
}

// runInactivityCheck evaluates one monitor firing. The state machine:
// activity within the threshold reschedules for the remaining wait (and
// clears any standing warning); crossing the threshold runs the task once
// and opens a grace window of the same length; a grace window that lapses
// either resets the cycle (under the warning cap) or retires the monitor.
func (e *Engine) runInactivityCheck(st *inactivityState) {
	if st == nil || !e.InRoom(st.roomID) {
		e.dropInactivityState(st)
		return
	}
	threshold, ok := st.task.InactivityTime(st.roomID, e)
	if !ok {
		e.dropInactivityState(st)
		return
	}
	now := e.now()
	silent := now.Sub(e.lastActivity[st.roomID])

	switch {
	case silent < threshold:
		st.warned = false
		e.armInactivity(st, threshold-silent)
	case !st.warned:
		st.warned = true
		st.warnedAt = now
		e.runInactivityTask(st)
		e.armInactivity(st, threshold)
	case now.Sub(st.warnedAt) >= threshold:
		if st.warnCount < maxInactivityWarnings {
			st.warnCount++
			st.warned = false
			e.armInactivity(st, threshold)
		} else {
			logger.Info("inactivity_monitor_retired", "room_id", st.roomID, "warn_count", st.warnCount)
			e.dropInactivityState(st)
		}
	default:
		e.armInactivity(st, threshold-now.Sub(st.warnedAt))
	}
}

func (e *Engine) runInactivityTask(st *inactivityState) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("inactivity_task_panicked", "panic", r, "room_id", st.roomID)
		}
	}()
	st.task.Run(st.roomID, e)
}

func (e *Engine) dropInactivityState(st *inactivityState) {
	if st == nil {
		return
	}
	st.handle.Cancel()
	states := e.inactivityStates[st.roomID]
	for i, s := range states {
		if s == st {
			e.inactivityStates[st.roomID] = append(states[:i], states[i+1:]...)
			break
		}
	}
	if len(e.inactivityStates[st.roomID]) == 0 {
		delete(e.inactivityStates, st.roomID)
	}
}
