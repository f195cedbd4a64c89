// Package scheduler is the bot engine: a single consumer goroutine drains
// an unbounded priority queue of chores, so chat-event handling, scheduled
// tasks, inactivity checks, delayed posts and condense timers are all
// totally ordered and share state without locks.
package scheduler

import (
	"time"

	"github.com/luciancaetano/sechat"
)

// ChoreKind identifies one unit of scheduler work.
type ChoreKind int

const (
	// ChoreChatEvent carries one reconstructed room event.
	ChoreChatEvent ChoreKind = iota
	// ChoreScheduledTaskRun executes a scheduled task and re-arms it.
	ChoreScheduledTaskRun
	// ChoreInactivityCheck evaluates a room's silence duration.
	ChoreInactivityCheck
	// ChoreDelayedMessage fires a previously deferred post.
	ChoreDelayedMessage
	// ChoreCondenseMessage resolves a tracked post's condense lifecycle.
	ChoreCondenseMessage
	// ChoreStop terminates the loop ahead of all queued work.
	ChoreStop
	// ChoreFinish terminates the loop after draining queued work.
	ChoreFinish
)

var choreKindNames = map[ChoreKind]string{
	ChoreChatEvent:        "chat_event",
	ChoreScheduledTaskRun: "scheduled_task",
	ChoreInactivityCheck:  "inactivity_check",
	ChoreDelayedMessage:   "delayed_message",
	ChoreCondenseMessage:  "condense_message",
	ChoreStop:             "stop",
	ChoreFinish:           "finish",
}

func (k ChoreKind) String() string {
	if s, ok := choreKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// class is the ordering class: Stop jumps the queue, condense chores sort
// above Stop, and everything else (Finish included) is pure FIFO.
func (k ChoreKind) class() int {
	switch k {
	case ChoreStop:
		return 0
	case ChoreCondenseMessage:
		return 1
	default:
		return 2
	}
}

// Chore is one unit of scheduler work. Kind selects the populated payload
// field. A chore is consumed exactly once by the scheduler goroutine and
// never mutated after enqueue.
type Chore struct {
	Kind ChoreKind

	// seq is the insertion order, assigned by the queue; it is the
	// tie-break within an ordering class.
	seq uint64

	Event      *sechat.Event
	Task       sechat.ScheduledTask
	Inactivity *inactivityState
	Post       *sechat.PostMessage
	Condense   *postedMessage
}

// postedMessage tracks one bot post from send until the service echoes it
// back, and through the condense lifecycle afterwards.
type postedMessage struct {
	id        string
	posted    time.Time
	original  string
	condensed string
	ephemeral bool
	roomID    int64

	// messageIDs lists every wire part; a long message may have been
	// split into several.
	messageIDs []int64
}
