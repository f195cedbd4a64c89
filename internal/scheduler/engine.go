package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/luciancaetano/sechat"
	"github.com/luciancaetano/sechat/internal/logger"
	"github.com/luciancaetano/sechat/internal/telemetry"
)

// Config carries the engine's behavioral knobs. The facade package builds
// it from the user-facing configuration.
type Config struct {
	Trigger    string
	UserName   string
	Rooms      []int64
	HomeRooms  []int64
	QuietRooms []int64
	Admins     []int64
	Banned     []int64
	AllowList  []int64
	MaxRooms   int

	// HideOneboxAfter is how long oneboxed (and condensed or ephemeral)
	// posts stay up before the condense lifecycle kicks in. Zero disables
	// the lifecycle entirely.
	HideOneboxAfter time.Duration
}

var _ sechat.Bot = (*Engine)(nil)

// Engine is the bot's single-consumer scheduler. All engine state below
// the queue and timer service is confined to the goroutine running Loop;
// collaborators run on that goroutine and may therefore call the Bot
// surface without synchronization.
type Engine struct {
	cfg    Config
	queue  *Queue
	timers *TimerService
	client ChatClient
	store  sechat.Store
	ctx    context.Context
	cancel context.CancelFunc

	listeners       []sechat.Listener
	tasks           []sechat.ScheduledTask
	inactivityTasks []sechat.InactivityTask
	filters         []sechat.ResponseFilter

	// Scheduler-goroutine confined from here down.
	lastActivity     map[int64]time.Time
	awaitingEcho     map[int64]*postedMessage
	inactivityStates map[int64][]*inactivityState
	timeoutUntil     time.Time
	userName         string

	now func() time.Time
}

// Option customizes a new engine.
type Option func(e *Engine)

// WithListener registers a chat-event collaborator.
func WithListener(l sechat.Listener) Option {
	return func(e *Engine) { e.listeners = append(e.listeners, l) }
}

// WithScheduledTask registers a periodic collaborator.
func WithScheduledTask(t sechat.ScheduledTask) Option {
	return func(e *Engine) { e.tasks = append(e.tasks, t) }
}

// WithInactivityTask registers a room-silence collaborator.
func WithInactivityTask(t sechat.InactivityTask) Option {
	return func(e *Engine) { e.inactivityTasks = append(e.inactivityTasks, t) }
}

// WithResponseFilter registers an outbound text filter.
func WithResponseFilter(f sechat.ResponseFilter) Option {
	return func(e *Engine) { e.filters = append(e.filters, f) }
}

// withClock overrides the engine clock; tests only.
func withClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New assembles an engine around an authenticated chat client and a store.
func New(client ChatClient, store sechat.Store, cfg Config, opts ...Option) *Engine {
	if cfg.MaxRooms <= 0 {
		cfg.MaxRooms = sechat.DefaultMaxRooms
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := NewQueue()
	e := &Engine{
		cfg:              cfg,
		queue:            q,
		timers:           NewTimerService(q),
		client:           client,
		store:            store,
		ctx:              ctx,
		cancel:           cancel,
		userName:         cfg.UserName,
		lastActivity:     make(map[int64]time.Time),
		awaitingEcho:     make(map[int64]*postedMessage),
		inactivityStates: make(map[int64][]*inactivityState),
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start joins the configured rooms and arms the periodic tasks. It must be
// called before Loop, on the goroutine that will run Loop.
func (e *Engine) Start() error {
	for _, id := range e.cfg.Rooms {
		if _, err := e.join(id); err != nil {
			return fmt.Errorf("join room %d: %w", id, err)
		}
	}
	for _, task := range e.tasks {
		e.timers.Schedule(task.NextRun(), &Chore{Kind: ChoreScheduledTaskRun, Task: task})
	}
	return nil
}

// Loop drains the queue until a Stop or Finish chore is consumed, then
// tears the bot down. It always returns nil; fatal conditions surface as
// a Stop chore plus logging so teardown runs exactly once.
func (e *Engine) Loop() error {
	defer e.teardown()
	for {
		c := e.queue.Pop()
		if c.Kind == ChoreStop || c.Kind == ChoreFinish {
			logger.Info("scheduler_stopping", "chore", c.Kind.String(), "queued", e.queue.Len())
			return nil
		}
		e.runChore(c)
		if err := e.store.Commit(); err != nil {
			logger.Error("store_commit_failed", "error", err)
		}
	}
}

// Stop requests immediate termination: the Stop chore jumps ahead of all
// queued work. Safe to call from any goroutine.
func (e *Engine) Stop() {
	e.queue.Push(&Chore{Kind: ChoreStop})
}

// Drain requests termination after all currently queued work completes.
// Safe to call from any goroutine.
func (e *Engine) Drain() {
	e.queue.Push(&Chore{Kind: ChoreFinish})
}

func (e *Engine) teardown() {
	e.cancel()
	if err := e.client.Close(context.Background()); err != nil {
		logger.Warn("chat_close_failed", "error", err)
	}
	e.timers.Stop()
	if err := e.store.Commit(); err != nil {
		logger.Error("store_commit_failed", "error", err)
	}
	logger.Info("scheduler_stopped")
}

// runChore executes one chore with panic isolation; a panicking chore is
// logged and counted but never takes the loop down.
func (e *Engine) runChore(c *Chore) {
	defer func() {
		if r := recover(); r != nil {
			telemetry.ChoreFailures.WithLabelValues(c.Kind.String()).Inc()
			logger.Error("chore_panicked", "chore", c.Kind.String(), "panic", r)
		}
	}()
	telemetry.ChoresProcessed.WithLabelValues(c.Kind.String()).Inc()
	switch c.Kind {
	case ChoreChatEvent:
		e.handleChatEvent(c.Event)
	case ChoreScheduledTaskRun:
		e.runScheduledTask(c.Task)
	case ChoreInactivityCheck:
		e.runInactivityCheck(c.Inactivity)
	case ChoreDelayedMessage:
		e.executeActions([]sechat.Action{*c.Post})
	case ChoreCondenseMessage:
		e.condense(c.Condense)
	}
}

// join is the one path through which rooms are entered: it hooks the
// room's event stream into the queue and arms inactivity bookkeeping.
func (e *Engine) join(roomID int64) (ChatRoom, error) {
	if r, ok := e.client.Room(roomID); ok {
		return r, nil
	}
	r, err := e.client.JoinRoom(e.ctx, roomID)
	if err != nil {
		return nil, err
	}
	r.OnEvent(func(ev sechat.Event) {
		e.queue.Push(&Chore{Kind: ChoreChatEvent, Event: &ev})
	})
	e.lastActivity[roomID] = e.now()
	e.armInactivityForRoom(roomID)
	logger.Info("room_joined", "room_id", roomID, "can_post", r.CanPost())
	return r, nil
}

func (e *Engine) leave(roomID int64) error {
	for _, st := range e.inactivityStates[roomID] {
		st.handle.Cancel()
	}
	delete(e.inactivityStates, roomID)
	delete(e.lastActivity, roomID)
	return e.client.LeaveRoom(e.ctx, roomID)
}

// Trigger implements sechat.Bot.
func (e *Engine) Trigger() string {
	return e.cfg.Trigger
}

// UserID implements sechat.Bot.
func (e *Engine) UserID() int64 {
	return e.client.UserID()
}

// UserName implements sechat.Bot.
func (e *Engine) UserName() string {
	return e.userName
}

// SetUserName records the resolved display name. Called by the facade
// before the loop starts.
func (e *Engine) SetUserName(name string) {
	e.userName = name
}

// Rooms implements sechat.Bot.
func (e *Engine) Rooms() []int64 {
	rooms := e.client.Rooms()
	ids := make([]int64, len(rooms))
	for i, r := range rooms {
		ids[i] = r.ID()
	}
	return ids
}

// HomeRooms implements sechat.Bot.
func (e *Engine) HomeRooms() []int64 {
	return append([]int64(nil), e.cfg.HomeRooms...)
}

// QuietRooms implements sechat.Bot.
func (e *Engine) QuietRooms() []int64 {
	return append([]int64(nil), e.cfg.QuietRooms...)
}

// InRoom implements sechat.Bot.
func (e *Engine) InRoom(roomID int64) bool {
	_, ok := e.client.Room(roomID)
	return ok
}

// JoinRoom implements sechat.Bot.
func (e *Engine) JoinRoom(roomID int64) error {
	if !e.InRoom(roomID) && len(e.client.Rooms()) >= e.cfg.MaxRooms {
		return fmt.Errorf("room cap reached (%d)", e.cfg.MaxRooms)
	}
	_, err := e.join(roomID)
	return err
}

// LeaveRoom implements sechat.Bot.
func (e *Engine) LeaveRoom(roomID int64) error {
	return e.leave(roomID)
}

// LatestMessages implements sechat.Bot.
func (e *Engine) LatestMessages(roomID int64, n int) ([]*sechat.ChatMessage, error) {
	r, ok := e.client.Room(roomID)
	if !ok {
		return nil, sechat.ErrRoomNotFound
	}
	return r.Messages(e.ctx, n)
}

// Send implements sechat.Bot.
func (e *Engine) Send(roomID int64, text string) error {
	r, ok := e.client.Room(roomID)
	if !ok {
		return sechat.ErrRoomNotFound
	}
	e.postTo(r, sechat.PostMessage{RoomID: roomID, Text: text})
	return nil
}

// Broadcast implements sechat.Bot.
func (e *Engine) Broadcast(text string) error {
	for _, r := range e.client.Rooms() {
		if e.quiet(r.ID()) {
			continue
		}
		e.postTo(r, sechat.PostMessage{RoomID: r.ID(), Text: text})
	}
	return nil
}

// SetTimeout implements sechat.Bot.
func (e *Engine) SetTimeout(d time.Duration) {
	e.timeoutUntil = e.now().Add(d)
	logger.Info("timeout_set", "until", e.timeoutUntil)
}

// CancelTimeout implements sechat.Bot.
func (e *Engine) CancelTimeout() {
	e.timeoutUntil = time.Time{}
}

func (e *Engine) timeoutActive() bool {
	return e.now().Before(e.timeoutUntil)
}

// Admins implements sechat.Bot.
func (e *Engine) Admins() []int64 {
	return append([]int64(nil), e.cfg.Admins...)
}

// IsAdmin implements sechat.Bot.
func (e *Engine) IsAdmin(userID int64) bool {
	return containsID(e.cfg.Admins, userID)
}

// MaxRooms implements sechat.Bot.
func (e *Engine) MaxRooms() int {
	return e.cfg.MaxRooms
}

func (e *Engine) quiet(roomID int64) bool {
	return containsID(e.cfg.QuietRooms, roomID)
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
