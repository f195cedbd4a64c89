// Package bot is the public assembly surface: it wires the chat session,
// the persistence backend and the scheduler engine together from a single
// configuration value.
package bot

import (
	"context"
	"fmt"

	"github.com/luciancaetano/sechat"
	"github.com/luciancaetano/sechat/internal/chat"
	"github.com/luciancaetano/sechat/internal/config"
	"github.com/luciancaetano/sechat/internal/logger"
	"github.com/luciancaetano/sechat/internal/scheduler"
	"github.com/luciancaetano/sechat/internal/store"
)

type Config = config.Config
type ChatConfig = config.ChatConfig
type BotConfig = config.BotConfig
type StoreConfig = config.StoreConfig
type Duration = config.Duration
type Authenticator = chat.Authenticator
type FormAuth = chat.FormAuth
type RedirectAuth = chat.RedirectAuth

// LoadConfig reads and validates a YAML configuration file, applying the
// SECHAT_EMAIL and SECHAT_PASSWORD environment overrides.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

type options struct {
	store      sechat.Store
	auth       Authenticator
	engineOpts []scheduler.Option
}

// Option customizes a new bot.
type Option func(*options)

// WithListener registers a chat-event collaborator.
func WithListener(l sechat.Listener) Option {
	return func(o *options) { o.engineOpts = append(o.engineOpts, scheduler.WithListener(l)) }
}

// WithScheduledTask registers a periodic collaborator.
func WithScheduledTask(t sechat.ScheduledTask) Option {
	return func(o *options) { o.engineOpts = append(o.engineOpts, scheduler.WithScheduledTask(t)) }
}

// WithInactivityTask registers a room-silence collaborator.
func WithInactivityTask(t sechat.InactivityTask) Option {
	return func(o *options) { o.engineOpts = append(o.engineOpts, scheduler.WithInactivityTask(t)) }
}

// WithResponseFilter registers an outbound text filter.
func WithResponseFilter(f sechat.ResponseFilter) Option {
	return func(o *options) { o.engineOpts = append(o.engineOpts, scheduler.WithResponseFilter(f)) }
}

// WithStore overrides the configured persistence backend. The caller owns
// the store's lifecycle.
func WithStore(s sechat.Store) Option {
	return func(o *options) { o.store = s }
}

// WithAuthenticator overrides the default redirect-following login
// strategy.
func WithAuthenticator(a Authenticator) Option {
	return func(o *options) { o.auth = a }
}

// Bot owns one configured chat bot from login to teardown.
type Bot struct {
	cfg    *Config
	client *chat.Client
	engine *scheduler.Engine
	auth   Authenticator

	store     sechat.Store
	ownsStore bool
}

// New assembles a bot. Run performs login and starts the scheduler loop.
func New(cfg *Config, opts ...Option) (*Bot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	st := o.store
	ownsStore := false
	if st == nil {
		if cfg.Store.Path != "" {
			pebbleStore, err := store.Open(cfg.Store.Path)
			if err != nil {
				return nil, fmt.Errorf("open store: %w", err)
			}
			st = pebbleStore
			ownsStore = true
		} else {
			st = store.NewMemory()
		}
	}

	auth := o.auth
	if auth == nil {
		auth = RedirectAuth{Email: cfg.Chat.Email, Password: cfg.Chat.Password}
	}

	client := chat.New(cfg.Chat.Domain, chat.WithMaxMessageLength(cfg.Chat.MaxMessageLength))
	engine := scheduler.New(scheduler.AdaptClient(client), st, scheduler.Config{
		Trigger:         cfg.Bot.Trigger,
		Rooms:           cfg.Bot.Rooms,
		HomeRooms:       cfg.Bot.HomeRooms,
		QuietRooms:      cfg.Bot.QuietRooms,
		Admins:          cfg.Bot.Admins,
		Banned:          cfg.Bot.Banned,
		AllowList:       cfg.Bot.AllowList,
		MaxRooms:        cfg.Bot.MaxRooms,
		HideOneboxAfter: cfg.Bot.HideOneboxAfter.Std(),
	}, o.engineOpts...)

	return &Bot{
		cfg:       cfg,
		client:    client,
		engine:    engine,
		auth:      auth,
		store:     st,
		ownsStore: ownsStore,
	}, nil
}

// Run logs in, joins the configured rooms and blocks in the scheduler
// loop until Stop or a Shutdown action terminates it. Canceling ctx stops
// the bot ahead of all queued work.
func (b *Bot) Run(ctx context.Context) error {
	if b.ownsStore {
		defer b.closeStore()
	}

	if err := b.client.Login(ctx, b.auth); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := b.engine.Start(); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	b.resolveUserName(ctx)

	stop := context.AfterFunc(ctx, b.engine.Stop)
	defer stop()

	logger.Info("bot_running", "user_id", b.client.UserID(), "rooms", b.cfg.Bot.Rooms)
	return b.engine.Loop()
}

// Stop terminates the bot ahead of all queued work. Safe from any
// goroutine.
func (b *Bot) Stop() {
	b.engine.Stop()
}

// Drain terminates the bot after all queued work completes. Safe from any
// goroutine.
func (b *Bot) Drain() {
	b.engine.Drain()
}

// resolveUserName fetches the bot's display name through any joined room.
// Best effort: collaborators see an empty name when the lookup fails.
func (b *Bot) resolveUserName(ctx context.Context) {
	for _, r := range b.client.Rooms() {
		u, err := r.UserInfo(ctx, b.client.UserID())
		if err != nil {
			logger.Warn("user_name_lookup_failed", "room_id", r.ID(), "error", err)
			continue
		}
		b.engine.SetUserName(u.Name)
		return
	}
}

func (b *Bot) closeStore() {
	type closer interface{ Close() error }
	if c, ok := b.store.(closer); ok {
		if err := c.Close(); err != nil {
			logger.Warn("store_close_failed", "error", err)
		}
	}
}
