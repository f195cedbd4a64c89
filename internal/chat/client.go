// Package chat implements the protocol/session layer: room join with fkey
// scraping, the ws-auth socket handshake, frame-to-event reconstruction and
// the send/edit/delete/query operations, all issued through the rate-limited
// request layer.
package chat

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	"golang.org/x/time/rate"

	"github.com/luciancaetano/sechat"
	"github.com/luciancaetano/sechat/internal/logger"
	"github.com/luciancaetano/sechat/internal/request"
)

// Client owns the set of joined room sessions and the shared HTTP state
// (cookie jar, rate-limited transport).
type Client struct {
	chatBase string // e.g. https://chat.stackexchange.com
	siteBase string // e.g. https://stackexchange.com

	req        *request.Client
	noRedirect *request.Client

	maxLen int
	split  sechat.SplitStrategy

	mu     sync.Mutex
	rooms  map[int64]*Room
	userID int64
	closed bool
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURLs overrides the derived chat and site base URLs. Tests point
// these at local servers.
func WithBaseURLs(chatBase, siteBase string) Option {
	return func(c *Client) {
		c.chatBase = chatBase
		c.siteBase = siteBase
	}
}

// WithMaxMessageLength overrides the single-line length cap.
func WithMaxMessageLength(n int) Option {
	return func(c *Client) {
		c.maxLen = n
	}
}

// WithSplitStrategy sets the strategy applied to over-long messages.
func WithSplitStrategy(s sechat.SplitStrategy) Option {
	return func(c *Client) {
		c.split = s
	}
}

// WithLimiter replaces the outbound request pacing on both HTTP clients.
// Tests use an infinite limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.req.SetLimiter(l)
		c.noRedirect.SetLimiter(l)
	}
}

// New creates a client for the chat service of the given site domain. The
// chat host is derived as chat.<domain>.
func New(domain string, opts ...Option) *Client {
	jar, _ := cookiejar.New(nil)
	hc := &http.Client{Jar: jar}
	// Login flows need to observe the redirect status itself.
	noRedir := &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	c := &Client{
		chatBase:   "https://chat." + domain,
		siteBase:   "https://" + domain,
		req:        request.New(hc),
		noRedirect: request.New(noRedir),
		maxLen:     sechat.DefaultMaxMessageLength,
		split:      sechat.SplitWord,
		rooms:      make(map[int64]*Room),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login runs the pluggable site-auth strategy.
func (c *Client) Login(ctx context.Context, auth Authenticator) error {
	return auth.Login(ctx, c)
}

// UserID returns the logged-in chat user id, known after the first join.
func (c *Client) UserID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// JoinRoom joins the room, establishing the session fkey, the can-post flag
// and the event socket. It is idempotent: a second call for a joined room
// returns the existing session without re-issuing any network calls.
func (c *Client) JoinRoom(ctx context.Context, roomID int64) (*Room, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("join room %d: %w", roomID, sechat.ErrShutdown)
	}
	if r, ok := c.rooms[roomID]; ok {
		return r, nil
	}

	r, err := c.join(ctx, roomID)
	if err != nil {
		return nil, err
	}
	c.rooms[roomID] = r
	if c.userID == 0 {
		c.userID = r.selfID
	}
	return r, nil
}

// Room returns the session for a joined room.
func (c *Client) Room(roomID int64) (*Room, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.rooms[roomID]
	return r, ok
}

// Rooms returns every joined session.
func (c *Client) Rooms() []*Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Room, 0, len(c.rooms))
	for _, r := range c.rooms {
		out = append(out, r)
	}
	return out
}

// LeaveRoom leaves the room and discards its session. Leaving a room that
// is not joined is a no-op.
func (c *Client) LeaveRoom(ctx context.Context, roomID int64) error {
	c.mu.Lock()
	r, ok := c.rooms[roomID]
	delete(c.rooms, roomID)
	c.mu.Unlock()
	if !ok {
		return nil
	}
	return r.Leave(ctx)
}

// Close tears the client down: a best-effort leave-all notification using
// any room's fkey, then every socket is closed, the room map cleared and
// the transports' idle connections released. Partial failures are logged,
// never propagated.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	rooms := make([]*Room, 0, len(c.rooms))
	for _, r := range c.rooms {
		rooms = append(rooms, r)
	}
	c.rooms = make(map[int64]*Room)
	c.mu.Unlock()

	if len(rooms) > 0 {
		form := url.Values{"fkey": {rooms[0].fkey}, "quiet": {"true"}}
		resp, err := c.req.PostForm(ctx, c.chatBase+"/chats/leave/all", form)
		if err != nil {
			logger.Warn("leave_all_failed", "error", err)
		} else {
			resp.Body.Close()
		}
	}
	for _, r := range rooms {
		r.closeSocket()
	}
	c.req.Close()
	c.noRedirect.Close()
	logger.Info("chat_client_closed", "rooms", len(rooms))
	return nil
}

// join performs the network half of JoinRoom: fetch the room page, scrape
// fkey and can-post, learn the latest message time and open the socket.
func (c *Client) join(ctx context.Context, roomID int64) (*Room, error) {
	resp, err := c.req.Get(ctx, fmt.Sprintf("%s/rooms/%d", c.chatBase, roomID))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("join room %d: %w", roomID, sechat.ErrRoomNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("join room %d: unexpected status %d", roomID, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("join room %d: %w", roomID, err)
	}
	page := string(body)

	fkey, err := scrapeFkey(page)
	if err != nil {
		return nil, fmt.Errorf("join room %d: %w", roomID, err)
	}

	r := &Room{
		id:      roomID,
		fkey:    fkey,
		canPost: scrapeCanPost(page),
		selfID:  scrapeCurrentUserID(page),
		c:       c,
		byKind:  make(map[sechat.EventKind][]EventListener),
	}
	r.loadLatest(ctx)
	if err := r.openSocket(ctx); err != nil {
		return nil, fmt.Errorf("join room %d: %w", roomID, err)
	}
	logger.Info("room_joined", "room_id", roomID, "can_post", r.canPost)
	return r, nil
}

// DeleteMessage deletes by message id using any joined room's session; the
// operation only needs a session fkey. When roomID is non-zero that room's
// session is preferred.
func (c *Client) DeleteMessage(ctx context.Context, roomID, messageID int64) error {
	r, err := c.anyRoom(roomID)
	if err != nil {
		return err
	}
	return r.Delete(ctx, messageID)
}

func (c *Client) anyRoom(roomID int64) (*Room, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if roomID != 0 {
		if r, ok := c.rooms[roomID]; ok {
			return r, nil
		}
	}
	for _, r := range c.rooms {
		return r, nil
	}
	return nil, fmt.Errorf("%s", sechat.ErrMsgNotInRoom)
}
