package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/luciancaetano/sechat"
	"github.com/luciancaetano/sechat/internal/logger"
	"github.com/luciancaetano/sechat/internal/wire"
)

// EventListener receives one reconstructed event. Listeners registered on a
// room must only enqueue; all real work happens on the scheduler goroutine.
type EventListener func(ev sechat.Event)

// Room is one per-room protocol session. The fkey never changes after the
// first fetch; the session is usable once fkey and canPost are established.
type Room struct {
	id      int64
	fkey    string
	canPost bool
	selfID  int64

	c    *Client
	conn *websocket.Conn

	// latest is the epoch-second timestamp of the newest known message,
	// sent on the socket URL so the service replays nothing older.
	latest atomic.Int64

	lmu      sync.Mutex
	catchAll []EventListener
	byKind   map[sechat.EventKind][]EventListener

	closeOnce sync.Once
	closed    atomic.Bool
}

// ID returns the room id.
func (r *Room) ID() int64 {
	return r.id
}

// CanPost reports whether the logged-in user may post in the room.
func (r *Room) CanPost() bool {
	return r.canPost
}

// OnEvent registers a catch-all listener. Catch-all listeners are invoked
// before per-kind listeners for every reconstructed event.
func (r *Room) OnEvent(fn EventListener) {
	r.lmu.Lock()
	defer r.lmu.Unlock()
	r.catchAll = append(r.catchAll, fn)
}

// OnEventKind registers a listener for one event kind.
func (r *Room) OnEventKind(kind sechat.EventKind, fn EventListener) {
	r.lmu.Lock()
	defer r.lmu.Unlock()
	r.byKind[kind] = append(r.byKind[kind], fn)
}

// Send posts text to the room and returns one message id per wire part.
// Text containing a literal newline is sent verbatim with no length cap;
// anything else is split per the client's strategy.
func (r *Room) Send(ctx context.Context, text string) ([]int64, error) {
	return r.SendWith(ctx, text, r.c.split)
}

// SendWith posts text using an explicit split strategy.
func (r *Room) SendWith(ctx context.Context, text string, strategy sechat.SplitStrategy) ([]int64, error) {
	if !r.canPost {
		return nil, fmt.Errorf("send to room %d: %w", r.id, sechat.ErrRoomPermission)
	}

	parts := []string{text}
	if !strings.Contains(text, "\n") {
		parts = sechat.Split(text, r.c.maxLen, strategy)
	}

	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		form := url.Values{"text": {part}, "fkey": {r.fkey}}
		resp, err := r.c.req.PostForm(ctx, fmt.Sprintf("%s/chats/%d/messages/new", r.c.chatBase, r.id), form)
		if err != nil {
			return ids, err
		}
		var posted struct {
			ID int64 `json:"id"`
		}
		err = json.NewDecoder(resp.Body).Decode(&posted)
		resp.Body.Close()
		if err != nil {
			return ids, fmt.Errorf("send to room %d: %w", r.id, err)
		}
		ids = append(ids, posted.ID)
	}
	return ids, nil
}

// Edit replaces a message's content. Known literal service responses map to
// typed outcomes; anything unexpected is logged, not fatal.
func (r *Room) Edit(ctx context.Context, messageID int64, text string) error {
	form := url.Values{"text": {text}, "fkey": {r.fkey}}
	resp, err := r.c.req.PostForm(ctx, fmt.Sprintf("%s/messages/%d", r.c.chatBase, messageID), form)
	if err != nil {
		return err
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return mapWriteResponse("edit", messageID, string(body))
}

// Delete removes a message.
func (r *Room) Delete(ctx context.Context, messageID int64) error {
	form := url.Values{"fkey": {r.fkey}}
	resp, err := r.c.req.PostForm(ctx, fmt.Sprintf("%s/messages/%d/delete", r.c.chatBase, messageID), form)
	if err != nil {
		return err
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return mapWriteResponse("delete", messageID, string(body))
}

// Messages returns up to n of the room's most recent messages, oldest first.
func (r *Room) Messages(ctx context.Context, n int) ([]*sechat.ChatMessage, error) {
	form := url.Values{
		"since":    {"0"},
		"mode":     {"Messages"},
		"msgCount": {strconv.Itoa(n)},
		"fkey":     {r.fkey},
	}
	resp, err := r.c.req.PostForm(ctx, fmt.Sprintf("%s/chats/%d/events", r.c.chatBase, r.id), form)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("events for room %d: %w", r.id, sechat.ErrRoomNotFound)
	}
	var payload struct {
		Events []wire.RawEvent `json:"events"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("events for room %d: %w", r.id, err)
	}

	msgs := make([]*sechat.ChatMessage, 0, len(payload.Events))
	for i := range payload.Events {
		msgs = append(msgs, payload.Events[i].Message())
	}
	return msgs, nil
}

// UserInfo fetches one user's profile as seen from this room.
func (r *Room) UserInfo(ctx context.Context, userID int64) (*sechat.User, error) {
	form := url.Values{
		"ids":    {strconv.FormatInt(userID, 10)},
		"roomId": {strconv.FormatInt(r.id, 10)},
	}
	resp, err := r.c.req.PostForm(ctx, r.c.chatBase+"/user/info", form)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("user info for %d: not found", userID)
	}
	var payload struct {
		Users []struct {
			ID          int64  `json:"id"`
			Name        string `json:"name"`
			Reputation  int    `json:"reputation"`
			IsModerator bool   `json:"is_moderator"`
			LastSeen    int64  `json:"last_seen"`
			LastPost    int64  `json:"last_post"`
		} `json:"users"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("user info for %d: %w", userID, err)
	}
	if len(payload.Users) == 0 {
		return nil, fmt.Errorf("user info for %d: empty result", userID)
	}
	u := payload.Users[0]
	return &sechat.User{
		ID:          u.ID,
		Name:        u.Name,
		Reputation:  u.Reputation,
		IsModerator: u.IsModerator,
		LastSeen:    time.Unix(u.LastSeen, 0),
		LastPost:    time.Unix(u.LastPost, 0),
	}, nil
}

// PingableUsers lists the users currently pingable in the room.
func (r *Room) PingableUsers(ctx context.Context) ([]sechat.User, error) {
	resp, err := r.c.req.Get(ctx, fmt.Sprintf("%s/rooms/pingable/%d", r.c.chatBase, r.id))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("pingable users for room %d: %w", r.id, sechat.ErrRoomNotFound)
	}
	// The service answers with positional arrays: [id, name, ...].
	var rows [][]any
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("pingable users for room %d: %w", r.id, err)
	}
	users := make([]sechat.User, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		id, _ := row[0].(float64)
		name, _ := row[1].(string)
		users = append(users, sechat.User{ID: int64(id), Name: name})
	}
	return users, nil
}

// Info fetches the room's thumbnail description.
func (r *Room) Info(ctx context.Context) (*sechat.RoomInfo, error) {
	resp, err := r.c.req.Get(ctx, fmt.Sprintf("%s/rooms/thumbs/%d", r.c.chatBase, r.id))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("room info for %d: %w", r.id, sechat.ErrRoomNotFound)
	}
	var payload struct {
		ID          int64  `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
		UserCount   int    `json:"usercount"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("room info for %d: %w", r.id, err)
	}
	return &sechat.RoomInfo{
		ID:          payload.ID,
		Name:        payload.Name,
		Description: payload.Description,
		Users:       payload.UserCount,
	}, nil
}

// Leave is idempotent: the service is notified best-effort, then the socket
// is always closed regardless of the notify outcome.
func (r *Room) Leave(ctx context.Context) error {
	r.closeOnce.Do(func() {
		form := url.Values{"fkey": {r.fkey}, "quiet": {"true"}}
		resp, err := r.c.req.PostForm(ctx, fmt.Sprintf("%s/chats/leave/%d", r.c.chatBase, r.id), form)
		if err != nil {
			// Best effort only; the socket still goes down.
			logger.Warn("leave_notify_failed", "room_id", r.id, "error", err)
		} else {
			resp.Body.Close()
		}
		r.closeSocket()
	})
	return nil
}

// loadLatest learns the newest message timestamp so the socket URL can tell
// the service where replay should start. Best effort; zero falls back to
// the current time at dial.
func (r *Room) loadLatest(ctx context.Context) {
	msgs, err := r.Messages(ctx, 1)
	if err != nil || len(msgs) == 0 {
		return
	}
	r.latest.Store(msgs[len(msgs)-1].Posted.Unix())
}
