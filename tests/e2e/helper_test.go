package e2e_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/luciancaetano/sechat/internal/chat"
)

const testFkey = "fedcba9876543210fedcba9876543210"

// fakeService is an in-process chat service: room pages, the ws-auth
// handshake, a live websocket the tests push frames through, and the
// message endpoints.
type fakeService struct {
	t   *testing.T
	srv *httptest.Server

	mu    sync.Mutex
	sent  []sentMessage
	edits map[int64]string

	nextID atomic.Int64

	upgrader websocket.Upgrader
	conns    chan *websocket.Conn
}

type sentMessage struct {
	roomID int64
	text   string
}

func newFakeService(t *testing.T) *fakeService {
	f := &fakeService{
		t:     t,
		edits: make(map[int64]string),
		conns: make(chan *websocket.Conn, 4),
	}
	f.nextID.Store(5000)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /rooms/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "404" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `<html><head><script>CHAT.CURRENT_USER_ID = 42;</script></head>
<body><input id="fkey" name="fkey" type="hidden" value=%q><textarea id="input"></textarea></body></html>`, testFkey)
	})
	// "POST /chats/{id}/events" conflicts with "POST /chats/leave/{id}" in
	// ServeMux pattern precedence, so the events route is registered under a
	// wildcard the leave pattern is strictly more specific than.
	mux.HandleFunc("POST /chats/{id}/{action}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("action") != "events" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"events": []}`)
	})
	mux.HandleFunc("POST /ws-auth", func(w http.ResponseWriter, r *http.Request) {
		wsURL := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws-2/0"
		json.NewEncoder(w).Encode(map[string]string{"url": wsURL})
	})
	mux.HandleFunc("GET /ws-2/{id}", func(w http.ResponseWriter, r *http.Request) {
		conn, err := f.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		f.conns <- conn
	})
	mux.HandleFunc("POST /chats/{id}/messages/new", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		var roomID int64
		fmt.Sscanf(r.PathValue("id"), "%d", &roomID)
		f.mu.Lock()
		f.sent = append(f.sent, sentMessage{roomID: roomID, text: r.PostForm.Get("text")})
		f.mu.Unlock()
		fmt.Fprintf(w, `{"id": %d}`, f.nextID.Add(1))
	})
	mux.HandleFunc("POST /messages/{id}/delete", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `"ok"`)
	})
	mux.HandleFunc("POST /messages/{id}", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		var id int64
		fmt.Sscanf(r.PathValue("id"), "%d", &id)
		f.mu.Lock()
		f.edits[id] = r.PostForm.Get("text")
		f.mu.Unlock()
		fmt.Fprint(w, `"ok"`)
	})
	mux.HandleFunc("POST /chats/leave/{id}", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `"ok"`)
	})
	mux.HandleFunc("POST /user/info", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"users": [{"id": 42, "name": "E2EBot", "reputation": 1, "is_moderator": false}]}`)
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeService) client() *chat.Client {
	return chat.New("example.com",
		chat.WithBaseURLs(f.srv.URL, f.srv.URL),
		chat.WithLimiter(rate.NewLimiter(rate.Inf, 1)))
}

// socket returns the websocket connection opened by the bot's room join.
func (f *fakeService) socket(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-f.conns:
		return conn
	case <-time.After(5 * time.Second):
		t.Fatal("bot never opened the room socket")
		return nil
	}
}

// pushEvent writes one message-posted event for roomID onto the socket.
func pushEvent(t *testing.T, conn *websocket.Conn, roomID, userID, messageID int64, content string) {
	t.Helper()
	frame := fmt.Sprintf(`{"r%d": {"e": [{
		"event_type": 1, "id": %d, "time_stamp": %d,
		"content": %q, "user_id": %d, "user_name": "someone",
		"room_id": %d, "room_name": "Sandbox", "message_id": %d
	}]}}`, roomID, messageID*10, time.Now().Unix(), content, userID, roomID, messageID)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func (f *fakeService) sentMessages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}
