package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/luciancaetano/sechat"
	"github.com/luciancaetano/sechat/internal/logger"
	"github.com/luciancaetano/sechat/internal/telemetry"
	"github.com/luciancaetano/sechat/internal/wire"
)

const handshakeTimeout = 10 * time.Second

// openSocket performs the ws-auth handshake: POST the fkey to obtain a
// one-time socket URL, append the latest known message timestamp so the
// service replays nothing older, and dial with an explicit Origin header
// matching the chat domain.
func (r *Room) openSocket(ctx context.Context) error {
	form := url.Values{
		"roomid": {fmt.Sprintf("%d", r.id)},
		"fkey":   {r.fkey},
	}
	resp, err := r.c.req.PostForm(ctx, r.c.chatBase+"/ws-auth", form)
	if err != nil {
		return fmt.Errorf("ws-auth: %w", err)
	}
	var auth struct {
		URL string `json:"url"`
	}
	err = json.NewDecoder(resp.Body).Decode(&auth)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("ws-auth: %w", err)
	}

	since := r.latest.Load()
	if since == 0 {
		since = time.Now().Unix()
	}
	wsURL := fmt.Sprintf("%s?l=%d", auth.URL, since)

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	header := http.Header{"Origin": {r.c.chatBase}}
	conn, _, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return fmt.Errorf("dial socket: %w", err)
	}
	r.conn = conn

	go r.readLoop()
	return nil
}

// readLoop pumps frames off the socket until it closes. A transport-level
// error triggers a room leave so a half-open session is never leaked.
func (r *Room) readLoop() {
	for {
		_, data, err := r.conn.ReadMessage()
		if err != nil {
			if r.closed.Load() {
				return
			}
			logger.Error("socket_read_failed", "room_id", r.id, "error", err)
			go r.c.LeaveRoom(context.Background(), r.id)
			return
		}
		r.handleFrame(data)
	}
}

// handleFrame reconstructs a frame's events and dispatches them, catch-all
// listeners first, then per-kind listeners, in reconstruction order.
func (r *Room) handleFrame(data []byte) {
	raw, err := wire.ParseFrame(data, r.id)
	if err != nil {
		logger.Warn("frame_parse_failed", "room_id", r.id, "error", err)
		return
	}
	if len(raw) == 0 {
		return
	}

	for i := range raw {
		if ts := raw[i].TimeStamp; ts > r.latest.Load() {
			r.latest.Store(ts)
		}
	}

	for _, ev := range wire.Reconstruct(raw) {
		r.dispatch(ev)
	}
}

func (r *Room) dispatch(ev sechat.Event) {
	r.lmu.Lock()
	listeners := make([]EventListener, 0, len(r.catchAll)+len(r.byKind[ev.Kind]))
	listeners = append(listeners, r.catchAll...)
	listeners = append(listeners, r.byKind[ev.Kind]...)
	r.lmu.Unlock()

	telemetry.EventsDispatched.WithLabelValues(ev.Kind.String()).Inc()
	for _, fn := range listeners {
		fn(ev)
	}
}

// closeSocket closes the connection with a normal-closure frame, best
// effort, and marks the session dead.
func (r *Room) closeSocket() {
	if r.closed.Swap(true) {
		return
	}
	if r.conn == nil {
		return
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	deadline := time.Now().Add(time.Second)
	r.conn.WriteControl(websocket.CloseMessage, msg, deadline)
	r.conn.Close()
}
