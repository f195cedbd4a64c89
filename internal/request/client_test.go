package request

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func newTestClient() (*Client, *[]time.Duration) {
	c := New(nil)
	c.limiter = rate.NewLimiter(rate.Inf, 1)
	waits := &[]time.Duration{}
	c.sleep = func(d time.Duration) {
		*waits = append(*waits, d)
	}
	return c, waits
}

func TestRetryHonorsServerWait(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(StatusTooFast)
			w.Write([]byte("You can perform this action again in 2 seconds"))
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c, waits := newTestClient()
	resp, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Errorf("server hits = %d, want 2 (exactly one resend)", got)
	}
	if len(*waits) != 1 || (*waits)[0] != 2*time.Second {
		t.Errorf("waits = %v, want [2s]", *waits)
	}
}

func TestRetryExhausted(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(StatusTooFast)
		w.Write([]byte("You can perform this action again in 1 seconds"))
	}))
	defer srv.Close()

	c, waits := newTestClient()
	if _, err := c.Get(context.Background(), srv.URL); err == nil {
		t.Fatal("Get() expected terminal error after exhausting attempts")
	}

	if got := atomic.LoadInt32(&hits); got != maxAttempts {
		t.Errorf("server hits = %d, want %d", got, maxAttempts)
	}
	// No sleep after the final attempt.
	if len(*waits) != maxAttempts-1 {
		t.Errorf("waits = %d, want %d", len(*waits), maxAttempts-1)
	}
}

func TestFallbackBackoffOnUnparseableBody(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(StatusTooFast)
			w.Write([]byte("slow down"))
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c, waits := newTestClient()
	resp, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()

	if len(*waits) != 1 || (*waits)[0] != fallbackBackoff {
		t.Errorf("waits = %v, want [%v]", *waits, fallbackBackoff)
	}
}

func TestPostFormRebuildsBodyPerAttempt(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm() error = %v", err)
		}
		if got := r.PostForm.Get("text"); got != "hello" {
			t.Errorf("attempt %d: text = %q, want %q", atomic.LoadInt32(&hits)+1, got, "hello")
		}
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(StatusTooFast)
			w.Write([]byte("again in 1 seconds"))
			return
		}
		w.Write([]byte(`{"id":1}`))
	}))
	defer srv.Close()

	c, _ := newTestClient()
	resp, err := c.PostForm(context.Background(), srv.URL, url.Values{"text": {"hello"}})
	if err != nil {
		t.Fatalf("PostForm() error = %v", err)
	}
	resp.Body.Close()

	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Errorf("server hits = %d, want 2", got)
	}
}

type idleTrackingTransport struct {
	http.Transport
	idleClosed int32
}

func (t *idleTrackingTransport) CloseIdleConnections() {
	atomic.AddInt32(&t.idleClosed, 1)
	t.Transport.CloseIdleConnections()
}

func TestCloseReleasesIdleConnections(t *testing.T) {
	t.Parallel()

	tr := &idleTrackingTransport{}
	c := New(&http.Client{Transport: tr})
	c.Close()

	if got := atomic.LoadInt32(&tr.idleClosed); got != 1 {
		t.Errorf("CloseIdleConnections calls = %d, want 1", got)
	}
}

func TestParseWait(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want time.Duration
	}{
		{"two seconds", "You can perform this action again in 2 seconds", 2 * time.Second},
		{"one second", "You can perform this action again in 1 second", time.Second},
		{"large wait", "again in 120 seconds", 120 * time.Second},
		{"no digits", "please slow down", fallbackBackoff},
		{"empty", "", fallbackBackoff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := parseWait([]byte(tt.body)); got != tt.want {
				t.Errorf("parseWait(%q) = %v, want %v", tt.body, got, tt.want)
			}
		})
	}
}
