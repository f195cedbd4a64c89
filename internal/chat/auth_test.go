package chat

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"golang.org/x/time/rate"

	"github.com/luciancaetano/sechat"
)

func newAuthServer(t *testing.T, loginStatus int, location string) (*httptest.Server, *atomic.Int32) {
	var confirmHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/login", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<input name="fkey" value=%q>`, testFkey)
	})
	mux.HandleFunc("POST /users/login", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostForm.Get("fkey") != testFkey {
			t.Errorf("login post fkey = %q, want scraped fkey", r.PostForm.Get("fkey"))
		}
		if location != "" {
			w.Header().Set("Location", location)
		}
		w.WriteHeader(loginStatus)
	})
	mux.HandleFunc("GET /confirm", func(w http.ResponseWriter, r *http.Request) {
		confirmHits.Add(1)
		fmt.Fprint(w, "welcome")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &confirmHits
}

func authClient(srv *httptest.Server) *Client {
	c := New("example.com", WithBaseURLs(srv.URL, srv.URL))
	c.req.SetLimiter(rate.NewLimiter(rate.Inf, 1))
	c.noRedirect.SetLimiter(rate.NewLimiter(rate.Inf, 1))
	return c
}

func TestFormAuthSuccessIsTheRedirect(t *testing.T) {
	srv, _ := newAuthServer(t, http.StatusFound, "/")
	c := authClient(srv)

	if err := c.Login(context.Background(), FormAuth{Email: "a@b.c", Password: "pw"}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
}

func TestFormAuthRejectsOK(t *testing.T) {
	// A 200 means the site re-rendered the login form; never success.
	srv, _ := newAuthServer(t, http.StatusOK, "")
	c := authClient(srv)

	err := c.Login(context.Background(), FormAuth{Email: "a@b.c", Password: "bad"})
	if !errorsIs(err, sechat.ErrInvalidCredentials) {
		t.Fatalf("Login() error = %v, want ErrInvalidCredentials", err)
	}
}

func TestRedirectAuthFollowsConfirmation(t *testing.T) {
	srv, confirmHits := newAuthServer(t, http.StatusFound, "/confirm")
	c := authClient(srv)

	if err := c.Login(context.Background(), RedirectAuth{Email: "a@b.c", Password: "pw"}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if confirmHits.Load() != 1 {
		t.Errorf("confirmation page hits = %d, want 1", confirmHits.Load())
	}
}

func TestRedirectAuthRejectsOK(t *testing.T) {
	srv, _ := newAuthServer(t, http.StatusOK, "")
	c := authClient(srv)

	err := c.Login(context.Background(), RedirectAuth{Email: "a@b.c", Password: "bad"})
	if !errorsIs(err, sechat.ErrInvalidCredentials) {
		t.Fatalf("Login() error = %v, want ErrInvalidCredentials", err)
	}
}
