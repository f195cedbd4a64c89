package chat

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/luciancaetano/sechat"
	"github.com/luciancaetano/sechat/internal/logger"
)

// Authenticator is the pluggable site-auth strategy. Implementations must
// end with a definitive success/failure signal: the site answers a
// successful credential post with a redirect, so a 200 is never success.
type Authenticator interface {
	Login(ctx context.Context, c *Client) error
}

// FormAuth is the simple strategy: fetch the login page for its fkey, post
// the credentials, expect the redirect.
type FormAuth struct {
	Email    string
	Password string
}

// Login implements Authenticator.
func (a FormAuth) Login(ctx context.Context, c *Client) error {
	fkey, err := loginFkey(ctx, c)
	if err != nil {
		return err
	}

	form := url.Values{
		"fkey":     {fkey},
		"email":    {a.Email},
		"password": {a.Password},
	}
	resp, err := c.noRedirect.PostForm(ctx, c.siteBase+"/users/login", form)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		return fmt.Errorf("login: status %d: %w", resp.StatusCode, sechat.ErrInvalidCredentials)
	}
	logger.Info("login_ok", "strategy", "form")
	return nil
}

// RedirectAuth is the two-step strategy for sites that bounce the
// credential post through a confirmation page before establishing the
// session cookie.
type RedirectAuth struct {
	Email    string
	Password string
}

// Login implements Authenticator.
func (a RedirectAuth) Login(ctx context.Context, c *Client) error {
	fkey, err := loginFkey(ctx, c)
	if err != nil {
		return err
	}

	form := url.Values{
		"fkey":     {fkey},
		"email":    {a.Email},
		"password": {a.Password},
	}
	resp, err := c.noRedirect.PostForm(ctx, c.siteBase+"/users/login", form)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		return fmt.Errorf("login: status %d: %w", resp.StatusCode, sechat.ErrInvalidCredentials)
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return fmt.Errorf("login: redirect without location: %w", sechat.ErrInvalidCredentials)
	}
	if !absoluteURL(location) {
		location = c.siteBase + location
	}

	// Step two: land the redirect so the session cookie is established.
	confirm, err := c.req.Get(ctx, location)
	if err != nil {
		return fmt.Errorf("login confirmation: %w", err)
	}
	confirm.Body.Close()
	logger.Info("login_ok", "strategy", "redirect")
	return nil
}

func loginFkey(ctx context.Context, c *Client) (string, error) {
	resp, err := c.req.Get(ctx, c.siteBase+"/users/login")
	if err != nil {
		return "", fmt.Errorf("login page: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("login page: %w", err)
	}
	fkey, err := scrapeFkey(string(body))
	if err != nil {
		return "", fmt.Errorf("login page: %w", err)
	}
	return fkey, nil
}

func absoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.IsAbs()
}
