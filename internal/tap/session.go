package tap

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/gaiasync/internal/common"
)

// Login authenticates against the server and stores the session cookie in
// the client's jar. Failures wrap common.ErrSession so callers can degrade
// to anonymous access.
func (c *Client) Login(ctx context.Context, username, password string) error {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+loginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrSession, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrSession, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: login rejected with status %d", common.ErrSession, resp.StatusCode)
	}

	c.sessionMu.Lock()
	c.logged = true
	c.sessionMu.Unlock()

	c.log.Debug(ctx, "logged in", "username", username)
	return nil
}

// Logout terminates the authenticated session. The client reverts to
// anonymous regardless of the outcome.
func (c *Client) Logout(ctx context.Context) error {
	c.sessionMu.Lock()
	logged := c.logged
	c.logged = false
	c.sessionMu.Unlock()

	if !logged {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+logoutPath, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrSession, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrSession, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: logout rejected with status %d", common.ErrSession, resp.StatusCode)
	}
	return nil
}

// Authenticated reports whether the client holds an authenticated session.
func (c *Client) Authenticated() bool {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()
	return c.logged
}
