package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"cryptofolio/src/helpers"
	"cryptofolio/src/interfaces"
	"cryptofolio/src/logger"
	"cryptofolio/src/models"

	gocache "github.com/patrickmn/go-cache"
)

// -----------------------------------------------------------------------------
// APIClient performs HTTP calls against the CryptoFolio backend with an
// attached bearer token and transparently recovers from a single 401 per
// request by refreshing the session once per refresh cycle.
// -----------------------------------------------------------------------------

type APIClient struct {
	Config *models.MConfig
	Tokens interfaces.ITokenStore
	Logger *logger.Logger

	httpClient *http.Client
	refresh    *RefreshCoordinator
	cache      *gocache.Cache
	onLogout   func()
}

// -----------------------------------------------------------------------------

func NewAPIClient(cfg *models.MConfig, tokens interfaces.ITokenStore, log *logger.Logger) *APIClient {
	ttl := time.Duration(cfg.Backend.CacheTTL) * time.Second

	return &APIClient{
		Config: cfg,
		Tokens: tokens,
		Logger: log,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Backend.RequestTimeout) * time.Second,
		},
		refresh: &RefreshCoordinator{},
		cache:   gocache.New(ttl, time.Minute),
	}
}

// -----------------------------------------------------------------------------

// OnLogout registers fn to run after the session ends, either through an
// explicit Logout call or a failed refresh.
func (c *APIClient) OnLogout(fn func()) {
	c.onLogout = fn
}

// -----------------------------------------------------------------------------

// Do sends an authenticated request and returns the response verbatim. A 401
// triggers at most one refresh-and-replay cycle; the replayed request's
// response (including a second 401) is returned as-is.
func (c *APIClient) Do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	return c.do(ctx, method, path, body, nil, false)
}

// -----------------------------------------------------------------------------

func (c *APIClient) do(ctx context.Context, method, path string, body []byte, header http.Header, retried bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.Config.Backend.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	// The bearer token is read from the store at send time, never captured
	// when the request was built: a refresh that completed in between wins.
	if tok := c.Tokens.AccessToken(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// No HTTP response at all: transport failures bypass the refresh path.
		return nil, helpers.NewNetworkError(fmt.Sprintf("%s %s failed", method, path), err)
	}

	if resp.StatusCode != http.StatusUnauthorized || retried {
		return resp, nil
	}
	resp.Body.Close()

	settled := make(chan error, 1)
	if !c.refresh.Acquire(func(err error) { settled <- err }) {
		// Another caller owns the refresh. Wait for it to settle, then replay
		// with whatever token it persisted.
		select {
		case err := <-settled:
			if err != nil {
				return nil, helpers.NewAuthError("session refresh failed", err)
			}
			return c.do(ctx, method, path, body, header, true)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	// The refresh always runs to completion once started: it is detached from
	// the owning caller's context so one impatient caller cannot abort it and
	// log out a healthy session. The HTTP client's timeout still bounds it.
	refreshCtx := context.WithoutCancel(ctx)
	if err := c.refresh.RunExclusive(func() error { return c.refreshSession(refreshCtx) }); err != nil {
		c.forceLogout()
		return nil, helpers.NewAuthError("session refresh failed", err)
	}
	return c.do(ctx, method, path, body, header, true)
}

// -----------------------------------------------------------------------------

// refreshSession exchanges the stored refresh token for a new access token.
// The new tokens are persisted before returning, so the coordinator drains the
// replay queue only after every replay can read them.
func (c *APIClient) refreshSession(ctx context.Context) error {
	refreshToken := c.Tokens.RefreshToken()
	if refreshToken == "" {
		return fmt.Errorf("no refresh token available")
	}

	payload, err := json.Marshal(models.MRefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return err
	}

	url := c.Config.Backend.BaseURL + c.Config.Backend.RefreshPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("refresh endpoint returned status %d", resp.StatusCode)
	}

	var out models.MRefreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return err
	}
	if out.AccessToken == "" {
		return fmt.Errorf("refresh response missing access token")
	}

	if err := c.Tokens.SetAccessToken(out.AccessToken); err != nil {
		return err
	}
	// Rotation is optional; absence means the old refresh token stays valid.
	if out.RefreshToken != "" {
		if err := c.Tokens.SetRefreshToken(out.RefreshToken); err != nil {
			return err
		}
	}

	c.Logger.Debug("Session refreshed")
	return nil
}

// -----------------------------------------------------------------------------

// forceLogout clears the session after a failed refresh. Queued callers were
// already rejected by the coordinator drain.
func (c *APIClient) forceLogout() {
	c.Logger.Warning("Session refresh failed, clearing credentials")
	c.clearSession()
}

// -----------------------------------------------------------------------------

func (c *APIClient) clearSession() {
	if err := c.Tokens.Clear(); err != nil {
		c.Logger.Error("Failed to clear token store: %v", err)
	}
	c.cache.Flush()
	if c.onLogout != nil {
		c.onLogout()
	}
}

// -----------------------------------------------------------------------------
// JSON helpers
// -----------------------------------------------------------------------------

func (c *APIClient) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body []byte
	var header http.Header

	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = b
		header = http.Header{"Content-Type": []string{"application/json"}}
	}

	resp, err := c.do(ctx, method, path, body, header, false)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// -----------------------------------------------------------------------------

func decodeAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var apiErr models.MAPIError
	if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
		return fmt.Errorf("backend returned status %d: %s", resp.StatusCode, apiErr.Message)
	}
	return fmt.Errorf("backend returned status %d", resp.StatusCode)
}
