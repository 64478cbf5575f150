package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"cryptofolio/src/models"
)

// -----------------------------------------------------------------------------
// Session endpoints
// -----------------------------------------------------------------------------

// Login authenticates with email and password. When the account has two-factor
// enabled the returned session carries no tokens; VerifyTwoFactor completes
// the sign-in.
func (c *APIClient) Login(ctx context.Context, email, password string) (*models.MSession, error) {
	var session models.MSession
	req := models.MLoginRequest{Email: email, Password: password}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", req, &session); err != nil {
		return nil, err
	}

	if session.TwoFactorRequired {
		return &session, nil
	}
	if err := c.storeSession(&session); err != nil {
		return nil, err
	}
	return &session, nil
}

// -----------------------------------------------------------------------------

// VerifyTwoFactor submits the TOTP code and persists the issued tokens.
func (c *APIClient) VerifyTwoFactor(ctx context.Context, code string) (*models.MSession, error) {
	var session models.MSession
	if err := c.doJSON(ctx, http.MethodPost, "/auth/2fa/verify", models.MTwoFactorRequest{Code: code}, &session); err != nil {
		return nil, err
	}
	if err := c.storeSession(&session); err != nil {
		return nil, err
	}
	return &session, nil
}

// -----------------------------------------------------------------------------

func (c *APIClient) storeSession(s *models.MSession) error {
	if s.AccessToken == "" {
		return fmt.Errorf("session response missing access token")
	}
	if err := c.Tokens.SetAccessToken(s.AccessToken); err != nil {
		return err
	}
	if s.RefreshToken != "" {
		return c.Tokens.SetRefreshToken(s.RefreshToken)
	}
	return nil
}

// -----------------------------------------------------------------------------

// Logout revokes the session server-side (best effort) and clears local state.
func (c *APIClient) Logout(ctx context.Context) error {
	err := c.doJSON(ctx, http.MethodPost, "/auth/logout", nil, nil)
	if err != nil {
		c.Logger.Warning("Server-side logout failed: %v", err)
	}
	c.clearSession()
	return err
}
