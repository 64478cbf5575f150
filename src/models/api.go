package models

// -----------------------------------------------------------------------------
// Auth payloads (CryptoFolio backend REST contract)
// -----------------------------------------------------------------------------

type MLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type MTwoFactorRequest struct {
	Code string `json:"code"`
}

// MSession is returned by login and two-factor verification. Tokens are empty
// while the second factor is still pending.
type MSession struct {
	AccessToken       string `json:"accessToken"`
	RefreshToken      string `json:"refreshToken"`
	TwoFactorRequired bool   `json:"twoFactorRequired"`
}

type MRefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// MRefreshResponse carries the new access token. RefreshToken is only set when
// the backend rotates it; empty means the old refresh token stays valid.
type MRefreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// -----------------------------------------------------------------------------
// Portfolio resources
// -----------------------------------------------------------------------------

type MPortfolio struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	BaseCurrency string     `json:"baseCurrency"`
	Holdings     []MHolding `json:"holdings,omitempty"`
	CreatedAt    int64      `json:"createdAt"`
}

type MHolding struct {
	Symbol    string  `json:"symbol"`
	Quantity  float64 `json:"quantity"`
	CostBasis float64 `json:"costBasis"`
}

type MWatchlist struct {
	Symbols []string `json:"symbols"`
}

// MAPIError is the backend's error envelope.
type MAPIError struct {
	Message string `json:"message"`
}
