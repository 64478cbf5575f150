package interfaces

// -----------------------------------------------------------------------------
// ITokenStore defines the contract for the two named credential slots shared by
// the API client and the price stream. The API client is the only writer; the
// stream only reads. An empty access token is the sole "not authenticated"
// signal used to gate the stream connection.
// -----------------------------------------------------------------------------

type ITokenStore interface {

	// -----------------------------------------------------------------------------

	// AccessToken returns the current bearer token, or "" when absent.
	AccessToken() string

	// -----------------------------------------------------------------------------

	// RefreshToken returns the current refresh token, or "" when absent.
	RefreshToken() string

	// -----------------------------------------------------------------------------

	// SetAccessToken replaces the bearer token. Callers holding a previously
	// read copy must re-read before retrying a request.
	SetAccessToken(token string) error

	// -----------------------------------------------------------------------------

	// SetRefreshToken replaces the refresh token (rotation).
	SetRefreshToken(token string) error

	// -----------------------------------------------------------------------------

	// Clear removes both slots (hard logout).
	Clear() error
}
