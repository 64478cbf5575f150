package apiclient

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"

	"cryptofolio/src/models"

	gocache "github.com/patrickmn/go-cache"
)

// Cache keys for GET responses. Mutations evict them.
const (
	cacheKeyPortfolios = "portfolios"
	cacheKeyWatchlist  = "watchlist"
)

// -----------------------------------------------------------------------------
// Portfolio CRUD
// -----------------------------------------------------------------------------

func (c *APIClient) Portfolios(ctx context.Context) ([]models.MPortfolio, error) {
	if cached, ok := c.cache.Get(cacheKeyPortfolios); ok {
		return cached.([]models.MPortfolio), nil
	}

	var list []models.MPortfolio
	if err := c.doJSON(ctx, http.MethodGet, "/portfolios", nil, &list); err != nil {
		return nil, err
	}

	c.cache.Set(cacheKeyPortfolios, list, gocache.DefaultExpiration)
	return list, nil
}

// -----------------------------------------------------------------------------

func (c *APIClient) Portfolio(ctx context.Context, id string) (*models.MPortfolio, error) {
	var p models.MPortfolio
	if err := c.doJSON(ctx, http.MethodGet, "/portfolios/"+id, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// -----------------------------------------------------------------------------

func (c *APIClient) CreatePortfolio(ctx context.Context, p models.MPortfolio) (*models.MPortfolio, error) {
	var created models.MPortfolio
	if err := c.doJSON(ctx, http.MethodPost, "/portfolios", p, &created); err != nil {
		return nil, err
	}
	c.cache.Delete(cacheKeyPortfolios)
	return &created, nil
}

// -----------------------------------------------------------------------------

func (c *APIClient) UpdatePortfolio(ctx context.Context, p models.MPortfolio) (*models.MPortfolio, error) {
	var updated models.MPortfolio
	if err := c.doJSON(ctx, http.MethodPut, "/portfolios/"+p.ID, p, &updated); err != nil {
		return nil, err
	}
	c.cache.Delete(cacheKeyPortfolios)
	return &updated, nil
}

// -----------------------------------------------------------------------------

func (c *APIClient) DeletePortfolio(ctx context.Context, id string) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/portfolios/"+id, nil, nil); err != nil {
		return err
	}
	c.cache.Delete(cacheKeyPortfolios)
	return nil
}

// -----------------------------------------------------------------------------
// Watchlist
// -----------------------------------------------------------------------------

func (c *APIClient) Watchlist(ctx context.Context) (*models.MWatchlist, error) {
	if cached, ok := c.cache.Get(cacheKeyWatchlist); ok {
		w := cached.(models.MWatchlist)
		return &w, nil
	}

	var w models.MWatchlist
	if err := c.doJSON(ctx, http.MethodGet, "/watchlist", nil, &w); err != nil {
		return nil, err
	}

	c.cache.Set(cacheKeyWatchlist, w, gocache.DefaultExpiration)
	return &w, nil
}

// -----------------------------------------------------------------------------

func (c *APIClient) UpdateWatchlist(ctx context.Context, w models.MWatchlist) error {
	if err := c.doJSON(ctx, http.MethodPut, "/watchlist", w, nil); err != nil {
		return err
	}
	c.cache.Delete(cacheKeyWatchlist)
	return nil
}

// -----------------------------------------------------------------------------
// CSV import/export. The backend does the parsing; this layer only moves the
// bytes.
// -----------------------------------------------------------------------------

func (c *APIClient) ImportPortfolioCSV(ctx context.Context, id, filename string, csv io.Reader) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(fw, csv); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	header := http.Header{"Content-Type": []string{w.FormDataContentType()}}
	resp, err := c.do(ctx, http.MethodPost, "/portfolios/"+id+"/import", buf.Bytes(), header, false)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	c.cache.Delete(cacheKeyPortfolios)
	return nil
}

// -----------------------------------------------------------------------------

func (c *APIClient) ExportPortfolioCSV(ctx context.Context, id string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, "/portfolios/"+id+"/export", nil, nil, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeAPIError(resp)
	}
	return io.ReadAll(resp.Body)
}
