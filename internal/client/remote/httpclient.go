package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/models"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/common"
)

// HTTPClient implements API against the backend REST surface.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient returns an HTTPClient for baseURL. A nil http.Client gets a
// default with a 10s timeout.
func NewHTTPClient(baseURL string, c *http.Client) *HTTPClient {
	if c == nil {
		c = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPClient{baseURL: strings.TrimRight(baseURL, "/"), http: c}
}

func (c *HTTPClient) scopePath(scopeID int64, parts ...string) string {
	p := c.baseURL + "/api/v1/scopes/" + strconv.FormatInt(scopeID, 10) + "/categories"
	if len(parts) > 0 {
		p += "/" + strings.Join(parts, "/")
	}
	return p
}

// do performs one request and decodes the JSON response into out (if non-nil).
// Transport failures and 5xx map to common.ErrUnavailable, 404 to
// common.ErrNotFound, 409 to common.ErrConflict, remaining 4xx to
// common.ErrRemoteRejected.
func (c *HTTPClient) do(ctx context.Context, method, rawurl string, body any, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawurl, rd)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := mapStatus(resp); err != nil {
		return err
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func mapStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode < 400:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", common.ErrNotFound, resp.Status)
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%w: %s", common.ErrConflict, resp.Status)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s", common.ErrUnavailable, resp.Status)
	default:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s: %s", common.ErrRemoteRejected, resp.Status, strings.TrimSpace(string(b)))
	}
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, c.baseURL+"/api/v1/health", nil, nil)
}

func (c *HTTPClient) List(ctx context.Context, scopeID int64, params models.ListParams) (*models.Page, error) {
	q := url.Values{}
	if params.Page > 0 {
		q.Set("page", strconv.Itoa(params.Page))
	}
	if params.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(params.PageSize))
	}
	if params.Search != "" {
		q.Set("search", params.Search)
	}
	if params.Active != nil {
		q.Set("active", strconv.FormatBool(*params.Active))
	}
	if params.SortBy != "" {
		q.Set("sort_by", params.SortBy)
		q.Set("sort_desc", strconv.FormatBool(params.SortDesc))
	}
	u := c.scopePath(scopeID)
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}

	var page models.Page
	if err := c.do(ctx, http.MethodGet, u, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *HTTPClient) Get(ctx context.Context, scopeID, id int64) (*models.Category, error) {
	var cat models.Category
	if err := c.do(ctx, http.MethodGet, c.scopePath(scopeID, strconv.FormatInt(id, 10)), nil, &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

func (c *HTTPClient) Create(ctx context.Context, scopeID int64, req models.CategoryCreateRequest) (*models.Category, error) {
	var cat models.Category
	if err := c.do(ctx, http.MethodPost, c.scopePath(scopeID), req, &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

func (c *HTTPClient) Update(ctx context.Context, scopeID, id int64, req models.CategoryUpdateRequest) (*models.Category, error) {
	var cat models.Category
	if err := c.do(ctx, http.MethodPatch, c.scopePath(scopeID, strconv.FormatInt(id, 10)), req, &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

func (c *HTTPClient) Delete(ctx context.Context, scopeID, id int64) error {
	return c.do(ctx, http.MethodDelete, c.scopePath(scopeID, strconv.FormatInt(id, 10)), nil, nil)
}

func (c *HTTPClient) ValidateName(ctx context.Context, scopeID int64, name string, excludeID *int64) (bool, error) {
	body := map[string]any{"name": name}
	if excludeID != nil {
		body["exclude_id"] = *excludeID
	}
	var out struct {
		Available bool `json:"available"`
	}
	if err := c.do(ctx, http.MethodPost, c.scopePath(scopeID, "validate-name"), body, &out); err != nil {
		return false, err
	}
	return out.Available, nil
}

func (c *HTTPClient) ValidateDeletion(ctx context.Context, scopeID, id int64) (*models.ImpactPayload, error) {
	var out models.ImpactPayload
	if err := c.do(ctx, http.MethodGet, c.scopePath(scopeID, strconv.FormatInt(id, 10), "deletion-impact"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) DeleteWithOptions(ctx context.Context, scopeID int64, req models.DeletionRequest) (*models.EnhancedDeleteResponse, error) {
	var out models.EnhancedDeleteResponse
	u := c.scopePath(scopeID, strconv.FormatInt(req.CategoryID, 10), "delete")
	if err := c.do(ctx, http.MethodPost, u, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) BulkDelete(ctx context.Context, scopeID int64, req models.BulkDeletionRequest) (*models.BulkDeleteResponse, error) {
	var out models.BulkDeleteResponse
	if err := c.do(ctx, http.MethodPost, c.scopePath(scopeID, "bulk-delete"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Undo(ctx context.Context, scopeID int64, token string) error {
	body := map[string]string{"token": token}
	return c.do(ctx, http.MethodPost, c.scopePath(scopeID, "undo"), body, nil)
}
