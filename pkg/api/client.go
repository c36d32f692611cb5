// Package api implements the client of the remote product API.
// Every call carries an X-Request-ID header; failures are returned as
// *errors.APIError so that callers can classify them.
//
// Package api 实现远程商品API的客户端。
// 每次调用都携带X-Request-ID请求头；失败以*errors.APIError返回，便于调用方分类处理。
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/shopsync/internal/metrics"
	shoperrors "github.com/yourusername/shopsync/pkg/errors"
	"github.com/yourusername/shopsync/pkg/model"
)

const (
	// DefaultPageSize is the page size used when none is configured.
	DefaultPageSize = 8

	// DefaultTimeout is the request timeout of the default HTTP client.
	DefaultTimeout = 10 * time.Second

	requestIDHeader   = "X-Request-ID"
	variantImageField = "variantImages_"
)

// Client is the remote product API client.
// It is safe for concurrent use.
//
// Client 是远程商品API客户端，可以安全地并发使用。
type Client struct {
	baseURL    string
	httpClient *http.Client
	pageSize   int
	logger     *slog.Logger
	metrics    *metrics.Metrics

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithPageSize sets the page size of paginated listings.
func WithPageSize(size int) Option {
	return func(c *Client) {
		if size > 0 {
			c.pageSize = size
		}
	}
}

// WithToken sets the bearer token sent with authenticated calls.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics records request counts and latencies.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a client for the API rooted at baseURL.
//
// NewClient 为位于baseURL的API创建客户端。
//
// Parameters:
//   - baseURL: The API root, e.g. http://localhost:8080
//   - options: Optional configuration
//
// Returns:
//   - *Client: A new client
//   - error: An error if baseURL is not an absolute URL
func NewClient(baseURL string, options ...Option) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("api: invalid base url %q", baseURL)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		pageSize:   DefaultPageSize,
		logger:     slog.Default(),
	}
	for _, option := range options {
		option(c)
	}
	c.logger = c.logger.With("component", "api")
	return c, nil
}

// SetToken replaces the bearer token, e.g. after a login.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// PageSize returns the configured page size.
func (c *Client) PageSize() int {
	return c.pageSize
}

type productsBody struct {
	Products []model.Product `json:"products"`
}

type suggestionsBody struct {
	Suggestions []model.Suggestion `json:"suggestions"`
}

// ListPage fetches one page of the catalog. Pages start at 1.
//
// ListPage 获取目录的一页，页码从1开始。
func (c *Client) ListPage(ctx context.Context, page int) (model.Page, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(c.pageSize))

	var out model.Page
	if err := c.do(ctx, "list page", http.MethodGet, "/products/page", query, nil, "", &out); err != nil {
		return model.Page{}, err
	}
	if out.Products == nil {
		out.Products = []model.Product{}
	}
	return out, nil
}

// ListAll fetches the whole catalog.
func (c *Client) ListAll(ctx context.Context) ([]model.Product, error) {
	var out productsBody
	if err := c.do(ctx, "list products", http.MethodGet, "/products", nil, nil, "", &out); err != nil {
		return nil, err
	}
	return nonNil(out.Products), nil
}

// Get fetches a single product.
func (c *Client) Get(ctx context.Context, id string) (model.Product, error) {
	var out model.Product
	err := c.do(ctx, "get product", http.MethodGet, "/products/"+url.PathEscape(id), nil, nil, "", &out)
	return out, err
}

// ListOwner fetches the products managed by the authenticated seller.
func (c *Client) ListOwner(ctx context.Context) ([]model.Product, error) {
	var out productsBody
	if err := c.do(ctx, "list owner products", http.MethodGet, "/products/owner/products", nil, nil, "", &out); err != nil {
		return nil, err
	}
	return nonNil(out.Products), nil
}

// Search runs a product search. The result is never nil on success, so that an
// empty result can be told apart from no search at all.
//
// Search 执行商品搜索。成功时结果从不为nil，以区分“无结果”和“未搜索”。
func (c *Client) Search(ctx context.Context, query string, opts model.SearchOptions) ([]model.Product, error) {
	values := url.Values{}
	values.Set("q", query)
	if opts.Fuzzy {
		values.Set("fuzzy", "true")
	}
	if opts.Category != nil && *opts.Category != "" {
		values.Set("category", *opts.Category)
	}

	var out productsBody
	if err := c.do(ctx, "search", http.MethodGet, "/products/search", values, nil, "", &out); err != nil {
		return nil, err
	}
	return nonNil(out.Products), nil
}

// Autocomplete fetches name suggestions for query.
func (c *Client) Autocomplete(ctx context.Context, query string) ([]model.Suggestion, error) {
	values := url.Values{}
	values.Set("q", query)

	var out suggestionsBody
	if err := c.do(ctx, "autocomplete", http.MethodGet, "/products/autocomplete", values, nil, "", &out); err != nil {
		return nil, err
	}
	if out.Suggestions == nil {
		out.Suggestions = []model.Suggestion{}
	}
	return out.Suggestions, nil
}

// Create creates a product from a multipart form.
//
// Create 以multipart表单创建商品。
func (c *Client) Create(ctx context.Context, input model.ProductInput) (model.Product, error) {
	body, contentType, err := encodeProductForm(input)
	if err != nil {
		return model.Product{}, shoperrors.NewTransportError("create product", err)
	}
	var out model.Product
	err = c.do(ctx, "create product", http.MethodPost, "/products", nil, body, contentType, &out)
	return out, err
}

// Update replaces the editable fields of a product.
//
// Update 更新商品的可编辑字段。
func (c *Client) Update(ctx context.Context, id string, input model.ProductInput) (model.Product, error) {
	body, contentType, err := encodeProductForm(input)
	if err != nil {
		return model.Product{}, shoperrors.NewTransportError("update product", err)
	}
	var out model.Product
	err = c.do(ctx, "update product", http.MethodPut, "/products/"+url.PathEscape(id), nil, body, contentType, &out)
	return out, err
}

// Delete deletes a product.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, "delete product", http.MethodDelete, "/products/"+url.PathEscape(id), nil, nil, "", nil)
}

// do issues a request and decodes a 2xx JSON response into out.
// Non-2xx responses are decoded as {"message"} into an *errors.APIError.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body io.Reader, contentType string, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return shoperrors.NewTransportError(op, err)
	}

	requestID := uuid.NewString()
	req.Header.Set(requestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordRequest(time.Since(start), true)
		c.logger.Warn("request failed", "op", op, "request_id", requestID, "error", err)
		apiErr := shoperrors.NewTransportError(op, err)
		apiErr.RequestID = requestID
		return apiErr
	}
	defer resp.Body.Close()

	failed := resp.StatusCode < 200 || resp.StatusCode > 299
	c.metrics.RecordRequest(time.Since(start), failed)
	c.logger.Debug("request", "op", op, "method", method, "path", path, "status", resp.StatusCode, "request_id", requestID)

	if failed {
		var msg struct {
			Message string `json:"message"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, &msg) != nil {
			msg.Message = ""
		}
		apiErr := shoperrors.NewAPIError(op, resp.StatusCode, msg.Message)
		apiErr.RequestID = requestID
		return apiErr
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		apiErr := shoperrors.NewTransportError(op, fmt.Errorf("decode response: %w", err))
		apiErr.RequestID = requestID
		return apiErr
	}
	return nil
}

// encodeProductForm builds the multipart body of a mutation: the text fields,
// the variants as a JSON array and one file field per variant image.
func encodeProductForm(input model.ProductInput) (io.Reader, string, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"name", input.Name},
		{"description", input.Description},
		{"category", input.Category},
	}
	for _, field := range fields {
		if err := form.WriteField(field[0], field[1]); err != nil {
			return nil, "", err
		}
	}

	variants := input.Variants
	if variants == nil {
		variants = []model.Variant{}
	}
	encoded, err := json.Marshal(variants)
	if err != nil {
		return nil, "", err
	}
	if err := form.WriteField("variants", string(encoded)); err != nil {
		return nil, "", err
	}

	for index, images := range input.Images {
		if index < 0 || index >= len(variants) {
			return nil, "", fmt.Errorf("images for variant %d but only %d variants", index, len(variants))
		}
		for _, image := range images {
			part, err := form.CreateFormFile(variantImageField+strconv.Itoa(index), image.Filename)
			if err != nil {
				return nil, "", err
			}
			if _, err := part.Write(image.Data); err != nil {
				return nil, "", err
			}
		}
	}

	if err := form.Close(); err != nil {
		return nil, "", err
	}
	return &buf, form.FormDataContentType(), nil
}

func nonNil(products []model.Product) []model.Product {
	if products == nil {
		return []model.Product{}
	}
	return products
}
