// Package elasticsearch implements the search client port on the official
// Elasticsearch Go client.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"

	"github.com/custodia-labs/esload/internal/core/domain"
	"github.com/custodia-labs/esload/internal/core/ports/driven"
	"github.com/custodia-labs/esload/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.SearchClient = (*Client)(nil)

// Config holds cluster connection details.
type Config struct {
	Addresses []string
	Username  string
	Password  string
	APIKey    string
}

// Client talks to one cluster.
type Client struct {
	es *elasticsearch.Client
}

// NewClient creates a client for cfg.Addresses.
func NewClient(cfg Config) (*Client, error) {
	if len(cfg.Addresses) == 0 {
		return nil, fmt.Errorf("%w: at least one elasticsearch address is required", domain.ErrInvalidInput)
	}
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		APIKey:    cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return &Client{es: es}, nil
}

// Bulk posts an NDJSON body. A non-2xx reply is returned as an error
// alongside the decoded body when the body is JSON, so it can still be
// archived.
func (c *Client) Bulk(ctx context.Context, body []byte) (*domain.BulkResponse, error) {
	res, err := c.es.Bulk(bytes.NewReader(body), c.es.Bulk.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("bulk request: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read bulk response: %w", err)
	}

	resp, decodeErr := domain.DecodeBulkResponse(raw)
	if res.IsError() {
		logger.Debug("Bulk request returned %s", res.Status())
		return resp, responseError("bulk", res.StatusCode, raw)
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return resp, nil
}

// Search runs the first round of a query.
func (c *Client) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(req.Body); err != nil {
		return nil, fmt.Errorf("encode search body: %w", err)
	}

	opts := []func(*esapi.SearchRequest){
		c.es.Search.WithContext(ctx),
		c.es.Search.WithBody(&buf),
	}
	if req.Index != "" {
		opts = append(opts, c.es.Search.WithIndex(req.Index))
	}
	if req.Type != "" {
		opts = append(opts, c.es.Search.WithDocumentType(req.Type))
	}
	if req.Scroll != "" {
		keepAlive, err := ParseKeepAlive(req.Scroll)
		if err != nil {
			return nil, err
		}
		opts = append(opts, c.es.Search.WithScroll(keepAlive))
	}

	res, err := c.es.Search(opts...)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	return decodeSearch("search", res)
}

// Scroll fetches the next page of an open cursor.
func (c *Client) Scroll(ctx context.Context, scrollID, keepAlive string) (*domain.SearchResponse, error) {
	body, err := json.Marshal(map[string]string{"scroll": keepAlive, "scroll_id": scrollID})
	if err != nil {
		return nil, fmt.Errorf("encode scroll body: %w", err)
	}
	res, err := c.es.Scroll(c.es.Scroll.WithContext(ctx), c.es.Scroll.WithBody(bytes.NewReader(body)))
	if err != nil {
		return nil, fmt.Errorf("scroll request: %w", err)
	}
	return decodeSearch("scroll", res)
}

func decodeSearch(op string, res *esapi.Response) (*domain.SearchResponse, error) {
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", op, err)
	}
	if res.IsError() {
		return nil, responseError(op, res.StatusCode, raw)
	}

	var out domain.SearchResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", op, err)
	}
	return &out, nil
}

func responseError(op string, status int, body []byte) error {
	return fmt.Errorf("%s failed: [%d] %s", op, status, strings.TrimSpace(string(body)))
}

// ParseKeepAlive converts a cursor lifetime such as "15s", "1m" or "1d"
// to a duration.
func ParseKeepAlive(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: scroll %q", domain.ErrInvalidInput, s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: scroll %q", domain.ErrInvalidInput, s)
	}
	return d, nil
}
