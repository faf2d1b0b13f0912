package strapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/yourorg/tourbook/internal/domain"
	"github.com/yourorg/tourbook/internal/reliability/circuitbreaker"
)

// TagCache is the cache behind tagged GET requests. The redis client
// implements it in production; pkg/cache.Memory is used in tests and as a
// fallback when redis is unavailable.
type TagCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, tags []string, ttl time.Duration)
	InvalidateTags(ctx context.Context, tags ...string)
}

// Client is the reference-store client. Every entity operation is expressed
// through the single generic Request primitive; the store is treated as a
// uniform resource-oriented HTTP service.
type Client struct {
	baseURL      string
	serviceToken string
	httpClient   *http.Client
	cache        TagCache
	cacheTTL     time.Duration
	breaker      *circuitbreaker.CircuitBreaker
	logger       *slog.Logger
}

// RequestOptions control one call to the generic primitive.
type RequestOptions struct {
	Method      string
	Body        []byte
	ContentType string
	// BearerToken overrides the service token, used when acting on behalf
	// of an authenticated user.
	BearerToken string
	// CacheTags enables caching for GET requests under these tags.
	// Invalidation after a mutation is the caller's responsibility.
	CacheTags []string
}

// NewClient creates a reference-store client.
func NewClient(baseURL, serviceToken string, cache TagCache, cacheTTL time.Duration, logger *slog.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("reference store host is not configured")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		serviceToken: serviceToken,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		cache:        cache,
		cacheTTL:     cacheTTL,
		breaker:      circuitbreaker.New("strapi", 5, 2, 30*time.Second, logger),
		logger:       logger,
	}, nil
}

// Request performs one HTTP call against the reference store. Non-2xx
// responses become errors carrying the service-provided message; a 404 maps
// to domain.ErrNotFound. No automatic retry.
func (c *Client) Request(ctx context.Context, path string, opts RequestOptions) ([]byte, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	cacheKey := ""
	if method == http.MethodGet && len(opts.CacheTags) > 0 && c.cache != nil {
		cacheKey = path
		if cached, ok := c.cache.Get(ctx, cacheKey); ok {
			return cached, nil
		}
	}

	var body []byte
	err := c.breaker.Do(func() error {
		var reqBody io.Reader
		if opts.Body != nil {
			reqBody = bytes.NewReader(opts.Body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/api/"+strings.TrimLeft(path, "/"), reqBody)
		if err != nil {
			return err
		}

		token := opts.BearerToken
		if token == "" {
			token = c.serviceToken
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		if opts.ContentType != "" {
			req.Header.Set("Content-Type", opts.ContentType)
		} else if opts.Body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%v: %w", err, domain.ErrStoreUnavailable)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			msg := errorMessage(data)
			c.logger.Warn("reference store request failed",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("status", resp.StatusCode),
				slog.String("message", msg),
			)
			if resp.StatusCode == http.StatusNotFound {
				return fmt.Errorf("%s: %w", msg, domain.ErrNotFound)
			}
			return fmt.Errorf("reference store returned %d: %s: %w", resp.StatusCode, msg, domain.ErrStoreUnavailable)
		}

		body = data
		return nil
	})
	if err != nil {
		return nil, err
	}

	if cacheKey != "" {
		c.cache.Set(ctx, cacheKey, body, opts.CacheTags, c.cacheTTL)
	}
	return body, nil
}

// InvalidateTags drops cached reads for the given logical resources. Typed
// mutators call this after a successful write.
func (c *Client) InvalidateTags(ctx context.Context, tags ...string) {
	if c.cache != nil {
		c.cache.InvalidateTags(ctx, tags...)
	}
}

// multipartBody builds a media-library upload body with a single file part.
func multipartBody(fieldName string, data []byte, fileName string, extraFields map[string]string) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for k, v := range extraFields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	part, err := writer.CreateFormFile(fieldName, fileName)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}

func errorMessage(body []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return "request failed"
}
