package cloudinary

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/yourorg/tourbook/internal/domain"
	"github.com/yourorg/tourbook/internal/reliability/circuitbreaker"
	"github.com/yourorg/tourbook/internal/reliability/retry"
)

const (
	apiBase      = "https://api.cloudinary.com/v1_1"
	deliveryBase = "https://res.cloudinary.com"
	// Sensitive documents live under a per-owner private folder.
	privateFolder = "private-documents"
)

// Client talks to the Cloudinary upload API. Writes go through the circuit
// breaker only; reads (FetchObject) additionally retry, since they are
// idempotent.
type Client struct {
	cloudName   string
	apiKey      string
	apiSecret   string
	httpClient  *http.Client
	logger      *slog.Logger
	retryConfig *retry.Config
	breaker     *circuitbreaker.CircuitBreaker
	now         func() time.Time
}

// NewClient creates a blob store client for the given account.
func NewClient(cloudName, apiKey, apiSecret string, logger *slog.Logger) (*Client, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("cloudinary credentials are not configured")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		cloudName:   cloudName,
		apiKey:      apiKey,
		apiSecret:   apiSecret,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
		retryConfig: retry.DefaultConfig(),
		breaker:     circuitbreaker.New("cloudinary", 5, 2, 30*time.Second, logger),
		now:         time.Now,
	}, nil
}

type uploadResponse struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
	Error     struct {
		Message string `json:"message"`
	} `json:"error"`
}

// UploadPrivate places the object under private-documents/<ownerID> with a
// public id derived from the document kind and a millisecond timestamp, so
// repeated uploads for the same slot never collide.
func (c *Client) UploadPrivate(ctx context.Context, data []byte, fileName string, kind domain.DocumentKind, ownerID string) (*domain.BlobUploadResult, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("owner id is required")
	}

	folder := fmt.Sprintf("%s/%s", privateFolder, ownerID)
	publicID := fmt.Sprintf("%s_%d", kind, c.now().UnixMilli())

	params := map[string]string{
		"folder":     folder,
		"public_id":  publicID,
		"overwrite":  "true",
		"invalidate": "true",
		"timestamp":  fmt.Sprintf("%d", c.now().Unix()),
	}

	var result *domain.BlobUploadResult
	err := c.breaker.Do(func() error {
		resp, err := c.postUpload(ctx, "auto/upload", params, data, fileName)
		if err != nil {
			return err
		}
		result = &domain.BlobUploadResult{
			ObjectID:  resp.PublicID,
			SecureURL: resp.SecureURL,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("blob upload failed: %w", err)
	}

	c.logger.Info("blob uploaded to private folder",
		slog.String("public_id", result.ObjectID),
		slog.String("folder", folder),
		slog.String("file_name", fileName),
	)
	return result, nil
}

// DeleteObject destroys an object by public id. Malformed identifiers (raw
// URLs, empty strings) are rejected before any remote call.
func (c *Client) DeleteObject(ctx context.Context, objectID string) error {
	if objectID == "" || strings.HasPrefix(objectID, "http") {
		return fmt.Errorf("invalid public_id format: %q", objectID)
	}

	params := map[string]string{
		"public_id": objectID,
		"timestamp": fmt.Sprintf("%d", c.now().Unix()),
	}

	err := c.breaker.Do(func() error {
		resp, err := c.postForm(ctx, "image/destroy", params)
		if err != nil {
			return err
		}
		if resp != "ok" && resp != "not found" {
			return fmt.Errorf("destroy returned %q", resp)
		}
		if resp == "not found" {
			return fmt.Errorf("object %s not found", objectID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("blob delete failed: %w", err)
	}
	return nil
}

// BuildAccessURL constructs the delivery URL for an object. It is pure: the
// identifier plus the account namespace is enough, no round trip and no
// cryptographic signing.
func (c *Client) BuildAccessURL(objectID string) string {
	return fmt.Sprintf("%s/%s/image/upload/%s", deliveryBase, c.cloudName, objectID)
}

// FetchObject downloads an object's bytes, used by the authenticated proxy
// endpoint. Retries transient failures.
func (c *Client) FetchObject(ctx context.Context, objectID string) ([]byte, string, error) {
	url := c.BuildAccessURL(objectID)

	type fetched struct {
		data        []byte
		contentType string
	}
	result, err := retry.Do(ctx, c.retryConfig, c.logger, "FetchObject", func(ctx context.Context) (fetched, error) {
		var out fetched
		err := c.breaker.Do(func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return err
			}
			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("fetch returned status %d", resp.StatusCode)
			}
			data, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			contentType := resp.Header.Get("Content-Type")
			if contentType == "" {
				contentType = "application/octet-stream"
			}
			out = fetched{data: data, contentType: contentType}
			return nil
		})
		return out, err
	})
	if err != nil {
		return nil, "", fmt.Errorf("blob fetch failed: %w", err)
	}
	return result.data, result.contentType, nil
}

// postUpload sends a signed multipart upload request.
func (c *Client) postUpload(ctx context.Context, endpoint string, params map[string]string, data []byte, fileName string) (*uploadResponse, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for k, v := range params {
		if err := writer.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	if err := writer.WriteField("api_key", c.apiKey); err != nil {
		return nil, err
	}
	if err := writer.WriteField("signature", c.sign(params)); err != nil {
		return nil, err
	}

	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s/%s", apiBase, c.cloudName, endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding upload response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := parsed.Error.Message
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("upload rejected: %s", msg)
	}
	if parsed.PublicID == "" {
		return nil, fmt.Errorf("upload response missing public_id")
	}
	return &parsed, nil
}

// postForm sends a signed urlencoded request and returns the "result" field.
func (c *Client) postForm(ctx context.Context, endpoint string, params map[string]string) (string, error) {
	form := make([]string, 0, len(params)+2)
	for k, v := range params {
		form = append(form, fmt.Sprintf("%s=%s", k, v))
	}
	form = append(form, "api_key="+c.apiKey)
	form = append(form, "signature="+c.sign(params))

	url := fmt.Sprintf("%s/%s/%s", apiBase, c.cloudName, endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(strings.Join(form, "&")))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var parsed struct {
		Result string `json:"result"`
		Error  struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := parsed.Error.Message
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("request rejected: %s", msg)
	}
	return parsed.Result, nil
}

// sign computes the API request signature: the sorted parameter string
// concatenated with the API secret, SHA-1 hex encoded. This authenticates
// requests to the account; it is unrelated to delivery URL access control.
func (c *Client) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, params[k]))
	}

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + c.apiSecret))
	return hex.EncodeToString(sum[:])
}
