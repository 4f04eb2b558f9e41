package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/inventory-service/pkg/errors"
)

const (
	defaultTimeout              = 10 * time.Second
	sendPath                    = "/api/notifications/send"
	responseBodyReadLimit int64 = 1024
)

var errBaseURLRequired = errors.New("notification service url is required")

// HTTPNotifier posts alerts to the notification service.
type HTTPNotifier struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures optional HTTPNotifier behavior.
type Option func(*HTTPNotifier)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(n *HTTPNotifier) {
		if client != nil {
			n.httpClient = client
		}
	}
}

// WithTimeout sets the request timeout on the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(n *HTTPNotifier) {
		if timeout > 0 && n.httpClient != nil {
			n.httpClient.Timeout = timeout
		}
	}
}

func NewHTTPNotifier(baseURL string, opts ...Option) (*HTTPNotifier, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	n := &HTTPNotifier{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}
	return n, nil
}

func (n *HTTPNotifier) NotifyLowStock(ctx context.Context, alert LowStockAlert) error {
	body, err := json.Marshal(newPayload(alert))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal low stock alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+sendPath, bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build notification request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "notification service unreachable")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "notification send failed")
	}
	return nil
}
