package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/teranos/floorcheck/errors"
)

// HTTPResolver resolves cards against the HR system's employee endpoint.
// The endpoint lives on the factory LAN and answers
// GET {base}/employees/by-card/{cardID} with an Employee JSON document.
type HTTPResolver struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPResolver creates a resolver against the given HR base URL.
func NewHTTPResolver(baseURL, apiKey string, timeout time.Duration) *HTTPResolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPResolver{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// ResolveEmployee implements Resolver.
func (r *HTTPResolver) ResolveEmployee(ctx context.Context, cardID string) (*Employee, error) {
	endpoint := fmt.Sprintf("%s/employees/by-card/%s", r.baseURL, url.PathEscape(cardID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build HR request")
	}
	req.Header.Set("Accept", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "HR directory request failed")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, errors.NewNotFoundError("employee for card %s not found", cardID)
	default:
		return nil, errors.Newf("HR directory returned status %d", resp.StatusCode)
	}

	var e Employee
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
		return nil, errors.Wrap(err, "failed to decode HR response")
	}
	if e.CardID == "" {
		e.CardID = cardID
	}
	return &e, nil
}
