package requests

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"tracker/src/utils"
)

// ExternalAPIService performs outbound HTTP calls with a shared client.
type ExternalAPIService struct {
	client    *http.Client
	userAgent string
}

// NewExternalAPIService creates a service whose requests time out after timeout (0 disables the timeout).
func NewExternalAPIService(timeout time.Duration) *ExternalAPIService {
	return &ExternalAPIService{
		client:    &http.Client{Timeout: timeout},
		userAgent: "etf-holdings-tracker/1.0",
	}
}

func (s *ExternalAPIService) makeRequest(ctx context.Context, method, endpoint string, params url.Values, accept string) (*http.Response, error) {
	if params != nil {
		endpoint = endpoint + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		resp.Body.Close()
		return nil, utils.NewHTTPError(resp.StatusCode, fmt.Sprintf("GET %s: %s", req.URL.Host+req.URL.Path, resp.Status))
	}
	return resp, nil
}

// Get makes a GET request and fails on any non-2xx status. The caller closes the body.
func (s *ExternalAPIService) Get(ctx context.Context, endpoint string, params url.Values, accept string) (*http.Response, error) {
	return s.makeRequest(ctx, http.MethodGet, endpoint, params, accept)
}
