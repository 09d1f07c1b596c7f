package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	apperrors "klinik/pkg/errors"
	"klinik/pkg/model"
)

const DefaultTimeout = 10 * time.Second

type HttpClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewHttpClient(baseURL string, timeout time.Duration) *HttpClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HttpClient{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type Response struct {
	*http.Response
	Body []byte
}

// DecodeEnvelope unwraps the clinic API envelope into target. A non-2xx
// status or an envelope error becomes a gateway error. target may be nil.
func (r *Response) DecodeEnvelope(target any) error {
	var env model.Envelope
	if err := json.Unmarshal(r.Body, &env); err != nil {
		return apperrors.Gateway(r.StatusCode, "malformed response from clinic API", err)
	}

	if r.StatusCode < 200 || r.StatusCode >= 300 || env.Error != "" {
		return apperrors.Gateway(r.StatusCode, GetErrorMessage(&env, r.Status), nil).
			WithDetails(map[string]any{
				"upstream_status": r.StatusCode,
				"operation_id":    env.OperationID,
			})
	}

	if target == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, target); err != nil {
		return apperrors.Gateway(r.StatusCode, "unexpected data shape from clinic API", err)
	}
	return nil
}

func (c *HttpClient) GET(ctx context.Context, path string) (*Response, error) {
	return c.request(ctx, http.MethodGet, path, nil)
}

func (c *HttpClient) POST(ctx context.Context, path string, body any) (*Response, error) {
	return c.request(ctx, http.MethodPost, path, body)
}

func (c *HttpClient) PATCH(ctx context.Context, path string, body any) (*Response, error) {
	return c.request(ctx, http.MethodPatch, path, body)
}

func (c *HttpClient) request(ctx context.Context, method, path string, body any) (*Response, error) {
	var reqBody io.Reader

	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Gateway(resp.StatusCode, "failed to read clinic API response", err)
	}

	return &Response{
		Response: resp,
		Body:     respBody,
	}, nil
}

func transportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return apperrors.Gateway(0, "clinic API timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return apperrors.Gateway(0, "request to clinic API was cancelled", err)
	}
	return apperrors.Gateway(0, "clinic API unreachable", err)
}

func GetErrorMessage(env *model.Envelope, fallback string) string {
	if env.Message != "" {
		return env.Message
	}
	if env.Error != "" {
		return env.Error
	}
	return fallback
}
