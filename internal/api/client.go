package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"unpod-notifier/internal/config"
	"unpod-notifier/internal/logging"
)

const maxResponseBytes = 1 << 20

// UnpodClient talks to the Unpod notification API. All operations hit the
// network directly; nothing is cached client-side.
type UnpodClient struct {
	http      *http.Client
	token     string
	endpoints config.APIEndpoints
	logger    *logging.Logger
}

func New(httpClient *http.Client, token string, endpoints config.APIEndpoints, logger *logging.Logger) *UnpodClient {
	if logger == nil {
		panic("api.New: logger must not be nil")
	}
	return &UnpodClient{http: httpClient, token: token, endpoints: endpoints, logger: logger}
}

func (c *UnpodClient) newRequest(ctx context.Context, method string, url string, payload any) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do executes the request and screens the status code. Error bodies are
// logged, never parsed into results.
func (c *UnpodClient) do(req *http.Request, operation string) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	c.logger.Debugf("%s %s -> %s", req.Method, req.URL, resp.Status)
	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		_ = resp.Body.Close()
		c.logger.Warn(operation+" rejected",
			logging.Field("status", resp.Status),
			logging.Field("response", logging.FormatHTTPPayload(data)),
		)
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return resp, nil
}

func decodeDataEnvelope(body io.Reader, out any) error {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(io.LimitReader(body, maxResponseBytes)).Decode(&envelope); err != nil {
		return err
	}
	if len(envelope.Data) == 0 {
		return errors.New("response missing data field")
	}
	return json.Unmarshal(envelope.Data, out)
}
