// Package ankiconnect is a thin HTTP client for the AnkiConnect add-on API.
//
// AnkiConnect exposes Anki's collection over a local JSON-over-HTTP endpoint:
// each call POSTs {"action": <name>, "version": 6, "params": {...}} and
// receives {"result": <any>, "error": <string|null>}. The client performs no
// retries; a timeout or connection failure is surfaced immediately so the
// caller can decide whether to re-invoke.
package ankiconnect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultURL is AnkiConnect's default listen address.
	DefaultURL = "http://127.0.0.1:8765"
	// DefaultTimeout matches the timeout AnkiConnect deployments are
	// documented against. Some actions (full sync, large batch adds) are
	// genuinely slow, hence the generous budget.
	DefaultTimeout = 120 * time.Second

	apiVersion = 6
)

// connectHint is appended to connection failures so the operator knows what to
// check. Mirrors the guidance AnkiConnect's own documentation gives.
const connectHint = "could not connect to Anki: make sure Anki is running and the AnkiConnect add-on (code 2055492159) is installed"

// Config carries the client's settings. Zero values fall back to the
// documented defaults, so Config{} is a usable configuration.
type Config struct {
	// URL is the AnkiConnect endpoint, e.g. "http://127.0.0.1:8765".
	URL string
	// Timeout bounds a single request/response round trip.
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.URL == "" {
		c.URL = DefaultURL
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Client issues AnkiConnect calls. It holds no mutable state and is safe for
// concurrent use; each call opens its own connection via the shared
// http.Client.
type Client struct {
	url    string
	httpc  *http.Client
	logger *zap.Logger
}

// New creates a Client. Multiple clients with different configurations can
// coexist (tests point one at a mock backend). A nil logger disables logging.
func New(cfg Config, logger *zap.Logger) *Client {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		url:    cfg.URL,
		httpc:  &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// request is the fixed AnkiConnect request envelope.
type request struct {
	Action  string `json:"action"`
	Version int    `json:"version"`
	Params  any    `json:"params"`
}

// response is the fixed AnkiConnect response envelope.
type response struct {
	Result json.RawMessage `json:"result"`
	Error  *string         `json:"error"`
}

// Invoke performs a single AnkiConnect action and returns the raw result
// field. A nil params marshals as an empty object, which AnkiConnect requires
// for parameterless actions. All failures are *Error values.
func (c *Client) Invoke(ctx context.Context, action string, params any) (json.RawMessage, error) {
	if params == nil {
		params = struct{}{}
	}

	body, err := json.Marshal(request{Action: action, Version: apiVersion, Params: params})
	if err != nil {
		return nil, &Error{Kind: KindProtocol, Action: action, Message: "encode request: " + err.Error(), wrapped: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindProtocol, Action: action, Message: "build request: " + err.Error(), wrapped: err}
	}
	req.Header.Set("Content-Type", "application/json")

	requestID := uuid.NewString()
	c.logger.Debug("invoking anki-connect",
		zap.String("action", action),
		zap.String("request_id", requestID))

	resp, err := c.httpc.Do(req)
	if err != nil {
		cerr := classifyTransport(action, err)
		c.logger.Warn("anki-connect call failed",
			zap.String("action", action),
			zap.String("request_id", requestID),
			zap.String("kind", string(cerr.Kind)),
			zap.Error(err))
		return nil, cerr
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Kind: KindProtocol, Action: action, Message: "unexpected status " + resp.Status}
	}

	var ar response
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return nil, &Error{Kind: KindProtocol, Action: action, Message: "decode response: " + err.Error(), wrapped: err}
	}

	if ar.Error != nil && *ar.Error != "" {
		c.logger.Warn("anki-connect returned error",
			zap.String("action", action),
			zap.String("request_id", requestID),
			zap.String("backend_error", *ar.Error))
		return nil, &Error{Kind: KindBackend, Action: action, Message: *ar.Error}
	}

	c.logger.Debug("anki-connect call succeeded",
		zap.String("action", action),
		zap.String("request_id", requestID))
	return ar.Result, nil
}

// call invokes action and decodes the result field into out. A null result
// leaves out untouched; pass nil out to discard the result entirely.
func (c *Client) call(ctx context.Context, action string, params, out any) error {
	raw, err := c.Invoke(ctx, action, params)
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Kind: KindProtocol, Action: action, Message: "decode result: " + err.Error(), wrapped: err}
	}
	return nil
}

// classifyTransport maps a transport-level failure onto the error taxonomy:
// deadline/timeout conditions become KindTimeout, everything else (refused
// connection, DNS failure, reset) becomes KindConnection.
func classifyTransport(action string, err error) *Error {
	var nerr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Action: action, Message: "no response from AnkiConnect within the configured timeout", wrapped: err}
	case errors.As(err, &nerr) && nerr.Timeout():
		return &Error{Kind: KindTimeout, Action: action, Message: "no response from AnkiConnect within the configured timeout", wrapped: err}
	default:
		return &Error{Kind: KindConnection, Action: action, Message: connectHint, wrapped: err}
	}
}
