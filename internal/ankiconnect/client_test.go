package ankiconnect

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, DefaultURL, cfg.URL)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)

	cfg = Config{URL: "http://localhost:9999", Timeout: time.Second}.withDefaults()
	assert.Equal(t, "http://localhost:9999", cfg.URL)
	assert.Equal(t, time.Second, cfg.Timeout)
}

func TestInvoke_wireFormat(t *testing.T) {
	var gotBody []byte
	var gotMethod, gotContentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		var err error
		gotBody, err = io.ReadAll(r.Body)
		require.NoError(t, err)
		w.Write([]byte(`{"result": ["Default"], "error": null}`))
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL}, nil)
	raw, err := c.Invoke(context.Background(), "deckNames", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `["Default"]`, string(raw))

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/json", gotContentType)
	// The request envelope is a fixed third-party contract.
	assert.JSONEq(t, `{"action":"deckNames","version":6,"params":{}}`, string(gotBody))
}

func TestInvoke_paramsForwarded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Action  string          `json:"action"`
			Version int             `json:"version"`
			Params  json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "createDeck", req.Action)
		assert.Equal(t, 6, req.Version)
		assert.JSONEq(t, `{"deck":"Languages::French"}`, string(req.Params))
		w.Write([]byte(`{"result": 1234567890123, "error": null}`))
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL}, nil)
	id, err := c.CreateDeck(context.Background(), "Languages::French")
	require.NoError(t, err)
	assert.Equal(t, int64(1234567890123), id)
}

func TestInvoke_backendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result": null, "error": "deck was not found: Nope"}`))
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL}, nil)
	_, err := c.Invoke(context.Background(), "deckNames", nil)
	require.Error(t, err)
	assert.True(t, IsBackend(err))
	assert.False(t, IsTimeout(err))
	assert.False(t, IsConnection(err))
	// Backend messages pass through verbatim.
	assert.Contains(t, err.Error(), "deck was not found: Nope")
}

func TestInvoke_timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(250 * time.Millisecond)
		w.Write([]byte(`{"result": 6, "error": null}`))
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL, Timeout: 30 * time.Millisecond}, nil)
	_, err := c.Invoke(context.Background(), "version", nil)
	require.Error(t, err)
	assert.True(t, IsTimeout(err), "expected timeout classification, got: %v", err)
}

func TestInvoke_contextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(250 * time.Millisecond)
		w.Write([]byte(`{"result": 6, "error": null}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	c := New(Config{URL: srv.URL}, nil)
	_, err := c.Invoke(ctx, "version", nil)
	require.Error(t, err)
	assert.True(t, IsTimeout(err), "expected timeout classification, got: %v", err)
}

func TestInvoke_connectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close() // nothing is listening anymore

	c := New(Config{URL: url}, nil)
	_, err := c.Invoke(context.Background(), "version", nil)
	require.Error(t, err)
	assert.True(t, IsConnection(err), "expected connection classification, got: %v", err)
	assert.Contains(t, err.Error(), "make sure Anki is running")
}

func TestInvoke_unexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL}, nil)
	_, err := c.Invoke(context.Background(), "version", nil)
	require.Error(t, err)
	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, KindProtocol, ae.Kind)
}

func TestInvoke_undecodableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json at all`))
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL}, nil)
	_, err := c.Invoke(context.Background(), "version", nil)
	require.Error(t, err)
	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, KindProtocol, ae.Kind)
	assert.Equal(t, "version", ae.Action)
}
