package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultPollInterval = 2 * time.Second
	dialTimeout         = 10 * time.Second
	userAgent           = "tripmate-client/1.0"
)

// Ensure HTTPStore implements TripStore
var _ TripStore = (*HTTPStore)(nil)

// HTTPStore implements TripStore against the tripmate trip server over plain
// HTTP. Subscriptions are revision-cursor polls: each subscription goroutine
// fetches the collection on a fixed interval and delivers a snapshot whenever
// the revision advanced, which satisfies the latest-committed-state contract
// without a streaming transport.
type HTTPStore struct {
	client       *http.Client
	log          *slog.Logger
	baseURL      string
	token        string
	pollInterval time.Duration
}

// Dial validates the credential bundle by exchanging the trip key for an
// access token. A rejected key or unreachable server surfaces as
// ErrInvalidConfig so callers fall back to local-only mode.
func Dial(ctx context.Context, cfg Config, log *slog.Logger) (*HTTPStore, error) {
	if !cfg.Usable() {
		return nil, ErrInvalidConfig
	}

	store := &HTTPStore{
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 4,
			},
		},
		log:          log,
		baseURL:      cfg.ServerURL,
		pollInterval: defaultPollInterval,
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	token, err := store.exchangeToken(dialCtx, cfg.TripID, cfg.TripKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	store.token = token

	return store, nil
}

func (h *HTTPStore) exchangeToken(ctx context.Context, tripID, tripKey string) (string, error) {
	body, err := json.Marshal(map[string]string{"trip_id": tripID, "trip_key": tripKey})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/api/v1/token", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("trip server unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token exchange rejected with status %d", resp.StatusCode)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if out.Token == "" {
		return "", fmt.Errorf("empty token in response")
	}
	return out.Token, nil
}

// Subscribe polls the collection until the returned cancel func is called.
func (h *HTTPStore) Subscribe(collection Collection, fn func(Snapshot)) UnsubscribeFunc {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		var lastRevision int64 = -1

		poll := func() {
			snap, err := h.fetch(ctx, collection)
			if err != nil {
				if ctx.Err() == nil {
					h.log.Warn("Subscription poll failed", "collection", collection, "error", err)
				}
				return
			}
			if snap.Revision == lastRevision {
				return
			}
			lastRevision = snap.Revision
			fn(snap)
		}

		poll()

		ticker := time.NewTicker(h.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				poll()
			}
		}
	}()

	return UnsubscribeFunc(cancel)
}

func (h *HTTPStore) fetch(ctx context.Context, collection Collection) (Snapshot, error) {
	var body struct {
		Revision int64             `json:"revision"`
		Users    []string          `json:"users,omitempty"`
		Records  []json.RawMessage `json:"records,omitempty"`
	}
	if err := h.doJSON(ctx, http.MethodGet, "/api/v1/trip/"+string(collection), nil, &body); err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Collection: collection,
		Revision:   body.Revision,
		Users:      body.Users,
		Records:    body.Records,
	}, nil
}

// SetRecord creates or replaces one record in a collection.
func (h *HTTPStore) SetRecord(ctx context.Context, collection Collection, id string, record any) error {
	path := fmt.Sprintf("/api/v1/trip/%s/%s", collection, id)
	return h.doJSON(ctx, http.MethodPut, path, record, nil)
}

// DeleteRecord removes one record from a collection.
func (h *HTTPStore) DeleteRecord(ctx context.Context, collection Collection, id string) error {
	path := fmt.Sprintf("/api/v1/trip/%s/%s", collection, id)
	return h.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// ArrayUnion adds value to an array field via the server's set-add operation.
func (h *HTTPStore) ArrayUnion(ctx context.Context, field, value string) error {
	path := fmt.Sprintf("/api/v1/trip/%s/add", field)
	return h.doJSON(ctx, http.MethodPost, path, map[string]string{"value": value}, nil)
}

// ArrayRemove removes value from an array field via the server's set-remove
// operation.
func (h *HTTPStore) ArrayRemove(ctx context.Context, field, value string) error {
	path := fmt.Sprintf("/api/v1/trip/%s/remove", field)
	return h.doJSON(ctx, http.MethodPost, path, map[string]string{"value": value}, nil)
}

// HasBlobStorage reports binary upload availability. The HTTP trip server
// always ships its blob store.
func (h *HTTPStore) HasBlobStorage() bool {
	return true
}

// PutBlob uploads binary data and returns the URL assigned by the server.
func (h *HTTPStore) PutBlob(ctx context.Context, path string, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, h.baseURL+"/api/v1/blobs/"+path, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	h.setAuth(req)

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("blob upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("blob upload rejected with status %d", resp.StatusCode)
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode blob response: %w", err)
	}
	return out.URL, nil
}

// DeleteBlob removes the blob at path, mapping a 404 to ErrBlobNotFound.
func (h *HTTPStore) DeleteBlob(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, h.baseURL+"/api/v1/blobs/"+path, nil)
	if err != nil {
		return err
	}
	h.setAuth(req)

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("blob delete failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrBlobNotFound
	case resp.StatusCode >= 300:
		return fmt.Errorf("blob delete rejected with status %d", resp.StatusCode)
	}
	return nil
}

func (h *HTTPStore) setAuth(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
}

func (h *HTTPStore) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	h.setAuth(req)

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%s %s returned status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	} else {
		io.Copy(io.Discard, resp.Body)
	}
	return nil
}
