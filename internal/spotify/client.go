package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tapdeck/tapdeck/internal/shared"
	"github.com/tapdeck/tapdeck/internal/tags"
	"golang.org/x/time/rate"
)

const (
	spotifyBaseURL = "https://api.spotify.com/v1"

	// requestTimeout bounds every remote call so a wedged request
	// surfaces as transient instead of blocking the scan loop.
	requestTimeout = 30 * time.Second

	// transferSettle is the brief pause between transferring playback
	// and issuing the start-context command.
	transferSettle = 500 * time.Millisecond
)

// TokenProvider supplies valid access tokens for API requests.
// Implemented by [auth.Authorizer].
type TokenProvider interface {
	// Token returns an access token valid for immediate use.
	Token(ctx context.Context) (string, error)

	// ForceRefresh refreshes the token after the API rejected it.
	ForceRefresh(ctx context.Context) error
}

// Client wraps the Spotify Web API playback surface: device listing,
// playback transfer, context playback, album metadata, and search.
//
// Every request carries a bearer token from the TokenProvider. A request
// rejected with 401 triggers exactly one transparent refresh-and-retry;
// all other error classes surface immediately.
type Client struct {
	baseURL    string
	tokens     TokenProvider
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewClient creates a playback client backed by the given token provider.
func NewClient(tokens TokenProvider, logger *log.Logger) *Client {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Client{
		baseURL:    spotifyBaseURL,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: requestTimeout},
		limiter:    rate.NewLimiter(rate.Limit(10), 5),
		logger:     logger,
		sleep:      sleepCtx,
	}
}

// Devices lists the user's available playback devices.
// An empty list is a valid result, not an error.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	var list deviceList
	if err := c.doRequest(ctx, http.MethodGet, "/me/player/devices", nil, &list); err != nil {
		return nil, err
	}
	return list.Devices, nil
}

// SelectDevice picks the playback target from the listed devices.
//
// Preference order: the configured preferred ID when present in the
// list, the only device when exactly one is listed, the first active
// device, then the first device overall. An empty list fails with
// [shared.ErrNoDevice].
func SelectDevice(devices []Device, preferredID string) (Device, error) {
	if len(devices) == 0 {
		return Device{}, fmt.Errorf("%w: open Spotify on a device first", shared.ErrNoDevice)
	}

	if preferredID != "" {
		for _, d := range devices {
			if d.ID == preferredID {
				return d, nil
			}
		}
	}

	if len(devices) == 1 {
		return devices[0], nil
	}

	for _, d := range devices {
		if d.IsActive {
			return d, nil
		}
	}

	return devices[0], nil
}

// Album fetches album metadata for a canonical identifier or bare ID.
func (c *Client) Album(ctx context.Context, identifier string) (*Album, error) {
	var album Album
	endpoint := fmt.Sprintf("/albums/%s", tags.ID(identifier))
	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &album); err != nil {
		return nil, err
	}
	return &album, nil
}

// SearchAlbums searches the catalog for albums matching the query.
func (c *Client) SearchAlbums(ctx context.Context, query string, limit int) ([]Album, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	endpoint := fmt.Sprintf("/search?q=%s&type=album&limit=%d", url.QueryEscape(query), limit)

	var response albumSearchResponse
	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	return response.Albums.Items, nil
}

// Transfer moves playback to the given device without starting it.
// Idempotent when the device is already active.
func (c *Client) Transfer(ctx context.Context, deviceID string) error {
	body := transferRequest{DeviceIDs: []string{deviceID}, Play: false}
	return c.doRequest(ctx, http.MethodPut, "/me/player", body, nil)
}

// StartPlayback issues a start-context command on the device.
func (c *Client) StartPlayback(ctx context.Context, deviceID, contextURI string) error {
	endpoint := fmt.Sprintf("/me/player/play?device_id=%s", url.QueryEscape(deviceID))
	return c.doRequest(ctx, http.MethodPut, endpoint, playRequest{ContextURI: contextURI}, nil)
}

// Play transfers playback to the device, waits briefly for the transfer
// to settle, then starts the context.
func (c *Client) Play(ctx context.Context, deviceID, contextURI string) error {
	if err := c.Transfer(ctx, deviceID); err != nil {
		return fmt.Errorf("transfer playback: %w", err)
	}

	if err := c.sleep(ctx, transferSettle); err != nil {
		return err
	}

	if err := c.StartPlayback(ctx, deviceID, contextURI); err != nil {
		return fmt.Errorf("start playback: %w", err)
	}

	return nil
}

// doRequest performs an authenticated request with status
// classification and the single refresh-and-retry on 401.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, body any, result any) error {
	status, err := c.send(ctx, method, endpoint, body, result)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized {
		c.logger.Debug("token rejected, refreshing once", "endpoint", endpoint)
		if err := c.tokens.ForceRefresh(ctx); err != nil {
			return err
		}

		status, err = c.send(ctx, method, endpoint, body, result)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			return fmt.Errorf("%w: token rejected after refresh", shared.ErrAuthFailed)
		}
	}

	return classifyStatus(status, endpoint)
}

// send executes a single request attempt and decodes the result on
// 2xx. Transport failures map to transient errors.
func (c *Client) send(ctx context.Context, method, endpoint string, body any, result any) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("%w: %v", shared.ErrTimeout, err)
		}
		return 0, fmt.Errorf("%w: %v", shared.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 && result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return resp.StatusCode, nil
}

// classifyStatus maps an HTTP status to the error taxonomy. The player
// endpoints return 404 when the target device dropped off the network,
// everything else returns it for a missing resource.
func classifyStatus(status int, endpoint string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusForbidden:
		return fmt.Errorf("%w: status %d on %s", shared.ErrScopeMissing, status, endpoint)
	case status == http.StatusNotFound:
		if isPlayerEndpoint(endpoint) {
			return fmt.Errorf("%w: status %d on %s", shared.ErrDeviceUnreachable, status, endpoint)
		}
		return fmt.Errorf("%w: status %d on %s", shared.ErrNotFound, status, endpoint)
	case status == http.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("%w: status %d on %s", shared.ErrTransient, status, endpoint)
	default:
		return fmt.Errorf("spotify API error: status %d on %s", status, endpoint)
	}
}

func isPlayerEndpoint(endpoint string) bool {
	return len(endpoint) >= len("/me/player") && endpoint[:len("/me/player")] == "/me/player"
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
