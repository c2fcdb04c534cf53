// package testing contains shared testing utilities
package testing

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/tapdeck/tapdeck/internal/models"
	"github.com/tapdeck/tapdeck/internal/spotify"
)

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	responses []*http.Response
	err       error
	calls     int
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{responses: []*http.Response{r}, err: e}
}

// NewSequenceRoundTripper returns each response in order, repeating the
// last one once the sequence is exhausted.
func NewSequenceRoundTripper(responses ...*http.Response) *MockRoundTripper {
	return &MockRoundTripper{responses: responses}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	if m.err != nil {
		return nil, m.err
	}
	i := m.calls
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	m.calls++
	return m.responses[i], nil
}

// Calls returns how many requests the round tripper served.
func (m *MockRoundTripper) Calls() int { return m.calls }

// JSONResponse builds an [http.Response] with the given status and body.
func JSONResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

// ScriptedReader is a test double for [reader.Reader] yielding a fixed
// sequence of payloads, then blocking until cancelled.
type ScriptedReader struct {
	Payloads []string
	Errs     []error
	Written  []string
	idx      int
}

func (s *ScriptedReader) Read(ctx context.Context) (string, error) {
	if s.idx < len(s.Errs) && s.Errs[s.idx] != nil {
		err := s.Errs[s.idx]
		s.idx++
		return "", err
	}
	if s.idx < len(s.Payloads) {
		payload := s.Payloads[s.idx]
		s.idx++
		return payload, nil
	}
	<-ctx.Done()
	return "", ctx.Err()
}

func (s *ScriptedReader) Write(ctx context.Context, payload string) error {
	s.Written = append(s.Written, payload)
	return nil
}

func (s *ScriptedReader) Close() error { return nil }

// PlayCall records one Play invocation on the mock player.
type PlayCall struct {
	DeviceID   string
	ContextURI string
}

// MockPlayer is a test double for the scanner's Player dependency.
// Zero value resolves every album and plays on a single active device;
// the function fields override individual operations.
type MockPlayer struct {
	DevicesFn func(ctx context.Context) ([]spotify.Device, error)
	AlbumFn   func(ctx context.Context, identifier string) (*spotify.Album, error)
	PlayFn    func(ctx context.Context, deviceID, contextURI string) error

	PlayCalls []PlayCall
}

func (m *MockPlayer) Devices(ctx context.Context) ([]spotify.Device, error) {
	if m.DevicesFn != nil {
		return m.DevicesFn(ctx)
	}
	return []spotify.Device{{ID: "device-1", Name: "Living Room", IsActive: true}}, nil
}

func (m *MockPlayer) Album(ctx context.Context, identifier string) (*spotify.Album, error) {
	if m.AlbumFn != nil {
		return m.AlbumFn(ctx, identifier)
	}
	return &spotify.Album{
		ID:      "album-1",
		Name:    "Test Album",
		Artists: []spotify.Artist{{Name: "Test Artist"}},
		URI:     identifier,
	}, nil
}

func (m *MockPlayer) Play(ctx context.Context, deviceID, contextURI string) error {
	m.PlayCalls = append(m.PlayCalls, PlayCall{DeviceID: deviceID, ContextURI: contextURI})
	if m.PlayFn != nil {
		return m.PlayFn(ctx, deviceID, contextURI)
	}
	return nil
}

// MemoryHistory collects scan records in memory.
type MemoryHistory struct {
	Scans []*models.Scan
	Err   error
}

func (h *MemoryHistory) Create(scan *models.Scan) error {
	if h.Err != nil {
		return h.Err
	}
	h.Scans = append(h.Scans, scan)
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}
