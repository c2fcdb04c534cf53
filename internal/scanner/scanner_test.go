package scanner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tapdeck/tapdeck/internal/models"
	"github.com/tapdeck/tapdeck/internal/shared"
	"github.com/tapdeck/tapdeck/internal/spotify"
	tu "github.com/tapdeck/tapdeck/internal/testing"
)

// fakeClock advances only when told to, so debounce windows are exact.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLoop(player *tu.MockPlayer, history History, clock *fakeClock) *Loop {
	return NewLoop(Opts{
		Reader:   &tu.ScriptedReader{},
		Player:   player,
		History:  history,
		Debounce: 3 * time.Second,
		Now:      clock.Now,
		Sleep:    func(ctx context.Context, d time.Duration) error { return nil },
	})
}

func TestHandlePayload(t *testing.T) {
	const uri = "spotify:album:0ETFjACtuP2ADo6LFhL6HN"

	t.Run("Successful Scan Plays Album", func(t *testing.T) {
		player := &tu.MockPlayer{}
		history := &tu.MemoryHistory{}
		loop := newTestLoop(player, history, newFakeClock())

		loop.HandlePayload(context.Background(), uri)

		if len(player.PlayCalls) != 1 {
			t.Fatalf("expected one play call, got %d", len(player.PlayCalls))
		}
		if player.PlayCalls[0].ContextURI != uri {
			t.Errorf("expected context %q, got %q", uri, player.PlayCalls[0].ContextURI)
		}
		if player.PlayCalls[0].DeviceID != "device-1" {
			t.Errorf("expected device-1, got %q", player.PlayCalls[0].DeviceID)
		}

		stats := loop.Stats()
		if stats.Scans != 1 || stats.Played != 1 || stats.Failures != 0 {
			t.Errorf("unexpected stats: %+v", stats)
		}

		if len(history.Scans) != 1 || history.Scans[0].Status != models.ScanPlayed {
			t.Errorf("expected one played history record, got %+v", history.Scans)
		}
	})

	t.Run("Repeat Within Window Is Debounced", func(t *testing.T) {
		player := &tu.MockPlayer{}
		history := &tu.MemoryHistory{}
		clock := newFakeClock()
		loop := newTestLoop(player, history, clock)

		loop.HandlePayload(context.Background(), uri)
		clock.Advance(time.Second)
		loop.HandlePayload(context.Background(), uri)

		if len(player.PlayCalls) != 1 {
			t.Errorf("expected debounce to discard the repeat, got %d play calls", len(player.PlayCalls))
		}
		if stats := loop.Stats(); stats.Scans != 1 {
			t.Errorf("debounced repeat must not count as a scan: %+v", stats)
		}
		if len(history.Scans) != 1 {
			t.Errorf("debounced repeat must not be recorded: %d records", len(history.Scans))
		}
	})

	t.Run("Repeat After Window Plays Again", func(t *testing.T) {
		player := &tu.MockPlayer{}
		clock := newFakeClock()
		loop := newTestLoop(player, nil, clock)

		loop.HandlePayload(context.Background(), uri)
		clock.Advance(4 * time.Second)
		loop.HandlePayload(context.Background(), uri)

		if len(player.PlayCalls) != 2 {
			t.Errorf("expected replay after the window, got %d play calls", len(player.PlayCalls))
		}
	})

	t.Run("Different Tag Inside Window Plays", func(t *testing.T) {
		player := &tu.MockPlayer{}
		clock := newFakeClock()
		loop := newTestLoop(player, nil, clock)

		loop.HandlePayload(context.Background(), uri)
		clock.Advance(time.Second)
		loop.HandlePayload(context.Background(), "spotify:album:4aawyAB9vmqN3uQ7FjRGTy")

		if len(player.PlayCalls) != 2 {
			t.Errorf("a different tag must never be debounced, got %d play calls", len(player.PlayCalls))
		}
	})

	t.Run("Equivalent Payload Shapes Share Debounce State", func(t *testing.T) {
		player := &tu.MockPlayer{}
		clock := newFakeClock()
		loop := newTestLoop(player, nil, clock)

		loop.HandlePayload(context.Background(), uri)
		clock.Advance(time.Second)
		loop.HandlePayload(context.Background(), "https://open.spotify.com/album/0ETFjACtuP2ADo6LFhL6HN")

		if len(player.PlayCalls) != 1 {
			t.Errorf("link form of the same album must debounce, got %d play calls", len(player.PlayCalls))
		}
	})

	t.Run("Invalid Payload Is A Failure", func(t *testing.T) {
		player := &tu.MockPlayer{}
		history := &tu.MemoryHistory{}
		loop := newTestLoop(player, history, newFakeClock())

		loop.HandlePayload(context.Background(), "not-a-uri")

		if len(player.PlayCalls) != 0 {
			t.Error("invalid payload must not reach the player")
		}
		if stats := loop.Stats(); stats.Scans != 1 || stats.Failures != 1 {
			t.Errorf("unexpected stats: %+v", stats)
		}
		if len(history.Scans) != 1 || history.Scans[0].Status != models.ScanFailed {
			t.Errorf("expected a failed history record, got %+v", history.Scans)
		}
	})

	t.Run("Failed Scan Does Not Update Debounce State", func(t *testing.T) {
		calls := 0
		player := &tu.MockPlayer{
			PlayFn: func(ctx context.Context, deviceID, contextURI string) error {
				calls++
				if calls == 1 {
					return shared.ErrTransient
				}
				return nil
			},
		}
		clock := newFakeClock()
		loop := newTestLoop(player, nil, clock)

		loop.HandlePayload(context.Background(), uri)
		clock.Advance(time.Second)
		// Retry within the window must not be debounced: the first tap
		// never reached playback.
		loop.HandlePayload(context.Background(), uri)

		if calls != 2 {
			t.Errorf("expected the retry to play, got %d play calls", calls)
		}
		if stats := loop.Stats(); stats.Scans != 2 || stats.Played != 1 || stats.Failures != 1 {
			t.Errorf("unexpected stats: %+v", stats)
		}
	})

	t.Run("No Device Is A Failure", func(t *testing.T) {
		player := &tu.MockPlayer{
			DevicesFn: func(ctx context.Context) ([]spotify.Device, error) {
				return nil, nil
			},
		}
		history := &tu.MemoryHistory{}
		loop := newTestLoop(player, history, newFakeClock())

		loop.HandlePayload(context.Background(), uri)

		if stats := loop.Stats(); stats.Failures != 1 {
			t.Errorf("unexpected stats: %+v", stats)
		}
		if len(history.Scans) != 1 || history.Scans[0].Status != models.ScanFailed {
			t.Errorf("expected a failed history record, got %+v", history.Scans)
		}
	})

	t.Run("Preferred Device Is Used", func(t *testing.T) {
		player := &tu.MockPlayer{
			DevicesFn: func(ctx context.Context) ([]spotify.Device, error) {
				return []spotify.Device{
					{ID: "other", IsActive: true},
					{ID: "preferred"},
				}, nil
			},
		}
		loop := NewLoop(Opts{
			Reader:          &tu.ScriptedReader{},
			Player:          player,
			PreferredDevice: "preferred",
			Now:             newFakeClock().Now,
		})

		loop.HandlePayload(context.Background(), uri)

		if len(player.PlayCalls) != 1 || player.PlayCalls[0].DeviceID != "preferred" {
			t.Errorf("expected playback on the preferred device, got %+v", player.PlayCalls)
		}
	})

	t.Run("History Failure Does Not Fail The Scan", func(t *testing.T) {
		player := &tu.MockPlayer{}
		history := &tu.MemoryHistory{Err: errors.New("disk full")}
		loop := newTestLoop(player, history, newFakeClock())

		loop.HandlePayload(context.Background(), uri)

		if stats := loop.Stats(); stats.Played != 1 || stats.Failures != 0 {
			t.Errorf("history failures must not affect the scan: %+v", stats)
		}
	})
}

func TestRun(t *testing.T) {
	const uri = "spotify:album:0ETFjACtuP2ADo6LFhL6HN"

	t.Run("Processes Until Cancelled", func(t *testing.T) {
		player := &tu.MockPlayer{}
		reader := &tu.ScriptedReader{
			Payloads: []string{uri, "spotify:album:4aawyAB9vmqN3uQ7FjRGTy"},
		}
		clock := newFakeClock()

		loop := NewLoop(Opts{
			Reader:   reader,
			Player:   player,
			Debounce: time.Millisecond,
			Now: func() time.Time {
				clock.Advance(time.Second)
				return clock.Now()
			},
		})

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		stats := loop.Run(ctx)

		if stats.Scans != 2 || stats.Played != 2 {
			t.Errorf("unexpected stats: %+v", stats)
		}
		if len(player.PlayCalls) != 2 {
			t.Errorf("expected 2 play calls, got %d", len(player.PlayCalls))
		}
	})

	t.Run("Reader Fault Keeps The Loop Alive", func(t *testing.T) {
		player := &tu.MockPlayer{}
		reader := &tu.ScriptedReader{
			Errs:     []error{errors.New("read timeout")},
			Payloads: []string{"", uri},
		}

		loop := NewLoop(Opts{
			Reader: reader,
			Player: player,
			Sleep:  func(ctx context.Context, d time.Duration) error { return nil },
		})

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		stats := loop.Run(ctx)

		if stats.Played != 1 {
			t.Errorf("expected the scan after the fault to play: %+v", stats)
		}
	})
}
