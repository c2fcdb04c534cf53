// Package scanner runs the tag-to-playback control loop.
//
// The loop is a single logical thread: it blocks in the reader, and at
// most one scan is processed at a time. A failure in any processing
// step is contained to that scan; only cancellation stops the loop.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tapdeck/tapdeck/internal/models"
	"github.com/tapdeck/tapdeck/internal/reader"
	"github.com/tapdeck/tapdeck/internal/shared"
	"github.com/tapdeck/tapdeck/internal/spotify"
	"github.com/tapdeck/tapdeck/internal/tags"
)

const (
	// DefaultDebounce is the minimum time before an identical tag
	// identifier is treated as a new scan.
	DefaultDebounce = 3 * time.Second

	// faultBackoff is the pause after a reader fault before blocking
	// on the reader again.
	faultBackoff = 2 * time.Second
)

// Player is the playback surface the loop drives.
// Implemented by [spotify.Client].
type Player interface {
	Devices(ctx context.Context) ([]spotify.Device, error)
	Album(ctx context.Context, identifier string) (*spotify.Album, error)
	Play(ctx context.Context, deviceID, contextURI string) error
}

// History receives processed scans for the history log. Recording is
// best-effort; failures are logged and never affect the loop.
type History interface {
	Create(scan *models.Scan) error
}

// Stats summarizes a loop run.
type Stats struct {
	Scans    int // payloads that entered processing (debounced reads excluded)
	Played   int // scans that started playback
	Failures int // scans that failed at any step
}

// Opts configures a Loop.
type Opts struct {
	Reader          reader.Reader
	Player          Player
	History         History // optional
	Logger          *log.Logger
	PreferredDevice string
	Debounce        time.Duration
	Now             func() time.Time
	Sleep           func(ctx context.Context, d time.Duration) error
}

// Loop waits for tags, debounces repeats, and triggers playback.
type Loop struct {
	reader          reader.Reader
	player          Player
	history         History
	logger          *log.Logger
	preferredDevice string
	debounce        time.Duration
	now             func() time.Time
	sleep           func(ctx context.Context, d time.Duration) error

	// debounce state: the previous successfully processed identifier
	lastURI     string
	lastSuccess time.Time

	stats Stats
}

// NewLoop creates a scan loop from the provided options.
func NewLoop(opts Opts) *Loop {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return nil
			}
		}
	}

	return &Loop{
		reader:          opts.Reader,
		player:          opts.Player,
		history:         opts.History,
		logger:          opts.Logger,
		preferredDevice: opts.PreferredDevice,
		debounce:        opts.Debounce,
		now:             opts.Now,
		sleep:           opts.Sleep,
	}
}

// Run blocks until the context is cancelled, processing one scan at a
// time. Returns the run summary.
func (l *Loop) Run(ctx context.Context) Stats {
	l.logger.Info("scan loop running, waiting for tags")

	for {
		payload, err := l.reader.Read(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				l.logger.Info("scan loop stopped",
					"scans", l.stats.Scans, "played", l.stats.Played, "failures", l.stats.Failures)
				return l.stats
			}

			l.logger.Error("reader fault", "error", err)
			if l.sleep(ctx, faultBackoff) != nil {
				return l.stats
			}
			continue
		}

		l.HandlePayload(ctx, payload)

		if ctx.Err() != nil {
			return l.stats
		}
	}
}

// HandlePayload runs one payload through debounce and processing.
func (l *Loop) HandlePayload(ctx context.Context, payload string) {
	uri, err := tags.Normalize(payload)
	if err != nil {
		l.stats.Scans++
		l.stats.Failures++
		l.logger.Error("scan failed", "step", "normalize", "error", err,
			"payload", tags.Sanitize(payload))
		l.record(models.NewScan(tags.Sanitize(payload), models.ScanFailed), "", "", "", err)
		return
	}

	// An identical identifier inside the debounce window is the same
	// physical tap still on the reader: discard without side effects.
	if uri == l.lastURI && l.now().Sub(l.lastSuccess) < l.debounce {
		l.logger.Debug("debounced repeat scan", "uri", uri)
		return
	}

	l.stats.Scans++
	l.logger.Info("tag scanned", "uri", uri)

	if err := l.process(ctx, uri); err != nil {
		l.stats.Failures++
		return
	}

	l.stats.Played++
	l.lastURI = uri
	l.lastSuccess = l.now()
}

// process resolves the album, selects a device, and starts playback.
// Each step's failure is reported with the step name and contained here.
func (l *Loop) process(ctx context.Context, uri string) error {
	album, err := l.player.Album(ctx, uri)
	if err != nil {
		l.logger.Error("scan failed", "step", "resolve", "uri", uri, "error", err)
		l.record(models.NewScan(uri, models.ScanFailed), "", "", "", err)
		return err
	}

	l.logger.Info("resolved album", "album", album.Name, "artist", album.ArtistNames())

	devices, err := l.player.Devices(ctx)
	if err != nil {
		l.logger.Error("scan failed", "step", "devices", "uri", uri, "error", err)
		l.record(models.NewScan(uri, models.ScanFailed), album.Name, album.ArtistNames(), "", err)
		return err
	}

	device, err := spotify.SelectDevice(devices, l.preferredDevice)
	if err != nil {
		l.logger.Error("scan failed", "step", "device-select", "uri", uri, "error", err)
		l.record(models.NewScan(uri, models.ScanFailed), album.Name, album.ArtistNames(), "", err)
		return err
	}

	if err := l.player.Play(ctx, device.ID, uri); err != nil {
		l.logger.Error("scan failed", "step", "play", "uri", uri, "device", device.Name, "error", err)
		l.record(models.NewScan(uri, models.ScanFailed), album.Name, album.ArtistNames(), device.ID, err)
		return err
	}

	l.logger.Info("playing album", "album", album.Name, "device", device.Name)
	l.record(models.NewScan(uri, models.ScanPlayed), album.Name, album.ArtistNames(), device.ID, nil)

	return nil
}

// record appends a scan to history when a history sink is configured.
func (l *Loop) record(scan *models.Scan, albumName, artist, deviceID string, cause error) {
	if l.history == nil {
		return
	}

	scan.AlbumName = albumName
	scan.Artist = artist
	scan.DeviceID = deviceID
	if cause != nil {
		scan.Error = fmt.Sprintf("%v", cause)
	}

	if err := l.history.Create(scan); err != nil {
		l.logger.Warn("failed to record scan history", "error", err)
	}
}

// Stats returns the counters accumulated so far.
func (l *Loop) Stats() Stats {
	return l.stats
}
