// package tags normalizes raw NFC payloads into canonical Spotify album URIs
package tags

import (
	"fmt"
	"strings"

	"github.com/tapdeck/tapdeck/internal/shared"
)

// URIPrefix is the canonical album URI prefix.
const URIPrefix = "spotify:album:"

const webLinkMarker = "open.spotify.com/album/"

// Normalize converts a raw tag payload to the canonical
// "spotify:album:<id>" form.
//
// Three payload shapes are accepted: the canonical URI itself, an
// open.spotify.com album link, and a bare album ID. All three normalize
// to the identical canonical string for the same underlying ID.
// Anything else fails with [shared.ErrInvalidTag].
func Normalize(raw string) (string, error) {
	payload := Sanitize(raw)
	if payload == "" {
		return "", fmt.Errorf("%w: empty payload", shared.ErrInvalidTag)
	}

	switch {
	case strings.HasPrefix(payload, "spotify:"):
		id := strings.TrimPrefix(payload, URIPrefix)
		if id == payload {
			return "", fmt.Errorf("%w: not an album URI: %q", shared.ErrInvalidTag, payload)
		}
		return canonical(id)

	case strings.Contains(payload, webLinkMarker):
		rest := payload[strings.Index(payload, webLinkMarker)+len(webLinkMarker):]
		id := rest
		if i := strings.IndexAny(id, "?/#"); i >= 0 {
			id = id[:i]
		}
		return canonical(id)

	case strings.Contains(payload, ":") || strings.Contains(payload, "/"):
		return "", fmt.Errorf("%w: unrecognized payload: %q", shared.ErrInvalidTag, payload)

	default:
		// Bare album ID
		return canonical(payload)
	}
}

// Serialize returns the exact payload to write to a tag for the given
// identifier. The output is always the canonical URI form so a written
// tag is guaranteed to normalize back to the same identifier.
func Serialize(identifier string) (string, error) {
	normalized, err := Normalize(identifier)
	if err != nil {
		return "", err
	}
	return normalized, nil
}

// Sanitize strips the NUL padding and whitespace that NDEF text blocks
// carry around the payload.
func Sanitize(raw string) string {
	return strings.TrimSpace(strings.Trim(raw, "\x00 \t\r\n"))
}

func canonical(id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("%w: empty album id", shared.ErrInvalidTag)
	}
	if !validID(id) {
		return "", fmt.Errorf("%w: malformed album id: %q", shared.ErrInvalidTag, id)
	}
	return URIPrefix + id, nil
}

// validID reports whether id is a plausible base62 Spotify ID.
func validID(id string) bool {
	for _, r := range id {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		default:
			return false
		}
	}
	return true
}

// ID extracts the bare album ID from a canonical URI.
func ID(identifier string) string {
	return strings.TrimPrefix(identifier, URIPrefix)
}
