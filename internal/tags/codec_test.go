package tags

import (
	"errors"
	"strings"
	"testing"

	"github.com/tapdeck/tapdeck/internal/shared"
)

func TestNormalize(t *testing.T) {
	const id = "0ETFjACtuP2ADo6LFhL6HN"
	const want = "spotify:album:0ETFjACtuP2ADo6LFhL6HN"

	t.Run("Accepted Shapes", func(t *testing.T) {
		cases := []struct {
			name  string
			input string
		}{
			{"Canonical URI", "spotify:album:" + id},
			{"Web Link", "https://open.spotify.com/album/" + id},
			{"Web Link With Query", "https://open.spotify.com/album/" + id + "?si=abc123"},
			{"Bare ID", id},
			{"Surrounding Whitespace", "  spotify:album:" + id + "\n"},
			{"Trailing NUL Padding", id + "\x00\x00"},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				got, err := Normalize(tc.input)
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if got != want {
					t.Errorf("expected %q, got %q", want, got)
				}
			})
		}
	})

	t.Run("Rejected Shapes", func(t *testing.T) {
		cases := []struct {
			name  string
			input string
		}{
			{"Empty", ""},
			{"Whitespace Only", "   "},
			{"Not A URI", "not-a-uri"},
			{"Track URI", "spotify:track:" + id},
			{"Invalid Characters", "spotify:album:abc!def"},
			{"Track Web Link", "https://open.spotify.com/track/" + id},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := Normalize(tc.input)
				if !errors.Is(err, shared.ErrInvalidTag) {
					t.Errorf("expected ErrInvalidTag, got %v", err)
				}
			})
		}
	})

	t.Run("All Shapes Converge", func(t *testing.T) {
		inputs := []string{
			"spotify:album:" + id,
			"https://open.spotify.com/album/" + id,
			id,
		}

		seen := map[string]bool{}
		for _, input := range inputs {
			got, err := Normalize(input)
			if err != nil {
				t.Fatalf("Normalize(%q) failed: %v", input, err)
			}
			seen[got] = true
		}

		if len(seen) != 1 {
			t.Errorf("expected one canonical form, got %d: %v", len(seen), seen)
		}
	})
}

func TestSerialize(t *testing.T) {
	const id = "0ETFjACtuP2ADo6LFhL6HN"

	t.Run("Always Canonical", func(t *testing.T) {
		for _, input := range []string{id, "spotify:album:" + id, "https://open.spotify.com/album/" + id} {
			got, err := Serialize(input)
			if err != nil {
				t.Fatalf("Serialize(%q) failed: %v", input, err)
			}
			if got != "spotify:album:"+id {
				t.Errorf("expected canonical URI, got %q", got)
			}
		}
	})

	t.Run("Round Trip", func(t *testing.T) {
		payload, err := Serialize(id)
		if err != nil {
			t.Fatalf("serialize failed: %v", err)
		}

		back, err := Normalize(payload)
		if err != nil {
			t.Fatalf("normalize failed: %v", err)
		}

		if back != payload {
			t.Errorf("round trip changed payload: %q != %q", back, payload)
		}
	})

	t.Run("Invalid Input", func(t *testing.T) {
		if _, err := Serialize("spotify:playlist:abc"); !errors.Is(err, shared.ErrInvalidTag) {
			t.Errorf("expected ErrInvalidTag, got %v", err)
		}
	})
}

func TestSanitize(t *testing.T) {
	got := Sanitize("\x00 spotify:album:abc \x00\n")
	if got != "spotify:album:abc" {
		t.Errorf("expected trimmed payload, got %q", got)
	}
}

func TestID(t *testing.T) {
	const id = "0ETFjACtuP2ADo6LFhL6HN"

	if got := ID("spotify:album:" + id); got != id {
		t.Errorf("expected %q, got %q", id, got)
	}
	if got := ID(id); got != id {
		t.Errorf("expected bare ID unchanged, got %q", got)
	}
	if strings.Contains(ID("spotify:album:"+id), ":") {
		t.Error("ID should not contain URI separators")
	}
}
