package share

import (
	"fmt"
	"net/url"
	"strings"
)

// SessionParam is the query key naming the persisted media to load.
const SessionParam = "currentVideoKey"

// Location is the transcript state carried by a URL: either a fragment
// token (legacy links) or a session key, or both.
type Location struct {
	Token    string
	VideoKey string
}

// ParseLocation extracts URL state from rawURL.
func ParseLocation(rawURL string) (Location, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return Location{}, fmt.Errorf("parse url: %w", err)
	}
	loc := Location{
		VideoKey: u.Query().Get(SessionParam),
	}
	// Tokens can contain '+', which url.Parse leaves intact in the fragment.
	if u.RawFragment != "" {
		loc.Token = u.RawFragment
	} else {
		loc.Token = u.Fragment
	}
	return loc, nil
}

// FragmentURL builds a shareable link carrying the whole transcript.
func FragmentURL(base, raw string) (string, error) {
	token, err := Encode(raw)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	if short := DeriveShortPath(raw); short != "" {
		u = u.JoinPath(short)
	}
	return u.String() + "#" + token, nil
}

// SessionURL builds a link that reopens a persisted media/transcript pair.
func SessionURL(base, videoKey string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	q := u.Query()
	q.Set(SessionParam, videoKey)
	u.RawQuery = q.Encode()
	u.Fragment = ""
	return u.String(), nil
}

// ResolveText returns subtitle text from input, which may be the text
// itself, a fragment token, or a link carrying one.
func ResolveText(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	switch {
	case strings.Contains(trimmed, "-->"):
		return input, nil
	case strings.Contains(trimmed, "://"):
		loc, err := ParseLocation(trimmed)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrDecode, err)
		}
		if loc.Token == "" {
			return "", fmt.Errorf("%w: link carries no transcript", ErrDecode)
		}
		return Decode(loc.Token)
	default:
		return Decode(trimmed)
	}
}
