// Package share turns transcripts into compact URL-safe tokens and back, and
// reads and writes the two URL state forms (fragment token and session key).
package share

import (
	"errors"
	"fmt"
	"strings"

	lzstring "github.com/daku10/go-lz-string"
)

// ErrDecode is returned for tokens that do not decompress to a transcript.
var ErrDecode = errors.New("decode failure")

// emptyToken is what Encode produces for empty text.
var emptyToken, _ = lzstring.CompressToEncodedURIComponent("")

// shortPathPrefix is how many runes of the raw text feed DeriveShortPath.
const shortPathPrefix = 20

// Encode compresses raw transcript text into a fragment token.
func Encode(raw string) (string, error) {
	token, err := lzstring.CompressToEncodedURIComponent(raw)
	if err != nil {
		return "", fmt.Errorf("encode transcript: %w", err)
	}
	return token, nil
}

// Decode restores transcript text from a fragment token.
func Decode(token string) (raw string, err error) {
	token = strings.TrimPrefix(strings.TrimSpace(token), "#")
	if token == "" {
		return "", fmt.Errorf("%w: empty token", ErrDecode)
	}
	if i := strings.IndexFunc(token, func(r rune) bool { return !isTokenRune(r) }); i >= 0 {
		return "", fmt.Errorf("%w: invalid character %q at %d", ErrDecode, token[i], i)
	}

	defer func() {
		if r := recover(); r != nil {
			raw, err = "", fmt.Errorf("%w: %v", ErrDecode, r)
		}
	}()

	raw, err = lzstring.DecompressFromEncodedURIComponent(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if raw == "" && token != emptyToken {
		return "", fmt.Errorf("%w: token decompressed to nothing", ErrDecode)
	}
	return raw, nil
}

// DeriveShortPath builds a short, letters-only label from the start of the
// transcript. It is not reversible.
func DeriveShortPath(raw string) string {
	prefix := []rune(raw)
	if len(prefix) > shortPathPrefix {
		prefix = prefix[:shortPathPrefix]
	}
	compressed, err := lzstring.CompressToEncodedURIComponent(string(prefix))
	if err != nil {
		return ""
	}
	return strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
			return r
		}
		return -1
	}, compressed)
}

func isTokenRune(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	case r == '+', r == '-', r == '$':
		return true
	}
	return false
}
