package runner

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/concierge/pkg/domain"
)

const (
	// DefaultMaxInputSize bounds one utterance or one form value, in bytes.
	DefaultMaxInputSize = 4096
	// EnvMaxInputSize overrides DefaultMaxInputSize.
	EnvMaxInputSize = "CONCIERGE_MAX_INPUT_SIZE"
)

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// SanitizeInput rejects oversized or non UTF-8 input and drops control
// characters other than newline, tab and carriage return. Terminal escape
// sequences therefore lose their ESC byte and render as plain text.
func SanitizeInput(input string) (string, error) {
	if limit := MaxInputSize(); len(input) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}
	if strings.IndexFunc(input, unsafeControl) < 0 {
		return input, nil
	}
	return strings.Map(func(r rune) rune {
		if unsafeControl(r) {
			return -1
		}
		return r
	}, input), nil
}

func unsafeControl(r rune) bool {
	switch r {
	case '\n', '\t', '\r':
		return false
	}
	return unicode.IsControl(r)
}

// SanitizeValues applies SanitizeInput to every value of a submitted draft.
// The first failure is reported with its field name.
func SanitizeValues(values domain.Draft) (domain.Draft, error) {
	var out domain.Draft
	for _, k := range values.Keys() {
		clean, err := SanitizeInput(values.Value(k))
		if err != nil {
			return domain.Draft{}, fmt.Errorf("%s: %w", k, err)
		}
		out.Set(k, clean)
	}
	return out, nil
}

// MaxInputSize returns the input limit, honoring EnvMaxInputSize.
func MaxInputSize() int {
	if size, err := strconv.Atoi(os.Getenv(EnvMaxInputSize)); err == nil && size > 0 {
		return size
	}
	return DefaultMaxInputSize
}
