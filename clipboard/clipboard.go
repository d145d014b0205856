// Package clipboard holds transcriptions that have no note to go into.
package clipboard

import (
	"errors"

	cb "github.com/atotto/clipboard"
)

// ErrUnavailable means no clipboard utility (xclip, xsel, wl-copy) exists.
var ErrUnavailable = errors.New("clipboard unavailable")

func Available() bool { return !cb.Unsupported }

func Copy(text string) error {
	if cb.Unsupported {
		return ErrUnavailable
	}
	return cb.WriteAll(text)
}

func Read() (string, error) {
	if cb.Unsupported {
		return "", ErrUnavailable
	}
	return cb.ReadAll()
}
