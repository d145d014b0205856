package action

import (
	"fmt"
	"io"
	"strings"

	"github.com/epiclabs-io/diff3"
)

// Merge3 merges the changes from original to live with those from original
// to proposed. Overlapping changes fail with ErrMergeConflict.
func Merge3(live, original, proposed string) (string, error) {
	switch {
	case live == original:
		return proposed, nil
	case proposed == original, proposed == live:
		return live, nil
	}

	// Proposals come back trimmed, so line endings at EOF are not a change.
	eol := strings.HasSuffix(live, "\n")
	live = strings.TrimRight(live, "\n")
	original = strings.TrimRight(original, "\n")
	proposed = strings.TrimRight(proposed, "\n")
	if proposed == original || proposed == live {
		return restoreEOL(live, eol), nil
	}

	res, err := diff3.Merge(
		strings.NewReader(live),
		strings.NewReader(original),
		strings.NewReader(proposed),
		true, "live", "proposed",
	)
	if err != nil {
		return "", fmt.Errorf("merge: %w", err)
	}
	if res.Conflicts {
		return "", ErrMergeConflict
	}
	out, err := io.ReadAll(res.Result)
	if err != nil {
		return "", fmt.Errorf("merge: %w", err)
	}

	return restoreEOL(strings.TrimRight(string(out), "\n"), eol), nil
}

func restoreEOL(s string, eol bool) string {
	if eol {
		return s + "\n"
	}
	return s
}
