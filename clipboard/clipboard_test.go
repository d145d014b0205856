package clipboard

import (
	"errors"
	"testing"
)

func TestCopyRoundTrip(t *testing.T) {
	if !Available() {
		if err := Copy("x"); !errors.Is(err, ErrUnavailable) {
			t.Fatalf("Copy without clipboard = %v", err)
		}
		t.Skip("no clipboard utility")
	}
	if err := Copy("note text"); err != nil {
		t.Skipf("clipboard not writable here: %v", err)
	}
	got, err := Read()
	if err != nil {
		t.Fatal(err)
	}
	if got != "note text" {
		t.Errorf("Read = %q", got)
	}
}
