package clipboard

import (
	"errors"
	"testing"
)

func TestCopyRead(t *testing.T) {
	if !Available() {
		if err := Copy("x"); !errors.Is(err, ErrUnsupported) {
			t.Errorf("Copy() = %v, want ErrUnsupported", err)
		}
		t.Skip("no clipboard utility")
	}
	if err := Copy("**Overall Accuracy**: 9/10"); err != nil {
		t.Skipf("clipboard not usable here: %v", err)
	}
	got, err := Read()
	if err != nil {
		t.Fatal(err)
	}
	if got != "**Overall Accuracy**: 9/10" {
		t.Errorf("Read() = %q", got)
	}
}
