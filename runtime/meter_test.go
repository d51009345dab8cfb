package runtime

import (
	"testing"

	"github.com/pkg/errors"
)

func TestComputeMeter(t *testing.T) {
	m := NewComputeMeter(1000)
	if err := m.Charge(400); err != nil {
		t.Fatal(err)
	}
	if got := m.Used(); got != 400 {
		t.Errorf("used: got %d, want 400", got)
	}
	if got := m.Remaining(); got != 600 {
		t.Errorf("remaining: got %d, want 600", got)
	}
	if err := m.Charge(600); err != nil {
		t.Fatal(err)
	}
	err := m.Charge(1)
	if errors.Cause(err) != ErrComputeExceeded {
		t.Errorf("got %v, want ErrComputeExceeded", err)
	}
	if got := m.Remaining(); got != 0 {
		t.Errorf("remaining after exceed: got %d, want 0", got)
	}
}

func TestRentFor(t *testing.T) {
	cases := []struct {
		size int
		want uint64
	}{
		{0, 0},
		{1, LamportsPerByte},
		{352, 352 * LamportsPerByte},
	}
	for _, c := range cases {
		if got := RentFor(c.size); got != c.want {
			t.Errorf("RentFor(%d): got %d, want %d", c.size, got, c.want)
		}
	}
}
