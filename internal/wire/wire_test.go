package wire

import (
	"errors"
	"math"
	"testing"
)

func TestEncode_BigEndianLayout(t *testing.T) {
	f := Encode(0x0102, 0x0304)
	want := Frame{0x01, 0x02, 0x03, 0x04}
	if f != want {
		t.Errorf("expected %v, got %v", want, f)
	}
}

func TestEncode_Saturates(t *testing.T) {
	tests := []struct {
		slide, step int
		wantSlide   int
		wantStep    int
	}{
		{3, 2, 3, 2},
		{65535, 65535, 65535, 65535},
		{65536, 1, 65535, 1},
		{1, math.MaxInt, 1, 65535},
		{-4, 2, 0, 2},
	}
	for _, tt := range tests {
		f := Encode(tt.slide, tt.step)
		slide, step, err := Decode(f[:])
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if slide != tt.wantSlide || step != tt.wantStep {
			t.Errorf("Encode(%d, %d): expected (%d, %d), got (%d, %d)",
				tt.slide, tt.step, tt.wantSlide, tt.wantStep, slide, step)
		}
	}
}

func TestDecode_RejectsWrongLength(t *testing.T) {
	for _, n := range []int{0, 3, 5, 64} {
		_, _, err := Decode(make([]byte, n))
		if !errors.Is(err, ErrFrameSize) {
			t.Errorf("length %d: expected ErrFrameSize, got %v", n, err)
		}
	}
}
