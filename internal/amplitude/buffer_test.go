package amplitude

import "testing"

func TestNewEventBufferPadding(t *testing.T) {
	buf := NewEventBuffer(3, 5)
	if buf.NTrue != 5 {
		t.Errorf("expected NTrue 5, got %d", buf.NTrue)
	}
	if buf.NPadded != 8 {
		t.Errorf("expected NPadded 8, got %d", buf.NPadded)
	}
	if len(buf.FourVectors) != 3*8*4 {
		t.Errorf("expected four-vector block of %d, got %d", 3*8*4, len(buf.FourVectors))
	}
	for e := 0; e < buf.NPadded; e++ {
		if buf.Weights[e] != 1 {
			t.Errorf("expected default weight 1 at event %d, got %v", e, buf.Weights[e])
		}
	}
}

func TestEventBufferFourVectorRoundTrip(t *testing.T) {
	buf := NewEventBuffer(2, 4)
	buf.SetFourVector(0, 2, 1.5, 0.1, 0.2, 0.3)
	buf.SetFourVector(1, 2, 2.5, -0.1, -0.2, -0.3)

	got0 := buf.FourVector(0, 2)
	want0 := [4]float64{1.5, 0.1, 0.2, 0.3}
	if got0 != want0 {
		t.Errorf("particle 0 event 2: got %v, want %v", got0, want0)
	}

	got1 := buf.FourVector(1, 2)
	want1 := [4]float64{2.5, -0.1, -0.2, -0.3}
	if got1 != want1 {
		t.Errorf("particle 1 event 2: got %v, want %v", got1, want1)
	}

	// An untouched event should remain zeroed.
	if got := buf.FourVector(0, 0); got != [4]float64{} {
		t.Errorf("untouched event should be zero, got %v", got)
	}
}
