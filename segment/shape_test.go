package segment

import (
	"math"
	"testing"
)

func shapedRamp(shape float32, n int, bipolar bool) []Output {
	out := make([]Output, n)
	for i := range out {
		out[i].Phase = float32(i) / float32(n)
	}
	shapeLFO(shape, out, bipolar)
	return out
}

func TestShapeLFOSineAtCenter(t *testing.T) {
	const n = 1000
	out := shapedRamp(0.5, n, true)
	for i, o := range out {
		phase := float64(i) / n
		want := -0.625 * math.Cos(2.0*math.Pi*phase)
		if math.Abs(float64(o.Value)-want) > 0.02 {
			t.Fatalf("sample %d: got %f, want %f", i, o.Value, want)
		}
	}
}

func TestShapeLFOSymmetricTriangle(t *testing.T) {
	// The shape parameter where the sine contribution reaches zero on the
	// triangle side.
	const triangleShape = 0.3571429
	const n = 1000
	out := shapedRamp(triangleShape, n, true)
	for i, o := range out {
		phase := float64(i) / n
		var want float64
		if phase < 0.5 {
			want = 0.625 * (4.0*phase - 1.0)
		} else {
			want = 0.625 * (3.0 - 4.0*phase)
		}
		if math.Abs(float64(o.Value)-want) > 0.02 {
			t.Fatalf("sample %d: got %f, want %f", i, o.Value, want)
		}
	}
}

func TestShapeLFOSquareAtMax(t *testing.T) {
	const n = 1000
	out := shapedRamp(1.0, n, true)

	saturated := 0
	positive := 0
	for _, o := range out {
		if absf32(o.Value) > 0.5 {
			saturated++
		}
		if o.Value > 0 {
			positive++
		}
	}
	if saturated < n*9/10 {
		t.Fatalf("square not saturated: %d of %d samples", saturated, n)
	}
	// Close to 50% duty.
	if positive < n*4/10 || positive > n*6/10 {
		t.Fatalf("square duty off: %d of %d positive", positive, n)
	}

	// The plateau pre-shifts the waveform by a quarter cycle: the first
	// half of the ramp is the high phase.
	if out[200].Value < 0.5 {
		t.Errorf("expected high plateau at phase 0.2, got %f", out[200].Value)
	}
	if out[700].Value > -0.5 {
		t.Errorf("expected low plateau at phase 0.7, got %f", out[700].Value)
	}
}

func TestShapeLFOUnipolarRange(t *testing.T) {
	for _, shape := range []float32{0.0, 0.25, 0.5, 0.75, 1.0} {
		out := shapedRamp(shape, 500, false)
		for i, o := range out {
			if o.Value < -1e-3 || o.Value > 1.0+1e-3 {
				t.Fatalf("shape %f sample %d: unipolar value out of range: %f", shape, i, o.Value)
			}
		}
	}
}

func TestShapeLFOSegmentHalves(t *testing.T) {
	out := shapedRamp(0.3571429, 1000, true)
	if out[100].Segment != 0 {
		t.Errorf("first half should report segment 0, got %d", out[100].Segment)
	}
	if out[900].Segment != 1 {
		t.Errorf("second half should report segment 1, got %d", out[900].Segment)
	}
}
