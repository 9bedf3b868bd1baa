package position

import (
	"math"
	"testing"
)

func f(v float64) *float64 { return &v }

func TestNext(t *testing.T) {
	if got := Next(0, false); got != Gap {
		t.Errorf("Next(empty) = %v, want %v", got, Gap)
	}
	if got := Next(3000, true); got != 4000 {
		t.Errorf("Next(3000) = %v, want 4000", got)
	}
}

func TestNext_SequentialCreates(t *testing.T) {
	const n = 25
	max, has := 0.0, false
	for i := 1; i <= n; i++ {
		p := Next(max, has)
		if has && p <= max {
			t.Fatalf("position %v not greater than %v", p, max)
		}
		max, has = p, true
	}
	if max != n*Gap {
		t.Errorf("final position = %v, want %v", max, n*Gap)
	}
}

func TestBetween(t *testing.T) {
	tests := []struct {
		name          string
		before, after *float64
		want          float64
		ok            bool
	}{
		{"no neighbours", nil, nil, Gap, true},
		{"head", nil, f(1000), 0, true},
		{"tail", f(5000), nil, 6000, true},
		{"middle", f(1000), f(2000), 1500, true},
		{"negative head", nil, f(-500), -1500, true},
		{"exhausted", f(1), f(1 + MinGap/2), 0, false},
		{"equal", f(7), f(7), 0, false},
		{"reversed", f(9), f(3), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Between(tt.before, tt.after)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("Between = %v, want %v", got, tt.want)
			}
		})
	}
}

// Repeatedly inserting at the front of the same gap eventually needs a
// rebalance, and never yields a value outside the neighbours before then.
func TestBetween_ExhaustsGap(t *testing.T) {
	lo, hi := 1000.0, 2000.0
	steps := 0
	for {
		mid, ok := Between(&lo, &hi)
		if !ok {
			break
		}
		if mid <= lo || mid >= hi {
			t.Fatalf("mid %v outside (%v, %v)", mid, lo, hi)
		}
		hi = mid
		steps++
		if steps > 200 {
			t.Fatal("gap never exhausted")
		}
	}
	if hi-lo >= MinGap*2 {
		t.Errorf("stopped with gap %v, expected < %v", hi-lo, MinGap*2)
	}
	if steps < 20 {
		t.Errorf("only %d midpoint inserts before rebalance", steps)
	}
}

func TestSequence(t *testing.T) {
	got := Sequence(4)
	want := []float64{1000, 2000, 3000, 4000}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 0 {
			t.Errorf("Sequence[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if len(Sequence(0)) != 0 {
		t.Error("Sequence(0) should be empty")
	}
}
