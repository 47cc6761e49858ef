package partition

import (
	"errors"
	"math"
	"testing"
)

func TestPlan(t *testing.T) {
	tests := []struct {
		name          string
		loopmax, nthr int
		wantBlock     int
		wantWorkers   int
	}{
		{name: "remainder collapses a worker", loopmax: 5, nthr: 4, wantBlock: 2, wantWorkers: 3},
		{name: "more workers than iterations", loopmax: 1, nthr: 8, wantBlock: 1, wantWorkers: 1},
		{name: "single worker", loopmax: 100, nthr: 1, wantBlock: 100, wantWorkers: 1},
		{name: "even split", loopmax: 12, nthr: 4, wantBlock: 3, wantWorkers: 4},
		{name: "uneven split", loopmax: 10, nthr: 4, wantBlock: 3, wantWorkers: 4},
		{name: "seven over six", loopmax: 7, nthr: 6, wantBlock: 2, wantWorkers: 4},
		{name: "equal", loopmax: 8, nthr: 8, wantBlock: 1, wantWorkers: 8},
		{name: "huge nthr", loopmax: 5, nthr: math.MaxInt, wantBlock: 1, wantWorkers: 5},
		{name: "huge loopmax", loopmax: math.MaxInt, nthr: 3, wantBlock: math.MaxInt/3 + 1, wantWorkers: 3},
		{name: "both huge", loopmax: math.MaxInt, nthr: math.MaxInt, wantBlock: 1, wantWorkers: math.MaxInt},
		{name: "huge loopmax single worker", loopmax: math.MaxInt, nthr: 1, wantBlock: math.MaxInt, wantWorkers: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			block, workers := Plan(tt.loopmax, tt.nthr)
			if block != tt.wantBlock || workers != tt.wantWorkers {
				t.Errorf("Plan(%d, %d) = (%d, %d), want (%d, %d)",
					tt.loopmax, tt.nthr, block, workers, tt.wantBlock, tt.wantWorkers)
			}
		})
	}
}

func TestSplitExample(t *testing.T) {
	got := Split(5, 4)
	want := []Span{{0, 2}, {2, 4}, {4, 5}}

	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("span %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSplitProperties(t *testing.T) {
	for loopmax := 1; loopmax <= 64; loopmax++ {
		for nthr := 1; nthr <= 70; nthr++ {
			spans := Split(loopmax, nthr)

			if len(spans) < 1 || len(spans) > min(loopmax, nthr) {
				t.Fatalf("Split(%d, %d): %d spans, want in [1, %d]",
					loopmax, nthr, len(spans), min(loopmax, nthr))
			}

			next := 0
			maxLen := 0
			for i, s := range spans {
				if s.Lo != next {
					t.Fatalf("Split(%d, %d): span %d starts at %d, want %d", loopmax, nthr, i, s.Lo, next)
				}
				if s.Len() <= 0 {
					t.Fatalf("Split(%d, %d): span %d is empty: %v", loopmax, nthr, i, s)
				}
				maxLen = max(maxLen, s.Len())
				next = s.Hi
			}
			if next != loopmax {
				t.Fatalf("Split(%d, %d): covers [0, %d), want [0, %d)", loopmax, nthr, next, loopmax)
			}

			bound := (loopmax + nthr - 1) / nthr
			if maxLen > bound {
				t.Fatalf("Split(%d, %d): critical path %d exceeds %d", loopmax, nthr, maxLen, bound)
			}
			if cp := CriticalPath(loopmax, nthr); cp != maxLen {
				t.Fatalf("CriticalPath(%d, %d) = %d, want %d", loopmax, nthr, cp, maxLen)
			}
		}
	}
}

func TestSplitExtremeArgs(t *testing.T) {
	tests := []struct {
		loopmax, nthr int
		want          []Span
	}{
		{loopmax: 5, nthr: math.MaxInt, want: []Span{{0, 1}, {1, 2}, {2, 3}, {3, 4}, {4, 5}}},
		{loopmax: math.MaxInt, nthr: 3, want: []Span{
			{0, math.MaxInt/3 + 1},
			{math.MaxInt/3 + 1, 2 * (math.MaxInt/3 + 1)},
			{2 * (math.MaxInt/3 + 1), math.MaxInt},
		}},
		{loopmax: math.MaxInt, nthr: 1, want: []Span{{0, math.MaxInt}}},
	}

	for _, tt := range tests {
		got := Split(tt.loopmax, tt.nthr)
		if len(got) != len(tt.want) {
			t.Fatalf("Split(%d, %d): %d spans, want %d", tt.loopmax, tt.nthr, len(got), len(tt.want))
		}
		for i := range got {
			if got[i] != tt.want[i] || got[i].Len() <= 0 {
				t.Errorf("Split(%d, %d): span %d = %v, want %v", tt.loopmax, tt.nthr, i, got[i], tt.want[i])
			}
		}
	}
}

func TestSplitDeterministic(t *testing.T) {
	a := Split(1000, 7)
	b := Split(1000, 7)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("span %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestPlanPanicsOnInvalidArgs(t *testing.T) {
	tests := []struct {
		name          string
		loopmax, nthr int
	}{
		{name: "zero loopmax", loopmax: 0, nthr: 4},
		{name: "zero nthr", loopmax: 4, nthr: 0},
		{name: "negative", loopmax: -1, nthr: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				r := recover()
				err, ok := r.(error)
				if !ok || !errors.Is(err, ErrInvalidArgs) {
					t.Fatalf("recovered %v, want ErrInvalidArgs", r)
				}
			}()
			Plan(tt.loopmax, tt.nthr)
		})
	}
}
