package workers

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"
)

func TestCount(t *testing.T) {
	availableCPU := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		minExpect  int
		maxExpect  int
	}{
		{"CPU-bound task (1.0x multiplier)", 1.0, 0, 1, availableCPU},
		{"Half multiplier", 0.5, 0, 1, availableCPU},
		{"With limit of 1", 2.0, 1, 1, 1},
		{"Tiny multiplier floors at 1", 0.0001, 0, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(tt.multiplier, tt.limit)
			if got < tt.minExpect || got > tt.maxExpect {
				t.Errorf("Count(%v, %d) = %d, want in [%d, %d]", tt.multiplier, tt.limit, got, tt.minExpect, tt.maxExpect)
			}
		})
	}
}

func TestForCPU(t *testing.T) {
	got := ForCPU(4)
	if got < 1 || got > 4 {
		t.Errorf("ForCPU(4) = %d, want in [1, 4]", got)
	}
}

func TestNewPoolMinimumSize(t *testing.T) {
	if got := NewPool(0).Size(); got != 1 {
		t.Errorf("NewPool(0).Size() = %d, want 1", got)
	}
	if got := NewPool(3).Size(); got != 3 {
		t.Errorf("NewPool(3).Size() = %d, want 3", got)
	}
}

func TestPoolAcquireRelease(t *testing.T) {
	pool := NewPool(1)

	release, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if pool.InUse() != 1 {
		t.Errorf("InUse() = %d, want 1", pool.InUse())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := pool.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("second Acquire() error = %v, want DeadlineExceeded", err)
	}

	release()
	if pool.InUse() != 0 {
		t.Errorf("InUse() after release = %d, want 0", pool.InUse())
	}

	release2, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() after release error = %v", err)
	}
	release2()
}
