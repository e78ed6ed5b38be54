package sqlguard_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/rensmac/sqlgate/internal/sqlguard"
)

func TestSlidingWindowLimiter_CapAndRefill(t *testing.T) {
	clock := clockwork.NewFakeClock()
	limiter := sqlguard.NewSlidingWindowLimiter(sqlguard.MaxQueriesPerMinute, time.Minute, clock)

	for i := 0; i < sqlguard.MaxQueriesPerMinute; i++ {
		if !limiter.Admit() {
			t.Fatalf("attempt %d rejected, want admit", i+1)
		}
	}
	if limiter.Admit() {
		t.Fatal("attempt past the cap admitted, want reject")
	}

	clock.Advance(61 * time.Second)
	if !limiter.Admit() {
		t.Fatal("attempt after window expiry rejected, want admit")
	}
}

func TestSlidingWindowLimiter_RejectionsLeaveNoTrace(t *testing.T) {
	clock := clockwork.NewFakeClock()
	limiter := sqlguard.NewSlidingWindowLimiter(sqlguard.MaxQueriesPerMinute, time.Minute, clock)

	for i := 0; i < sqlguard.MaxQueriesPerMinute; i++ {
		limiter.Admit()
	}

	// Hammering while locked out must not extend the lockout.
	clock.Advance(59 * time.Second)
	for i := 0; i < 5; i++ {
		if limiter.Admit() {
			t.Fatal("admitted inside the window, want reject")
		}
	}

	clock.Advance(2 * time.Second)
	if !limiter.Admit() {
		t.Fatal("attempt after window expiry rejected, want admit")
	}
}

func TestSlidingWindowLimiter_WindowSlides(t *testing.T) {
	clock := clockwork.NewFakeClock()
	limiter := sqlguard.NewSlidingWindowLimiter(sqlguard.MaxQueriesPerMinute, time.Minute, clock)

	for i := 0; i < 15; i++ {
		limiter.Admit()
	}
	clock.Advance(30 * time.Second)
	for i := 0; i < 15; i++ {
		if !limiter.Admit() {
			t.Fatalf("attempt %d rejected, want admit", i+1)
		}
	}
	if limiter.Admit() {
		t.Fatal("attempt past the cap admitted, want reject")
	}

	// The first batch expires, freeing exactly its slots.
	clock.Advance(31 * time.Second)
	for i := 0; i < 15; i++ {
		if !limiter.Admit() {
			t.Fatalf("freed slot %d rejected, want admit", i+1)
		}
	}
	if limiter.Admit() {
		t.Fatal("attempt past the slid window admitted, want reject")
	}
}

func TestSlidingWindowLimiter_Reset(t *testing.T) {
	limiter := sqlguard.NewSlidingWindowLimiter(1, time.Minute, clockwork.NewFakeClock())

	if !limiter.Admit() {
		t.Fatal("first attempt rejected, want admit")
	}
	if limiter.Admit() {
		t.Fatal("second attempt admitted, want reject")
	}
	limiter.Reset()
	if !limiter.Admit() {
		t.Fatal("attempt after reset rejected, want admit")
	}
}

func TestSlidingWindowLimiter_Concurrent(t *testing.T) {
	limiter := sqlguard.NewSlidingWindowLimiter(sqlguard.MaxQueriesPerMinute, time.Minute, nil)

	var admitted int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Admit() {
				atomic.AddInt64(&admitted, 1)
			}
		}()
	}
	wg.Wait()

	if admitted != sqlguard.MaxQueriesPerMinute {
		t.Errorf("admitted = %d, want exactly %d", admitted, sqlguard.MaxQueriesPerMinute)
	}
}
