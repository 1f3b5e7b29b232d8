package giveaway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScheduler_ArmFires(t *testing.T) {
	fired := make(chan string, 1)
	s := NewScheduler(func(_ context.Context, id string) {
		fired <- id
	})
	defer s.Shutdown()

	s.Arm("AAAA1111", time.Now().Add(20*time.Millisecond))

	select {
	case id := <-fired:
		assert.Equal(t, "AAAA1111", id)
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}

	// Fired timers drop out of the table.
	assert.Eventually(t, func() bool {
		return !s.armed("AAAA1111")
	}, time.Second, 10*time.Millisecond)
}

func TestScheduler_PastDeadlineFiresImmediately(t *testing.T) {
	fired := make(chan string, 1)
	s := NewScheduler(func(_ context.Context, id string) {
		fired <- id
	})
	defer s.Shutdown()

	s.Arm("AAAA1111", time.Now().Add(-time.Minute))

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("overdue timer did not fire")
	}
}

func TestScheduler_CancelPreventsFiring(t *testing.T) {
	fired := make(chan string, 1)
	s := NewScheduler(func(_ context.Context, id string) {
		fired <- id
	})
	defer s.Shutdown()

	s.Arm("AAAA1111", time.Now().Add(50*time.Millisecond))
	s.Cancel("AAAA1111")
	assert.False(t, s.armed("AAAA1111"))

	select {
	case <-fired:
		t.Fatal("cancelled timer fired")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestScheduler_RearmReplacesTimer(t *testing.T) {
	fired := make(chan string, 2)
	s := NewScheduler(func(_ context.Context, id string) {
		fired <- id
	})
	defer s.Shutdown()

	s.Arm("AAAA1111", time.Now().Add(30*time.Millisecond))
	s.Arm("AAAA1111", time.Now().Add(60*time.Millisecond))

	<-time.After(300 * time.Millisecond)
	assert.Len(t, fired, 1, "replaced timer must not fire twice")
}

func TestScheduler_ShutdownStopsTimers(t *testing.T) {
	fired := make(chan string, 1)
	s := NewScheduler(func(_ context.Context, id string) {
		fired <- id
	})

	s.Arm("AAAA1111", time.Now().Add(50*time.Millisecond))
	s.Shutdown()

	select {
	case <-fired:
		t.Fatal("timer fired after shutdown")
	case <-time.After(200 * time.Millisecond):
	}
}
