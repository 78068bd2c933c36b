package scheduler_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"marquee/internal/scheduler"
)

func TestNewRejectsBadSpec(t *testing.T) {
	lock := filepath.Join(t.TempDir(), "marquee.lock")
	if _, err := scheduler.New(scheduler.Options{Spec: "every tuesday", LockPath: lock}); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
	if _, err := scheduler.New(scheduler.Options{Spec: "0 * * * *", Timezone: "Mars/Olympus", LockPath: lock}); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
	if _, err := scheduler.New(scheduler.Options{Spec: "0 * * * *"}); err == nil {
		t.Fatal("expected error without lock path")
	}
}

func TestNextUsesTimezone(t *testing.T) {
	s, err := scheduler.New(scheduler.Options{Spec: "0 6 * * *", Timezone: "UTC", LockPath: filepath.Join(t.TempDir(), "l")})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	now := time.Date(2025, 4, 1, 7, 0, 0, 0, time.UTC)
	want := time.Date(2025, 4, 2, 6, 0, 0, 0, time.UTC)
	if got := s.Next(now); !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestRunAtStartInvokesJob(t *testing.T) {
	s, err := scheduler.New(scheduler.Options{
		Spec:       "0 0 1 1 *",
		LockPath:   filepath.Join(t.TempDir(), "marquee.lock"),
		RunAtStart: true,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, func(context.Context) error {
			calls.Add(1)
			cancel()
			return nil
		})
	}()
	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected job to run once, ran %d times", calls.Load())
	}
}

func TestRunWaitsForStartupJobBeforeReleasingLock(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "marquee.lock")
	s, err := scheduler.New(scheduler.Options{
		Spec:       "0 0 1 1 *",
		LockPath:   lockPath,
		RunAtStart: true,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var finished atomic.Bool
	var lockHeldAtEnd atomic.Bool
	err = s.Run(ctx, func(context.Context) error {
		cancel()
		time.Sleep(200 * time.Millisecond)
		other := flock.New(lockPath)
		ok, err := other.TryLock()
		if ok {
			_ = other.Unlock()
		}
		lockHeldAtEnd.Store(err == nil && !ok)
		finished.Store(true)
		return nil
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !finished.Load() {
		t.Fatal("expected Run to wait for the start-up job")
	}
	if !lockHeldAtEnd.Load() {
		t.Fatal("expected scheduler lock to be held while the start-up job ran")
	}
}

func TestRunRefusesSecondInstance(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "marquee.lock")
	held := flock.New(lockPath)
	if ok, err := held.TryLock(); err != nil || !ok {
		t.Fatalf("expected to take lock, ok=%v err=%v", ok, err)
	}
	t.Cleanup(func() { _ = held.Unlock() })

	s, err := scheduler.New(scheduler.Options{Spec: "0 * * * *", LockPath: lockPath})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	err = s.Run(context.Background(), func(context.Context) error { return nil })
	if !errors.Is(err, scheduler.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}
