package jobs

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestWaitCompletes(t *testing.T) {
	manager := NewManager(func(ctx context.Context, spec Spec) (string, error) {
		return "done: " + spec.Command, nil
	})

	ctx := context.Background()
	id, err := manager.Submit(ctx, Spec{Command: "reconstruct"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	job, err := Wait(ctx, manager, id, time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Status != StatusCompleted {
		t.Fatalf("unexpected status: %q", job.Status)
	}
	if job.Result != "done: reconstruct" {
		t.Fatalf("unexpected result: %q", job.Result)
	}
}

func TestWaitFailedJob(t *testing.T) {
	manager := NewManager(func(ctx context.Context, spec Spec) (string, error) {
		return "", fmt.Errorf("out of memory")
	})

	ctx := context.Background()
	id, err := manager.Submit(ctx, Spec{Command: "reconstruct"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	job, err := Wait(ctx, manager, id, time.Millisecond)
	if err == nil {
		t.Fatal("expected an error for a failed job")
	}
	var jobErr *JobError
	if !errors.As(err, &jobErr) {
		t.Fatalf("expected a JobError, got %T", err)
	}
	if jobErr.Message != "out of memory" {
		t.Fatalf("unexpected message: %q", jobErr.Message)
	}
	if job.Status != StatusFailed {
		t.Fatalf("unexpected status: %q", job.Status)
	}
}

func TestWaitContextDeadline(t *testing.T) {
	manager := NewManager(func(ctx context.Context, spec Spec) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	id, err := manager.Submit(ctx, Spec{Command: "reconstruct"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = Wait(ctx, manager, id, 5*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected a deadline error, got %v", err)
	}
}

func TestCheckUnknownJob(t *testing.T) {
	manager := NewManager(func(ctx context.Context, spec Spec) (string, error) {
		return "", nil
	})
	if _, err := manager.Check(context.Background(), "job-unknown"); err == nil {
		t.Fatal("expected an error for an unknown job ID")
	}
}

func TestStatusTerminal(t *testing.T) {
	if StatusQueued.Terminal() || StatusRunning.Terminal() {
		t.Fatal("queued and running must not be terminal")
	}
	if !StatusCompleted.Terminal() || !StatusFailed.Terminal() {
		t.Fatal("completed and failed must be terminal")
	}
}
