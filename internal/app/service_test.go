package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hubflow-next/internal/config"
)

type fakeService struct {
	name     string
	startErr error
	stopped  atomic.Bool
}

func (s *fakeService) Name() string { return s.name }

func (s *fakeService) Start(ctx context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}
	<-ctx.Done()
	return nil
}

func (s *fakeService) Stop(context.Context) error {
	s.stopped.Store(true)
	return nil
}

func TestRunnerStopsAllServicesAndRunsCleanups(t *testing.T) {
	failing := &fakeService{name: "worker", startErr: errors.New("redis refused")}
	healthy := &fakeService{name: "http"}
	runner := NewRunner(healthy, failing)
	var cleaned atomic.Int32
	runner.OnShutdown(func() { cleaned.Add(1) })
	runner.OnShutdown(nil)

	err := runner.Run(context.Background(), time.Second, nil)
	if err == nil || err.Error() != "redis refused" {
		t.Fatalf("expected start error to surface, got %v", err)
	}
	if !healthy.stopped.Load() || !failing.stopped.Load() {
		t.Fatalf("every service must be stopped")
	}
	if cleaned.Load() != 1 {
		t.Fatalf("expected one cleanup run, got %d", cleaned.Load())
	}
}

func TestRunnerCancelledContextIsCleanExit(t *testing.T) {
	svc := &fakeService{name: "http"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewRunner(svc).Run(ctx, time.Second, nil); err != nil {
		t.Fatalf("cancelled context must exit cleanly, got %v", err)
	}
}

func TestBuildRunnerRejectsNilConfig(t *testing.T) {
	if _, err := BuildRunner(nil, ModeAll); err == nil {
		t.Fatalf("expected nil config error")
	}
}

func TestValidateMode(t *testing.T) {
	for _, mode := range []string{ModeAll, ModeAPI, ModeWorker} {
		if err := ValidateMode(mode); err != nil {
			t.Fatalf("mode %s rejected: %v", mode, err)
		}
	}
	if err := ValidateMode("scheduler"); err == nil {
		t.Fatalf("unknown mode accepted")
	}
	if _, err := BuildRunner(&config.Config{}, "scheduler"); err == nil {
		t.Fatalf("BuildRunner must reject unknown mode before wiring")
	}
}
