package scenario

import (
	"context"
	"testing"
	"time"
)

func runScenario(t *testing.T, name string, fn func(context.Context) Result) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res := fn(ctx)
	if res.Name != name {
		t.Fatalf("Result.Name = %q, want %q", res.Name, name)
	}
	if !res.Passed {
		t.Fatalf("%s failed: %s", name, res.Detail)
	}
}

func TestPriorityPreemptionScenario(t *testing.T) {
	runScenario(t, "S1-priority-preemption", PriorityPreemption)
}

func TestStarvationScenario(t *testing.T) {
	runScenario(t, "S2-aging-starvation", Starvation)
}

func TestProducerConsumerScenario(t *testing.T) {
	runScenario(t, "S3-producer-consumer", ProducerConsumer)
}

func TestReadWriteScenario(t *testing.T) {
	runScenario(t, "S4-readwrite-lock", ReadWrite)
}

func TestSleepWakeupRaceScenario(t *testing.T) {
	runScenario(t, "S5-sleep-wakeup-race", SleepWakeupRace)
}

func TestWaitCopyFailureScenario(t *testing.T) {
	runScenario(t, "S6-wait-copy-failure", WaitCopyFailure)
}

func TestAllRunsEveryScenario(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	results := All(ctx)
	if len(results) != 6 {
		t.Fatalf("All returned %d results, want 6", len(results))
	}
	for _, r := range results {
		if !r.Passed {
			t.Errorf("scenario %s failed: %s", r.Name, r.Detail)
		}
	}
}
