package hardware

import (
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"

	"saas-ai-orchestrator/internal/domain/model"
)

func TestDetect_NeverFails(t *testing.T) {
	logger := zerolog.New(io.Discard)
	state := Detect(&logger)
	if state == nil {
		t.Fatal("Detect must always return a state")
	}
	p := state.Profile()
	if p.CPUCores < 1 {
		t.Errorf("expected at least one core, got %d", p.CPUCores)
	}
	if p.OS == "" {
		t.Error("expected OS to be set")
	}
	// Whatever the host looks like, classification must land in a bucket.
	switch state.Classify() {
	case model.ClassNoGPU, model.ClassSmallGPU, model.ClassMediumGPU, model.ClassLargeGPU:
	default:
		t.Errorf("unexpected classification %s", state.Classify())
	}
}

func TestState_SampleLoad(t *testing.T) {
	state := NewStateForTest(model.HardwareProfile{CPUCores: 4, TotalMemoryGB: 16})

	before := state.CurrentLoad()
	if before.CPUPercent != 0 || before.MemoryPercent != 0 {
		t.Errorf("expected zero sample before first refresh, got %+v", before)
	}

	sample := state.SampleLoad(context.Background())
	if sample.CPUPercent < 0 || sample.CPUPercent > 100 {
		t.Errorf("cpu percent out of range: %v", sample.CPUPercent)
	}
	if got := state.CurrentLoad(); got != sample {
		t.Errorf("CurrentLoad must return the last sample: %+v vs %+v", got, sample)
	}
}

func TestState_Optimal(t *testing.T) {
	state := NewStateForTest(model.HardwareProfile{CPUCores: 12, TotalMemoryGB: 64, HasGPU: true, GPUMemoryGB: 24})
	cfg := state.Optimal("ollama", "openai")
	if cfg.ParallelJobCapacity != 6 {
		t.Errorf("expected capacity 6, got %d", cfg.ParallelJobCapacity)
	}
	if cfg.RecommendedProvider != "ollama" {
		t.Errorf("expected local recommendation, got %s", cfg.RecommendedProvider)
	}
}
