package hardware

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"saas-ai-orchestrator/internal/domain/model"
)

const bytesPerGB = 1024 * 1024 * 1024

// State holds the process-lifetime hardware profile plus the periodically
// refreshed load sample. The profile itself never changes after Detect; the
// sample is guarded separately so readers on the request path never block on
// sampling.
type State struct {
	profile model.HardwareProfile

	mu     sync.RWMutex
	sample model.LoadSample
}

// Detect introspects the host once at startup. Platform probes that fail are
// logged and degraded: a host we cannot read still serves hosted providers,
// it just reports no local-model capability.
func Detect(log *zerolog.Logger) *State {
	p := model.HardwareProfile{
		CPUCores: runtime.NumCPU(),
		OS:       runtime.GOOS,
	}

	if counts, err := cpu.Counts(true); err == nil && counts > 0 {
		p.CPUCores = counts
	} else if err != nil {
		log.Warn().Err(err).Msg("cpu introspection failed, using runtime.NumCPU")
	}

	if v, err := mem.VirtualMemory(); err == nil {
		p.TotalMemoryGB = float64(v.Total) / bytesPerGB
		p.AvailMemoryGB = float64(v.Available) / bytesPerGB
	} else {
		log.Warn().Err(err).Msg("memory introspection failed, degrading to hosted-only operation")
	}

	if info, err := host.Info(); err == nil {
		p.Platform = info.Platform
	}

	if gpu, ok := detectGPU(); ok {
		p.HasGPU = true
		p.GPUName = gpu.name
		p.GPUMemoryGB = gpu.memoryMB / 1024
	}

	log.Info().
		Int("cpu_cores", p.CPUCores).
		Float64("total_memory_gb", p.TotalMemoryGB).
		Bool("has_gpu", p.HasGPU).
		Float64("gpu_memory_gb", p.GPUMemoryGB).
		Str("classification", string(p.Classify())).
		Msg("hardware profile detected")

	return &State{profile: p}
}

// NewStateForTest builds a State around a fixed profile.
func NewStateForTest(p model.HardwareProfile) *State {
	return &State{profile: p}
}

// Profile returns the immutable startup snapshot.
func (s *State) Profile() model.HardwareProfile { return s.profile }

// Classify buckets the host for assignment lookups.
func (s *State) Classify() model.Classification { return s.profile.Classify() }

// Optimal derives the serving configuration for this host.
func (s *State) Optimal(localProvider, hostedProvider string) model.OptimalConfig {
	return s.profile.Optimal(localProvider, hostedProvider)
}

// SampleLoad refreshes the point-in-time utilization sample. Monitoring only.
func (s *State) SampleLoad(ctx context.Context) model.LoadSample {
	var sample model.LoadSample
	if pct, err := cpu.PercentWithContext(ctx, 100*time.Millisecond, false); err == nil && len(pct) > 0 {
		sample.CPUPercent = pct[0]
	}
	if v, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		sample.MemoryPercent = v.UsedPercent
	}

	s.mu.Lock()
	s.sample = sample
	s.mu.Unlock()
	return sample
}

// CurrentLoad returns the most recent sample.
func (s *State) CurrentLoad() model.LoadSample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sample
}
