package model

// Classification is a coarse hardware capability bucket used to pick a
// default model list.
type Classification string

const (
	ClassNoGPU     Classification = "no_gpu"
	ClassSmallGPU  Classification = "small_gpu"
	ClassMediumGPU Classification = "medium_gpu"
	ClassLargeGPU  Classification = "large_gpu"
)

// LoadSample is a point-in-time utilization snapshot, refreshed periodically
// for monitoring only. It never participates in request routing.
type LoadSample struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
}

// HardwareProfile is the process-lifetime snapshot of host capacity,
// produced once at startup and immutable except the load sample.
type HardwareProfile struct {
	CPUCores      int     `json:"cpu_cores"`
	TotalMemoryGB float64 `json:"total_memory_gb"`
	AvailMemoryGB float64 `json:"available_memory_gb"`
	HasGPU        bool    `json:"has_gpu"`
	GPUName       string  `json:"gpu_name,omitempty"`
	GPUMemoryGB   float64 `json:"gpu_memory_gb"`
	OS            string  `json:"os"`
	Platform      string  `json:"platform,omitempty"`
}

// Classify buckets the profile by GPU memory using fixed thresholds.
// Exactly 4GB is still small, exactly 8GB still medium.
func (p *HardwareProfile) Classify() Classification {
	switch {
	case !p.HasGPU || p.GPUMemoryGB <= 0:
		return ClassNoGPU
	case p.GPUMemoryGB <= 4:
		return ClassSmallGPU
	case p.GPUMemoryGB <= 8:
		return ClassMediumGPU
	default:
		return ClassLargeGPU
	}
}

// OptimalConfig is the host's derived serving configuration.
type OptimalConfig struct {
	CanRunLocalModels   bool   `json:"can_run_local_models"`
	MaxModelSize        string `json:"max_model_size"` // small | medium | large
	RecommendedProvider string `json:"recommended_provider"`
	ParallelJobCapacity int    `json:"parallel_job_capacity"`
	GPUAcceleration     bool   `json:"gpu_acceleration"`
}

// Optimal derives the serving configuration from total and GPU memory via
// fixed breakpoints.
func (p *HardwareProfile) Optimal(localProvider, hostedProvider string) OptimalConfig {
	cfg := OptimalConfig{
		CanRunLocalModels:   p.TotalMemoryGB >= 8,
		MaxModelSize:        "small",
		RecommendedProvider: hostedProvider,
		ParallelJobCapacity: maxInt(1, p.CPUCores/2),
		GPUAcceleration:     p.HasGPU && p.GPUMemoryGB > 0,
	}
	switch {
	case p.GPUMemoryGB >= 16 || p.TotalMemoryGB >= 32:
		cfg.MaxModelSize = "large"
	case p.GPUMemoryGB >= 8 || p.TotalMemoryGB >= 16:
		cfg.MaxModelSize = "medium"
	}
	if cfg.CanRunLocalModels {
		cfg.RecommendedProvider = localProvider
	}
	return cfg
}

// MeetsRequirements checks a model's declared minimums against the profile.
// Used by assignment admission, not enforced per request.
func (p *HardwareProfile) MeetsRequirements(cfg ProviderConfig) bool {
	if cfg.MinMemoryGB > 0 && p.TotalMemoryGB < float64(cfg.MinMemoryGB) {
		return false
	}
	if cfg.MinGPUMemGB > 0 && (!p.HasGPU || p.GPUMemoryGB < float64(cfg.MinGPUMemGB)) {
		return false
	}
	if cfg.MinCores > 0 && p.CPUCores < cfg.MinCores {
		return false
	}
	return true
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
