package hardware

import (
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

// gpuInfo is the raw probe result before unit normalization.
type gpuInfo struct {
	name     string
	memoryMB float64
}

// detectGPU probes for a usable GPU. NVIDIA via nvidia-smi on linux/windows,
// Apple silicon via system_profiler on darwin. Probe failures mean "no GPU".
func detectGPU() (gpuInfo, bool) {
	switch runtime.GOOS {
	case "darwin":
		return detectMetalGPU()
	default:
		return detectNvidiaGPU()
	}
}

func detectNvidiaGPU() (gpuInfo, bool) {
	if _, err := exec.LookPath("nvidia-smi"); err != nil {
		return gpuInfo{}, false
	}
	cmd := exec.Command(
		"nvidia-smi",
		"--query-gpu=name,memory.total",
		"--format=csv,noheader,nounits",
	)
	output, err := cmd.Output()
	if err != nil {
		return gpuInfo{}, false
	}

	// First GPU only; multi-GPU scheduling is not modeled.
	line := strings.SplitN(strings.TrimSpace(string(output)), "\n", 2)[0]
	parts := strings.Split(line, ",")
	if len(parts) < 2 {
		return gpuInfo{}, false
	}
	memMB, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return gpuInfo{}, false
	}
	return gpuInfo{
		name:     strings.TrimSpace(parts[0]),
		memoryMB: memMB,
	}, true
}

func detectMetalGPU() (gpuInfo, bool) {
	cmd := exec.Command("system_profiler", "SPDisplaysDataType")
	output, err := cmd.Output()
	if err != nil {
		return gpuInfo{}, false
	}
	text := string(output)
	if !strings.Contains(text, "Chipset Model:") && !strings.Contains(text, "Metal:") {
		return gpuInfo{}, false
	}

	info := gpuInfo{name: "Apple GPU"}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Chipset Model:") {
			info.name = strings.TrimSpace(strings.TrimPrefix(line, "Chipset Model:"))
		}
		// Unified memory reported as "VRAM (Dynamic, Max): N GB" on some models.
		if strings.HasPrefix(line, "VRAM") {
			fields := strings.Fields(line)
			for i, f := range fields {
				if v, err := strconv.ParseFloat(f, 64); err == nil && i+1 < len(fields) {
					unit := strings.ToUpper(fields[i+1])
					if strings.HasPrefix(unit, "GB") {
						info.memoryMB = v * 1024
					} else if strings.HasPrefix(unit, "MB") {
						info.memoryMB = v
					}
					break
				}
			}
		}
	}
	return info, true
}
