package monitoring

import (
	"os"

	"github.com/shirou/gopsutil/process"
)

// ProcessSampler reports the memory and CPU usage of the current process
// for the engine's periodic performance metrics.
type ProcessSampler struct {
	proc *process.Process
}

// NewProcessSampler creates a sampler bound to the current process.
func NewProcessSampler() (*ProcessSampler, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}

	return &ProcessSampler{proc: proc}, nil
}

// Sample returns the resident memory in MB and the CPU usage percentage.
func (s *ProcessSampler) Sample() (memoryMB, cpuPercent float64, err error) {
	memInfo, err := s.proc.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}

	cpuPercent, err = s.proc.CPUPercent()
	if err != nil {
		return 0, 0, err
	}

	return float64(memInfo.RSS) / (1024 * 1024), cpuPercent, nil
}
