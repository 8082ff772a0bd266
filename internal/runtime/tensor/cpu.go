package tensor

import (
	"runtime"

	"github.com/klauspost/cpuid/v2"
)

// CPUInfo describes the host processor.
type CPUInfo struct {
	Brand         string
	PhysicalCores int
	LogicalCores  int
	AVX2          bool
	AVX512        bool
}

// DetectCPU reports what cpuid knows about the host.
func DetectCPU() CPUInfo {
	return CPUInfo{
		Brand:         cpuid.CPU.BrandName,
		PhysicalCores: cpuid.CPU.PhysicalCores,
		LogicalCores:  cpuid.CPU.LogicalCores,
		AVX2:          cpuid.CPU.Supports(cpuid.AVX2),
		AVX512:        cpuid.CPU.Supports(cpuid.AVX512F, cpuid.AVX512DQ),
	}
}

// DefaultWorkers is the physical core count, falling back to runtime.NumCPU
// when cpuid cannot tell (e.g. on non-x86 hosts).
func DefaultWorkers() int {
	if n := cpuid.CPU.PhysicalCores; n > 0 {
		return min(n, runtime.NumCPU())
	}

	return max(runtime.NumCPU(), 1)
}
