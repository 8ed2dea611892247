package cpu

import "github.com/klauspost/cpuid/v2"

// Features describes the host CPU as reported by cpuid.
type Features struct {
	Brand         string
	LogicalCores  int
	PhysicalCores int
	AVX2          bool
	AVX512F       bool
	FMA3          bool
}

// DetectFeatures reads the host CPU capabilities once per call.
func DetectFeatures() Features {
	return Features{
		Brand:         cpuid.CPU.BrandName,
		LogicalCores:  cpuid.CPU.LogicalCores,
		PhysicalCores: cpuid.CPU.PhysicalCores,
		AVX2:          cpuid.CPU.Supports(cpuid.AVX2),
		AVX512F:       cpuid.CPU.Supports(cpuid.AVX512F),
		FMA3:          cpuid.CPU.Supports(cpuid.FMA3),
	}
}

// Workers returns the number of goroutines worth running on this host.
func (f Features) Workers() int {
	if f.LogicalCores > 0 {
		return f.LogicalCores
	}
	return 1
}
