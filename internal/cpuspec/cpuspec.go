// Package cpuspec reports the host CPU for diagnostics.
package cpuspec

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/klauspost/cpuid/v2"
)

// CPUSpec contains information about CPU specifications
type CPUSpec struct {
	BrandName     string
	PhysicalCores int
	LogicalCores  int
	// Vector extensions the float sample paths can benefit from.
	Features []string
}

var vectorFeatures = []struct {
	id   cpuid.FeatureID
	name string
}{
	{cpuid.SSE2, "sse2"},
	{cpuid.AVX, "avx"},
	{cpuid.AVX2, "avx2"},
	{cpuid.AVX512F, "avx512f"},
	{cpuid.ASIMD, "neon"},
}

// GetCPUSpec returns the specification of the running CPU.
func GetCPUSpec() CPUSpec {
	spec := CPUSpec{
		BrandName:     strings.TrimSpace(cpuid.CPU.BrandName),
		PhysicalCores: cpuid.CPU.PhysicalCores,
		LogicalCores:  cpuid.CPU.LogicalCores,
	}
	if spec.LogicalCores <= 0 {
		// Not every platform exposes topology through CPUID.
		spec.LogicalCores = runtime.NumCPU()
	}
	if spec.BrandName == "" {
		spec.BrandName = runtime.GOARCH
	}

	for _, f := range vectorFeatures {
		if cpuid.CPU.Supports(f.id) {
			spec.Features = append(spec.Features, f.name)
		}
	}
	return spec
}

// String formats the spec on one line.
func (c CPUSpec) String() string {
	s := fmt.Sprintf("%s, %d threads", c.BrandName, c.LogicalCores)
	if len(c.Features) > 0 {
		s += " (" + strings.Join(c.Features, " ") + ")"
	}
	return s
}
