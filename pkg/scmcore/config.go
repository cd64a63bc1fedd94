package scmcore

import (
	"time"

	"github.com/goccy/go-yaml"

	"github.com/cwbudde/scmcore/internal/profiler"
)

// GCMode selects how aggressively the runtime requests GC safepoints,
// matching spec.md §6's config field gc_mode: {manual, automatic, adaptive}.
type GCMode string

const (
	GCManual    GCMode = "manual"
	GCAutomatic GCMode = "automatic"
	GCAdaptive  GCMode = "adaptive"
)

// Config enumerates every field spec.md §6's new_runtime(config) names. It
// is YAML-loadable (github.com/goccy/go-yaml, the host's config-file format
// per SPEC_FULL.md's ambient-stack section) via LoadConfigYAML, and otherwise
// constructed with New's functional options.
type Config struct {
	MaxWorkerThreads int `yaml:"max_worker_threads"`

	YoungHeapBytes uint64 `yaml:"young_heap_bytes"`
	OldHeapBytes   uint64 `yaml:"old_heap_bytes"`

	HotspotExecutions uint64        `yaml:"hotspot_executions"`
	HotspotTime       time.Duration `yaml:"hotspot_time"`

	CodeCacheCapacity int `yaml:"code_cache_capacity"`

	EnableJIT                bool `yaml:"enable_jit"`
	EnablePGO                bool `yaml:"enable_pgo"`
	EnableSpeculativeCompile bool `yaml:"enable_speculative_compile"`

	MaxTier profiler.Tier `yaml:"max_tier"`

	GCMode GCMode `yaml:"gc_mode"`
}

// DefaultConfig returns the runtime's out-of-the-box configuration: CPU-count
// workers, a 1MiB young region, JIT enabled up through tier 2, speculative
// (preemptive) compilation off, adaptive GC.
func DefaultConfig() Config {
	return Config{
		MaxWorkerThreads:         0, // 0 => runtime.NumCPU(), resolved in New
		YoungHeapBytes:           1 << 20,
		OldHeapBytes:             1 << 24,
		HotspotExecutions:        profiler.DefaultThresholds().N1,
		HotspotTime:              profiler.DefaultThresholds().T1,
		CodeCacheCapacity:        512,
		EnableJIT:                true,
		EnablePGO:                false,
		EnableSpeculativeCompile: false,
		MaxTier:                  profiler.TierBasicNative,
		GCMode:                   GCAdaptive,
	}
}

// LoadConfigYAML parses a YAML document (spec.md §6's embedding config,
// surfaced to hosts as a file) into Config, starting from DefaultConfig so
// an omitted field keeps its default rather than zeroing out.
func LoadConfigYAML(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
