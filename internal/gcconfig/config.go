// Package gcconfig loads the environment tunables spec.md §6 describes
// ("read during set_params; same defaults as described; names are
// informative, not literal"). Binding goes through pflag + viper, the
// config pattern grounded on other_examples/manifests/tuannm99-novasql's
// go.mod (spf13/viper + spf13/pflag), so the same flags cmd/gravitonctl
// exposes also bind to GRAVITON_* environment variables.
package gcconfig

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds every tunable named in spec.md §6 and §4.11.
type Config struct {
	// Heap growth.
	HeapFreeSlotsFloor    float64 `mapstructure:"heap_free_slots_floor"`
	HeapInitSlots         [5]int  `mapstructure:"-"`
	HeapGrowthFactor      float64 `mapstructure:"heap_growth_factor"`
	HeapGrowthMaxSlots    int     `mapstructure:"heap_growth_max_slots"`
	HeapFreeSlotsMinRatio float64 `mapstructure:"heap_free_slots_min_ratio"`
	HeapFreeSlotsGoalRatio float64 `mapstructure:"heap_free_slots_goal_ratio"`
	HeapFreeSlotsMaxRatio float64 `mapstructure:"heap_free_slots_max_ratio"`

	// Generational / remembered-set limits.
	OldObjectLimitFactor          float64 `mapstructure:"old_object_limit_factor"`
	RememberedWbUnprotectedFactor float64 `mapstructure:"remembered_wb_unprotected_objects_limit_ratio"`

	// Malloc accounting.
	MallocLimitMin          uint64  `mapstructure:"malloc_limit_min"`
	MallocLimitMax          uint64  `mapstructure:"malloc_limit_max"`
	MallocLimitGrowthFactor float64 `mapstructure:"malloc_limit_growth_factor"`
	OldMallocLimitMin       uint64  `mapstructure:"oldmalloc_limit_min"`
	OldMallocLimitMax       uint64  `mapstructure:"oldmalloc_limit_max"`
	OldMallocLimitGrowth    float64 `mapstructure:"oldmalloc_limit_growth_factor"`

	// Scheduler.
	EnableMNThreads bool `mapstructure:"enable_mn_threads"`
	MaxCPU          int  `mapstructure:"max_cpu"`

	// Single configuration key exposed via config_set/config_get
	// (spec.md §6 "Configuration").
	AllowFullMark bool `mapstructure:"rgengc_allow_full_mark"`
}

// Default returns the factory defaults, matching the literal values
// described throughout spec.md §4/§6.
func Default() Config {
	return Config{
		HeapFreeSlotsFloor:            0.20,
		HeapInitSlots:                 [5]int{10000, 10000, 10000, 10000, 10000},
		HeapGrowthFactor:              1.8,
		HeapGrowthMaxSlots:            0,
		HeapFreeSlotsMinRatio:         0.20,
		HeapFreeSlotsGoalRatio:        0.40,
		HeapFreeSlotsMaxRatio:         0.65,
		OldObjectLimitFactor:          2.0,
		RememberedWbUnprotectedFactor: 0.01,
		MallocLimitMin:                16 * 1024 * 1024,
		MallocLimitMax:                32 * 1024 * 1024 * 1024,
		MallocLimitGrowthFactor:       1.4,
		OldMallocLimitMin:              16 * 1024 * 1024,
		OldMallocLimitMax:              128 * 1024 * 1024 * 1024,
		OldMallocLimitGrowth:          1.2,
		EnableMNThreads:               true,
		MaxCPU:                        8,
		AllowFullMark:                 true,
	}
}

// BindFlags registers a subset of the tunables on fs (free-slots floor,
// heap growth, old-object limit factor, malloc growth factor, the two
// scheduler settings and rgengc_allow_full_mark) with GRAVITON_*-prefixed
// env fallbacks via viper, returning a function that materializes the
// final Config once fs has been parsed. Every other Config field keeps
// its Default() value.
func BindFlags(fs *pflag.FlagSet) func() Config {
	d := Default()
	v := viper.New()
	v.SetEnvPrefix("graviton")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	fs.Float64("heap-free-slots-floor", d.HeapFreeSlotsFloor, "minimum fraction of free slots kept per heap")
	fs.Float64("heap-growth-factor", d.HeapGrowthFactor, "page count growth factor when a heap runs out of free pages")
	fs.Int("heap-growth-max-slots", d.HeapGrowthMaxSlots, "cap on slots added per heap growth step (0 = unbounded)")
	fs.Float64("old-object-limit-factor", d.OldObjectLimitFactor, "old_objects_limit = factor * live old objects after a major GC")
	fs.Float64("malloc-limit-growth-factor", d.MallocLimitGrowthFactor, "malloc_limit growth factor when tripped")
	fs.Bool("enable-mn-threads", d.EnableMNThreads, "allow shared native threads (M:N scheduling)")
	fs.Int("max-cpu", d.MaxCPU, "maximum number of shared native threads")
	fs.Bool("rgengc-allow-full-mark", d.AllowFullMark, "allow major (full-mark) GC cycles")

	_ = v.BindPFlags(fs)

	return func() Config {
		c := d
		c.HeapFreeSlotsFloor = v.GetFloat64("heap-free-slots-floor")
		c.HeapGrowthFactor = v.GetFloat64("heap-growth-factor")
		c.HeapGrowthMaxSlots = v.GetInt("heap-growth-max-slots")
		c.OldObjectLimitFactor = v.GetFloat64("old-object-limit-factor")
		c.MallocLimitGrowthFactor = v.GetFloat64("malloc-limit-growth-factor")
		c.EnableMNThreads = v.GetBool("enable-mn-threads")
		c.MaxCPU = v.GetInt("max-cpu")
		c.AllowFullMark = v.GetBool("rgengc-allow-full-mark")
		return c
	}
}
