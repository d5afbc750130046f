package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"graviton/internal/objspace"
)

func newStressCmd() *cobra.Command {
	var (
		iterations  int
		allocations int
		stressMode  bool
		seed        int64
	)
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Run a synthetic mutator loop under gc_stress, reporting per-cycle stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := cfgFromFS()
			log := newLogger()
			g := newMutatorGraph()
			os_ := objspace.New(cfg, log, g.hooks())
			cache := objspace.NewRactorCache()
			os_.StressSet(stressMode)

			rng := rand.New(rand.NewSource(seed))
			for cycle := 0; cycle < iterations; cycle++ {
				parent, hasParent := -1, false
				for i := 0; i < allocations; i++ {
					n := g.allocDecimal(os_, cache, parent, hasParent, i%5 != 0, rng)
					if i%7 == 0 {
						parent, hasParent = n, true
					}
				}
				g.dropRandomRoots(allocations/3, rng)
				os_.DrainCache(cache)

				full := cycle%4 == 0
				os_.Start(full, full, true, false)

				st := os_.Stat()
				fmt.Printf("cycle %d: live=%d free=%d allocated=%d freed=%d gc_count=%d\n",
					cycle, st["heap_live_slots"], st["heap_free_slots"],
					st["total_allocated_objects"], st["total_freed_objects"], st["count"])
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&iterations, "cycles", 20, "number of mutate+collect cycles to run")
	cmd.Flags().IntVar(&allocations, "allocs-per-cycle", 500, "objects allocated per cycle")
	cmd.Flags().BoolVar(&stressMode, "gc-stress", false, "set the gc_stress flag via StressSet (stored and reported by StressGet; allocation and collection do not read it)")
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "PRNG seed for the synthetic mutator graph")
	return cmd
}
