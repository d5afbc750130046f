package main

import (
	"encoding/json"
	"expvar"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"graviton/internal/objspace"
)

func newStatCmd() *cobra.Command {
	var (
		allocations int
		httpAddr    string
		seed        int64
	)
	cmd := &cobra.Command{
		Use:   "stat",
		Short: "Allocate a sample graph, run one collection, and print stat()/stat_heap()",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := cfgFromFS()
			log := newLogger()
			g := newMutatorGraph()
			os_ := objspace.New(cfg, log, g.hooks())
			cache := objspace.NewRactorCache()

			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < allocations; i++ {
				g.allocDecimal(os_, cache, -1, false, true, rng)
			}
			os_.DrainCache(cache)
			os_.Start(true, true, true, false)

			if httpAddr != "" {
				publishStat(os_)
				fmt.Printf("serving /debug/vars on %s\n", httpAddr)
				return http.ListenAndServe(httpAddr, nil)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"stat":      os_.Stat(),
				"stat_heap": os_.StatHeap(nil),
				"latest_gc": os_.LatestGCInfo(),
			})
		},
	}
	cmd.Flags().IntVar(&allocations, "allocs", 2000, "objects allocated before reporting stats")
	cmd.Flags().StringVar(&httpAddr, "http", "", "if set, serve live stat() output at /debug/vars on this address instead of printing once")
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "PRNG seed for the synthetic mutator graph")
	return cmd
}

// publishStat wires ObjectSpace.Stat into expvar the way the teacher's
// expvar.Publish exposes cmdline/memstats, adapted to publish GC
// counters instead.
func publishStat(os_ *objspace.ObjectSpace) {
	expvar.Publish("graviton_stat", expvar.Func(func() any {
		return os_.Stat()
	}))
	expvar.Publish("graviton_stat_heap", expvar.Func(func() any {
		return os_.StatHeap(nil)
	}))
}
