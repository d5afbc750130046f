// Command gravitonctl drives the collector and scheduler from outside
// a real embedder, the way the teacher's manifests ship a small cobra
// tree alongside their library packages. It exists for exercising and
// observing graviton's object space interactively, not as a production
// interpreter front end.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"graviton/internal/gclog"
	"graviton/internal/gcconfig"
)

var (
	logLevel   string
	cfgFromFS  func() gcconfig.Config
)

func main() {
	root := &cobra.Command{
		Use:   "gravitonctl",
		Short: "Drive and observe a graviton object space",
	}

	fs := pflag.NewFlagSet("gravitonctl", pflag.ExitOnError)
	cfgFromFS = gcconfig.BindFlags(fs)
	root.PersistentFlags().AddFlagSet(fs)
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "gclog level: debug, info, warn, error")

	root.AddCommand(newStressCmd())
	root.AddCommand(newStatCmd())
	root.AddCommand(newCompactCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() gclog.Logger { return gclog.New(logLevel) }
