// Command clusterscope serves the cluster telemetry API and inspects clusters
// from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "clusterscope",
		Short: "Aggregate telemetry from a cluster of database nodes",
		Long: `clusterscope broadcasts info commands to every node of a cluster and
merges the answers into one cluster-level view.

Available subcommands:
  serve   - Run the HTTP API over stored connection profiles
  inspect - Print the cluster view of a set of nodes once`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newInspectCmd())
	return root
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
