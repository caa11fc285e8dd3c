package main

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/dreamware/clusterscope/internal/cluster"
	"github.com/dreamware/clusterscope/internal/coordinator"
	"github.com/dreamware/clusterscope/internal/logging"
	"github.com/dreamware/clusterscope/internal/profile"
	"github.com/dreamware/clusterscope/internal/telemetry"
)

type inspectOptions struct {
	hosts       []string
	port        int
	timeout     time.Duration
	nodeTimeout time.Duration
	logLevel    string
}

func newInspectCmd() *cobra.Command {
	opts := inspectOptions{}
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the cluster view of a set of nodes as JSON",
		Example: `  clusterscope inspect --host 10.0.0.1 --host 10.0.0.2:3100
  clusterscope inspect --host http://127.0.0.1:3001 --timeout 2s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, opts)
		},
	}
	cmd.Flags().StringSliceVar(&opts.hosts, "host", nil, "info gateway host[:port] or URL (repeatable)")
	cmd.Flags().IntVar(&opts.port, "port", profile.DefaultPort, "port for hosts given without one")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "bound on the whole aggregation")
	cmd.Flags().DurationVar(&opts.nodeTimeout, "node-timeout", 2*time.Second, "bound on each node query")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "debug, info, warn or error")
	return cmd
}

func runInspect(cmd *cobra.Command, opts inspectOptions) error {
	if len(opts.hosts) == 0 {
		return errors.New("at least one --host is required")
	}
	logger, err := logging.New(logging.Config{Level: opts.logLevel, Development: true})
	if err != nil {
		return err
	}
	defer logger.Sync()

	nodes := make([]coordinator.NodeClient, 0, len(opts.hosts))
	for _, h := range opts.hosts {
		nodes = append(nodes, cluster.NewHTTPNode(nodeInfo(h, opts.port), nil))
	}
	b := coordinator.NewBroadcaster(nodes,
		coordinator.WithNodeTimeout(opts.nodeTimeout),
		coordinator.WithLogger(logger))

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	view, err := telemetry.NewAssembler(b, logger).FetchCluster(ctx, "inspect")
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(view)
}
