// Command infonode runs one simulated database node behind an HTTP info
// gateway. Several infonodes started with the same --cluster-size and
// --namespaces file form a local cluster that clusterscope can aggregate.
//
// HTTP API:
//
//	GET    /info?cmd=<command>                  info answer as text
//	GET    /health                              liveness
//	GET    /ns/{ns}/sets/{set}/records/{key}    read a record
//	PUT    /ns/{ns}/sets/{set}/records/{key}    write a record
//	DELETE /ns/{ns}/sets/{set}/records/{key}    delete a record
//	PUT    /ns/{ns}/sindex/{name}               register a secondary index
//	PUT    /udfs/{filename}                     register a UDF module
//
// Configuration (flags, with environment fallbacks):
//   - --id, NODE_ID: node identifier (required)
//   - --listen, NODE_LISTEN: listen address (default ":3000")
//   - --service, NODE_SERVICE: advertised host:port (default derived from --listen)
//   - --index, --cluster-size: position and size of the cluster, used to place
//     seeded records
//   - --namespaces: YAML list of namespace definitions (default one "test"
//     namespace with replication factor 2)
//   - --seed: number of demo records to place in set "demo"
//
// Example usage:
//
//	infonode --id node-1 --listen :3001 --index 0 --cluster-size 2 --seed 100 &
//	infonode --id node-2 --listen :3002 --index 1 --cluster-size 2 --seed 100 &
//	clusterscope inspect --host http://127.0.0.1:3001 --host http://127.0.0.1:3002
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/dreamware/clusterscope/internal/logging"
	"github.com/dreamware/clusterscope/internal/simnode"
)

// seedSet receives the records written by --seed.
const seedSet = "demo"

type options struct {
	id             string
	listen         string
	service        string
	index          int
	clusterSize    int
	namespacesFile string
	seed           int
	logLevel       string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := options{}
	cmd := &cobra.Command{
		Use:           "infonode",
		Short:         "Run a simulated node behind an HTTP info gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.New(logging.Config{Level: opts.logLevel})
			if err != nil {
				return err
			}
			defer logger.Sync()

			node, err := buildNode(opts)
			if err != nil {
				return err
			}
			return run(cmd.Context(), node, opts.listen, logger)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.id, "id", getenv("NODE_ID", ""), "node identifier")
	f.StringVar(&opts.listen, "listen", getenv("NODE_LISTEN", ":3000"), "listen address")
	f.StringVar(&opts.service, "service", getenv("NODE_SERVICE", ""), "advertised host:port")
	f.IntVar(&opts.index, "index", 0, "position of this node in the cluster")
	f.IntVar(&opts.clusterSize, "cluster-size", 1, "number of nodes in the cluster")
	f.StringVar(&opts.namespacesFile, "namespaces", "", "YAML file listing namespaces")
	f.IntVar(&opts.seed, "seed", 0, "demo records to place across the cluster")
	f.StringVar(&opts.logLevel, "log-level", "info", "debug, info, warn or error")
	return cmd
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// buildNode creates the node and places its share of the seeded records.
func buildNode(opts options) (*simnode.Node, error) {
	if opts.id == "" {
		return nil, errors.New("node id is required (--id or NODE_ID)")
	}
	if opts.clusterSize < 1 || opts.index < 0 || opts.index >= opts.clusterSize {
		return nil, fmt.Errorf("index %d outside cluster of %d", opts.index, opts.clusterSize)
	}

	namespaces := []simnode.NamespaceConfig{{Name: "test", ReplicationFactor: 2}}
	if opts.namespacesFile != "" {
		var err error
		if namespaces, err = loadNamespaces(opts.namespacesFile); err != nil {
			return nil, err
		}
	}

	node := simnode.New(simnode.Config{
		ID:          opts.id,
		Service:     advertised(opts.service, opts.listen),
		ClusterSize: opts.clusterSize,
		Namespaces:  namespaces,
	})

	for _, nsCfg := range namespaces {
		ns, err := node.Namespace(nsCfg.Name)
		if err != nil {
			return nil, err
		}
		rf := ns.Config().ReplicationFactor
		for i := 0; i < opts.seed; i++ {
			key := "key-" + strconv.Itoa(i)
			if !simnode.OwnsKey(key, opts.index, rf, opts.clusterSize) {
				continue
			}
			if err := ns.Put(seedSet, key, []byte(fmt.Sprintf(`{"n":%d}`, i))); err != nil {
				return nil, fmt.Errorf("seed %s/%s: %w", nsCfg.Name, key, err)
			}
		}
	}
	return node, nil
}

func loadNamespaces(path string) ([]simnode.NamespaceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read namespaces: %w", err)
	}
	var namespaces []simnode.NamespaceConfig
	if err := yaml.Unmarshal(data, &namespaces); err != nil {
		return nil, fmt.Errorf("failed to parse namespaces: %w", err)
	}
	if len(namespaces) == 0 {
		return nil, fmt.Errorf("%s defines no namespaces", path)
	}
	for i, ns := range namespaces {
		if ns.Name == "" {
			return nil, fmt.Errorf("namespace %d has no name", i)
		}
	}
	return namespaces, nil
}

// advertised picks the service address: the explicit one, or the listen
// address with an empty host replaced by loopback.
func advertised(service, listen string) string {
	if service != "" {
		return service
	}
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return listen
	}
	if host == "" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}

func run(ctx context.Context, node *simnode.Node, listen string, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              listen,
		Handler:           simnode.Handler(node, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("infonode listening",
			zap.String("node", node.ID()),
			zap.String("addr", listen))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listen: %w", err)
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-errCh:
		return err
	case <-stop:
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info("infonode stopped", zap.String("node", node.ID()))
	return nil
}
