// Command poolbench drives a pool of compressors from many goroutines and
// reports throughput together with the pool counters.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ajitpratap0/oganesson/pkg/config"
	"github.com/ajitpratap0/oganesson/pkg/errors"
	"github.com/ajitpratap0/oganesson/pkg/pool"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "poolbench",
		Short: "poolbench - load generator for oganesson object pools",
		Long: `poolbench fills a pool with compressors and hammers it from concurrent workers.
It prints throughput, rejected acquisitions and the pool counters when done.`,
		SilenceUsage: true,
	}
	root.SetOut(out)

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "poolbench v%s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "Go version: %s\n", runtime.Version())
			fmt.Fprintf(cmd.OutOrStdout(), "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	v := viper.New()

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a benchmark",
		Long: `Run a benchmark against a compressor pool.

Settings come from the YAML file given with --config, then from POOLBENCH_*
environment variables, then from flags.

Example:
  poolbench run --size 4 --policy static --workers 16 --algorithm lz4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			report, err := runBenchmark(cmd.Context(), cfg, benchOptions{
				traceOut: cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			if v.GetBool("json") {
				return report.WriteJSON(cmd.OutOrStdout())
			}
			report.WriteText(cmd.OutOrStdout())
			return nil
		},
	}

	defaults := config.DefaultPoolConfig()
	flags := runCmd.Flags()
	flags.String("config", "", "Path to a YAML pool configuration file")
	flags.String("name", defaults.Name, "Pool name used in logs and metrics")
	flags.Int("size", defaults.Size, "Compressors created up front")
	flags.String("policy", defaults.Policy.String(), "Overflow policy: static or dynamic")
	flags.String("algorithm", defaults.Compression.Algorithm, "Compression algorithm (none, gzip, deflate, snappy, s2, lz4, zstd)")
	flags.String("level", defaults.Compression.Level, "Compression level (fastest, default, better, best)")
	flags.Int("workers", defaults.Benchmark.Workers, "Concurrent workers")
	flags.Int("iterations", defaults.Benchmark.Iterations, "Compress/decompress round trips per worker")
	flags.Int("payload-size", defaults.Benchmark.PayloadSize, "Bytes per payload")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	flags.String("log-level", defaults.Logging.Level, "Log level (debug, info, warn, error)")
	flags.Bool("trace", false, "Export spans to stderr")
	flags.Bool("json", false, "Print the report as JSON")

	v.SetEnvPrefix("POOLBENCH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindPFlags(flags)

	return runCmd
}

// loadConfig layers the config file, environment and flags. Only values
// that were explicitly set override the file.
func loadConfig(v *viper.Viper) (*config.PoolConfig, error) {
	cfg := config.DefaultPoolConfig()
	if path := v.GetString("config"); path != "" {
		loaded, err := config.LoadPoolConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if v.IsSet("name") {
		cfg.Name = v.GetString("name")
	}
	if v.IsSet("size") {
		cfg.Size = v.GetInt("size")
	}
	if v.IsSet("policy") {
		p, err := pool.ParsePolicy(v.GetString("policy"))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeValidation, "invalid --policy")
		}
		cfg.Policy = p
	}
	if v.IsSet("algorithm") {
		cfg.Compression.Algorithm = v.GetString("algorithm")
	}
	if v.IsSet("level") {
		cfg.Compression.Level = v.GetString("level")
	}
	if v.IsSet("workers") {
		cfg.Benchmark.Workers = v.GetInt("workers")
	}
	if v.IsSet("iterations") {
		cfg.Benchmark.Iterations = v.GetInt("iterations")
	}
	if v.IsSet("payload-size") {
		cfg.Benchmark.PayloadSize = v.GetInt("payload-size")
	}
	if v.IsSet("metrics-addr") {
		cfg.Metrics.Address = v.GetString("metrics-addr")
		cfg.Metrics.Enabled = cfg.Metrics.Enabled || cfg.Metrics.Address != ""
	}
	if v.IsSet("log-level") {
		cfg.Logging.Level = v.GetString("log-level")
	}
	if v.GetBool("trace") {
		cfg.Tracing.Enabled = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid configuration")
	}
	return cfg, nil
}
