package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/pulsar/internal/pipeline"
	"github.com/ajitpratap0/pulsar/pkg/config"
	"github.com/ajitpratap0/pulsar/pkg/input"
	"github.com/ajitpratap0/pulsar/pkg/json"
	"github.com/ajitpratap0/pulsar/pkg/logger"
	"github.com/ajitpratap0/pulsar/pkg/parser"
)

var version = "0.1.0"

type columnReport struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Missing     bool   `json:"missing,omitempty"`
	Cardinality int    `json:"cardinality,omitempty"`
}

type parseReport struct {
	File     string           `json:"file"`
	Rows     int              `json:"rows"`
	Cols     int              `json:"cols"`
	Columns  []columnReport   `json:"columns"`
	Warnings []parser.Warning `json:"warnings,omitempty"`
	Dropped  int              `json:"dropped_warnings,omitempty"`
	Elapsed  string           `json:"elapsed"`
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	viper.SetEnvPrefix("PULSAR")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	root := &cobra.Command{
		Use:   "pulsar",
		Short: "Pulsar - High-performance delimited text parser",
		Long: `Pulsar parses delimited text into a typed binary tape using online
type inference, zero-copy string pooling and chunked parallel parsing.`,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Pulsar v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(newParseCmd(false))
	root.AddCommand(newParseCmd(true))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newParseCmd builds either the parse command (full report plus optional
// record dump) or the schema command (inferred column types only).
func newParseCmd(schemaOnly bool) *cobra.Command {
	var configFile, delimiter, logLevel, metricsListen string
	var workers, limit, dumpRows int
	var noHeader bool

	use, short := "parse <file>", "Parse a file and report the result"
	if schemaOnly {
		use, short = "schema <file>", "Infer and print a file's column types"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if lvl := viper.GetString("log_level"); lvl != "" && !cmd.Flags().Changed("log-level") {
				logLevel = lvl
			}
			// keep stdout clean for the JSON report
			if err := logger.Init(logger.Config{Level: logLevel, Encoding: "console",
				OutputPaths: []string{"stderr"}}); err != nil {
				return err
			}
			log := logger.Get().With(zap.String("file", args[0]))

			if metricsListen != "" {
				go serveMetrics(metricsListen, log)
			}

			cfg, err := loadConfig(configFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("delimiter") {
				cfg.Syntax.Delimiter = delimiter
			}
			if cmd.Flags().Changed("workers") {
				cfg.Concurrency.Workers = workers
			}
			if cmd.Flags().Changed("limit") {
				cfg.Limits.RowLimit = limit
			}
			if noHeader {
				cfg.Layout.HeaderRow = 0
			}

			return runParse(cmd.Context(), args[0], cfg, log, schemaOnly, dumpRows)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to parse configuration YAML file")
	cmd.Flags().StringVarP(&delimiter, "delimiter", "d", ",", "Field delimiter byte")
	cmd.Flags().IntVarP(&workers, "workers", "w", runtime.NumCPU(), "Worker count for chunked parsing")
	cmd.Flags().BoolVar(&noHeader, "no-header", false, "Treat the first row as data")
	cmd.Flags().StringVar(&logLevel, "log-level", "error", "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&metricsListen, "metrics-listen", "", "Address to expose Prometheus metrics on (e.g. :9090)")
	if !schemaOnly {
		cmd.Flags().IntVar(&limit, "limit", 0, "Stop after this many data rows (0 = all)")
		cmd.Flags().IntVar(&dumpRows, "dump", 0, "Print up to this many parsed rows as JSON lines")
	}
	return cmd
}

func loadConfig(path string) (*config.ParseConfig, error) {
	if path == "" {
		return config.NewParseConfig(), nil
	}
	return config.LoadFile(path)
}

func runParse(ctx context.Context, path string, cfg *config.ParseConfig, log *zap.Logger, schemaOnly bool, dumpRows int) error {
	start := time.Now()

	src, err := input.Load(path)
	if err != nil {
		return err
	}
	defer src.Close()

	pipe, err := pipeline.New(cfg, log)
	if err != nil {
		return err
	}

	res, err := pipe.Parse(ctx, src.Data)
	if err != nil {
		return err
	}

	cols := make([]columnReport, len(res.Columns))
	for i, c := range res.Columns {
		cols[i] = columnReport{
			Name:    c.Name,
			Type:    c.Code.Kind.String(),
			Missing: c.Code.Missing,
		}
		if c.Pool != nil {
			cols[i].Cardinality = c.Pool.Len()
		}
	}

	out := os.Stdout
	if schemaOnly {
		return json.Encode(out, cols)
	}

	report := parseReport{
		File:     path,
		Rows:     res.Rows,
		Cols:     len(res.Columns),
		Columns:  cols,
		Warnings: res.Warnings,
		Dropped:  res.DroppedWarnings,
		Elapsed:  time.Since(start).String(),
	}
	if err := json.Encode(out, report); err != nil {
		return err
	}

	if dumpRows > 0 {
		reader := parser.NewTapeReader(src.Data, res, pipe.Options())
		n := res.Rows
		if dumpRows < n {
			n = dumpRows
		}
		for r := 0; r < n; r++ {
			if err := json.Encode(out, reader.Row(r)); err != nil {
				return err
			}
		}
	}
	return nil
}

func serveMetrics(addr string, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Info("serving metrics", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("metrics server stopped", zap.Error(err))
	}
}
