package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/realsim/cosim/sim"
	"github.com/realsim/cosim/sim/experiment"
	"github.com/realsim/cosim/sim/trace"
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "cosim",
	Short: "Co-scheduling cluster simulator",
}

// runOptions are the resolved `run` settings: flags, overridden by COSIM_*
// environment variables.
type runOptions struct {
	Experiments   string
	LogLevel      string
	Parallelism   int
	MetricsOut    string
	DefaultPolicy string
	TraceLevel    string
}

func loadRunOptions() runOptions {
	return runOptions{
		Experiments:   viper.GetString("experiments"),
		LogLevel:      viper.GetString("log"),
		Parallelism:   viper.GetInt("parallelism"),
		MetricsOut:    viper.GetString("metrics-out"),
		DefaultPolicy: viper.GetString("default-policy"),
		TraceLevel:    viper.GetString("trace-level"),
	}
}

// runCmd simulates every experiment matched by --experiments
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run experiments under every configured policy",
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return viper.BindPFlags(cmd.Flags())
	},
	Run: func(cmd *cobra.Command, args []string) {
		opts := loadRunOptions()
		level, err := logrus.ParseLevel(opts.LogLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", opts.LogLevel)
		}
		logrus.SetLevel(level)

		start := time.Now()
		if err := runExperiments(cmd.Context(), opts, cmd.OutOrStdout()); err != nil {
			logrus.Fatalf("%v", err)
		}
		logrus.Infof("Simulation complete in %s.", time.Since(start).Round(time.Millisecond))
	},
}

// runExperiments loads, runs and reports every experiment in turn. Policies
// of one experiment run in parallel.
func runExperiments(ctx context.Context, opts runOptions, w io.Writer) error {
	if opts.Experiments == "" {
		return errors.New("--experiments is required")
	}
	if opts.TraceLevel != "" && !trace.IsValidTraceLevel(opts.TraceLevel) {
		return errors.Errorf("unknown trace level %q", opts.TraceLevel)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	exps, err := experimentsFromPattern(opts.Experiments)
	if err != nil {
		return err
	}
	metrics := experiment.NewMetrics()
	for _, x := range exps {
		if opts.Parallelism > 0 {
			x.Parallelism = opts.Parallelism
		}
		if opts.DefaultPolicy != "" {
			x.DefaultPolicy = opts.DefaultPolicy
		}
		if opts.TraceLevel != "" {
			x.TraceLevel = trace.TraceLevel(opts.TraceLevel)
		}
		runner, err := experiment.NewRunner(x, metrics)
		if err != nil {
			return err
		}
		logrus.Infof("Running experiment %s", x)
		results, err := runner.Run(ctx)
		if err != nil {
			return errors.Wrapf(err, "experiment %s", x.Name)
		}
		printReport(w, x.Name, results)
	}
	if opts.MetricsOut != "" {
		return metrics.WriteToTextfile(opts.MetricsOut)
	}
	return nil
}

// policiesCmd lists the scheduling policies an experiment can name
var policiesCmd = &cobra.Command{
	Use:   "policies",
	Short: "List the available scheduling policies",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range sim.ValidSchedulerNames() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags, environment overrides and subcommands
func init() {
	viper.SetEnvPrefix("COSIM")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	runCmd.Flags().String("experiments", "", "Glob of experiment files, ** descends into directories")
	runCmd.Flags().String("log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().Int("parallelism", 0, "Maximum concurrent policy runs per experiment (0 = experiment setting)")
	runCmd.Flags().String("metrics-out", "", "Write prometheus metrics of all runs to this file")
	runCmd.Flags().String("default-policy", "", "Override the policy every run is compared against")
	runCmd.Flags().String("trace-level", "", "Override the trace level (none, decisions, full)")

	rootCmd.AddCommand(runCmd, policiesCmd)
}
