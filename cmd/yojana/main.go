package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"yojana/internal/engine"
	"yojana/internal/registry"
)

var (
	// Global flags
	verbose    bool
	schemesDir string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "yojana",
	Short: "yojana - welfare scheme eligibility engine",
	Long: `yojana determines eligibility for government welfare schemes.

Scheme rules are loaded from YAML documents and evaluated either by a direct
rule interpreter or by compiling the scheme into a Datalog program and asking
the Mangle reasoner. Both backends produce the same verdicts, explanations
and recommendations.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// openEngine loads the catalog and wraps it in the evaluation facade.
func openEngine() (*engine.Engine, *registry.Registry, error) {
	reg, err := registry.Open(schemesDir, logger)
	if err != nil {
		return nil, nil, err
	}
	return engine.New(reg, logger), reg, nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&schemesDir, "schemes", "schemes", "directory of scheme YAML documents")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(schemesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
