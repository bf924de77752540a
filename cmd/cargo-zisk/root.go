// cmd/cargo-zisk/root.go
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zisk-core/provercore/config"
	"github.com/zisk-core/provercore/zkerr"
)

var (
	flagProvingKey   string
	flagVerboseCount int
	flagField        string
	flagInputPath    string
	flagElfPath      string
	flagOutputDir    string
	flagAggregation  bool
	flagFinalSNARK   bool
	flagVerifyProofs bool
	flagPort         uint16
)

var rootCmd = &cobra.Command{
	Use:   "cargo-zisk",
	Short: "zkVM proof-orchestration CLI",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := logrus.InfoLevel
		switch {
		case flagVerboseCount >= 2:
			level = logrus.TraceLevel
		case flagVerboseCount == 1:
			level = logrus.DebugLevel
		}
		logging := config.LoggingFromEnv(config.LoggingConfig{Level: level.String(), Format: "compact"})
		if parsed, err := logrus.ParseLevel(logging.Level); err == nil {
			level = parsed
		}
		logrus.SetLevel(level)
		if logging.Format == "json" {
			logrus.SetFormatter(&logrus.JSONFormatter{})
		} else {
			logrus.SetFormatter(&logrus.TextFormatter{DisableColors: logging.Format == "compact"})
		}
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagProvingKey, "proving-key", "k", defaultProvingKeyPath(), "path to the proving key directory")
	pf.CountVarP(&flagVerboseCount, "verbose", "v", "increase log verbosity (repeatable)")
	pf.StringVar(&flagField, "field", string(config.FieldGoldilocks), "arithmetic field")
	pf.StringVarP(&flagInputPath, "input", "i", "", "path to the program input")
	pf.StringVarP(&flagElfPath, "elf", "e", "", "path to the RISC-V ELF")
	pf.StringVarP(&flagOutputDir, "output", "o", ".", "output directory")
	pf.BoolVar(&flagAggregation, "aggregation", false, "aggregate per-instance proofs into one")
	pf.BoolVar(&flagFinalSNARK, "final-snark", false, "wrap the aggregated proof in a SNARK")
	pf.BoolVar(&flagVerifyProofs, "verify-proofs", false, "verify every partial proof before aggregating")
	pf.Uint16Var(&flagPort, "port", 8080, "TCP port for the server subcommand")

	rootCmd.AddCommand(sdkCmd, buildCmd, runCmd, proveCmd, verifyConstraintsCmd, verifyStarkCmd, romSetupCmd, cleanCmd, checkSetupCmd, serverCmd)
}

func defaultProvingKeyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".zisk"
	}
	return home + "/.zisk"
}

func proveConfigFromFlags() config.ProveConfig {
	return config.ProveConfig{
		ProvingKeyPath: flagProvingKey,
		ElfPath:        flagElfPath,
		InputPath:      flagInputPath,
		OutputDir:      flagOutputDir,
		Field:          config.Field(flagField),
		Aggregation:    flagAggregation,
		FinalSNARK:     flagFinalSNARK,
		VerifyProofs:   flagVerifyProofs,
		Verbosity:      flagVerboseCount,
	}
}

// Execute runs the root command, mapping errors to the exit codes spec.md
// §6 names: 0 success, 1 generic error, 2 bind error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		if zkerr.KindOf(err) == zkerr.PortInUse {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// requireElf is the shared precondition for every subcommand that operates
// on a compiled program.
func requireElf() error {
	if flagElfPath == "" {
		return zkerr.New(zkerr.ConfigInvalid, "missing required -e/--elf flag", nil)
	}
	return nil
}
