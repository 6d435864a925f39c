package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"godlearn/config"
	"godlearn/internal/domain"
)

// Exit codes distinguish failure classes for operators and scripts.
const (
	exitOK        = 0
	exitError     = 1
	exitUsage     = 2
	exitIntegrity = 3
	exitTransient = 4
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "godlearn",
	Short: "Deterministic scholarly-knowledge pipeline",
	Long: `God-Learn turns a corpus of source documents into page-accurate,
citation-locked retrievable chunks, promotes high-signal retrieval results
into immutable knowledge units, builds a typed cross-document reasoning
graph over them, and answers queries behind an explicit epistemic boundary.

Example usage:
  godlearn ingest ./papers          # Build the manifest and index
  godlearn verify                   # Gate: manifest <-> fs <-> vectors
  godlearn query -q "attention"     # Deterministic retrieval
  godlearn promote -q "attention"   # Promote a knowledge unit
  godlearn reason                   # Build the reasoning graph
  godlearn answer -q "attention" --mode local`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger, err = buildLogger(cfg.Logging.Level)
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Sync()
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var usage *usageError
	switch {
	case errors.Is(err, domain.ErrIntegrity), errors.Is(err, domain.ErrEligibility):
		return exitIntegrity
	case errors.Is(err, domain.ErrTransient):
		return exitTransient
	case errors.As(err, &usage):
		return exitUsage
	default:
		return exitError
	}
}

// usageError marks argument/flag misuse so it maps to its own exit code.
type usageError struct {
	msg string
}

func (e *usageError) Error() string {
	return e.msg
}

func usageErrorf(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = lvl
	zcfg.DisableStacktrace = true
	return zcfg.Build()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./godlearn.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "corpus root directory (default is current directory)")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}
