package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"novel_crafter/config"
	"novel_crafter/export"
	"novel_crafter/grammar"
	"novel_crafter/processor"
)

var (
	// Global flags
	configPath string
	verbose    bool

	logger *zap.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "novel-crafter",
	Short: "Grammar, name and formatting checks for manuscripts",
	Long: `novel-crafter analyses manuscripts without ever changing them.

It reports grammar and style issues, detects likely character names and
exports text to Word, HTML, PDF or plain text with the original paragraph
structure intact. Run "novel-crafter serve" to expose the same pipeline over
HTTP together with the writing assistant and image search.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zc := zap.NewProductionConfig()
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (.json, .yaml or .toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logs")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(namesCmd)
	rootCmd.AddCommand(exportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newProcessor builds the pipeline from the loaded configuration.
func newProcessor(cfg *config.Config, logger *zap.Logger) *processor.Processor {
	engine := grammar.NewEngine(logger.Named("grammar"))
	if cfg.Grammar.MaxMatchesPerRule > 0 {
		engine.SetMaxMatchesPerRule(cfg.Grammar.MaxMatchesPerRule)
	}
	logger.Debug("grammar engine ready", zap.Strings("rules", engine.Rules()))
	exp := export.NewExporter(logger.Named("export"),
		export.WithDefaults(cfg.Export),
		export.WithPDFRenderer(export.RodPDFRenderer{ControlURL: cfg.Browser.ControlURL, Bin: cfg.Browser.Bin}))
	return processor.New(logger,
		processor.WithGrammarChecker(engine),
		processor.WithExporter(exp))
}

// readInput reads path, or standard input when path is "-".
func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		return string(data), err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
