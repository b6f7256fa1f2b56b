package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/copyleftdev/layoutevo/internal/config"
	"github.com/copyleftdev/layoutevo/internal/evaluation"
	"github.com/copyleftdev/layoutevo/internal/layout"
	"github.com/copyleftdev/layoutevo/internal/logging"
	"github.com/copyleftdev/layoutevo/internal/optimization"
)

var version = "0.1.0"

// app carries the flags and loaded state shared by all subcommands.
type app struct {
	logLevel   string
	logFormat  string
	layoutFile string
	evalParams string
	unigrams   string
	bigrams    string
	trigrams   string
	corpus     string

	logger    *logging.Logger
	resources *config.Resources
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "layoutopt",
		Short: "Evaluate and optimize keyboard layouts",
		Long: `layoutopt scores keyboard layouts against n-gram statistics and searches
for better ones with a genetic algorithm or simulated annealing.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.NewLogger(&logging.Config{
				Level:  a.logLevel,
				Format: a.logFormat,
				Output: "stderr",
			})
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flags.StringVar(&a.logFormat, "log-format", "console", "Log format (console, json)")
	flags.StringVar(&a.layoutFile, "layout-config", config.GetEnv("LAYOUT_CONFIG", ""), "YAML layout configuration")
	flags.StringVar(&a.evalParams, "eval-params", config.GetEnv("EVALUATION_PARAMS", ""), "YAML evaluation parameters")
	flags.StringVar(&a.unigrams, "unigrams", "", "Unigram frequency file")
	flags.StringVar(&a.bigrams, "bigrams", "", "Bigram frequency file")
	flags.StringVar(&a.trigrams, "trigrams", "", "Trigram frequency file")
	flags.StringVar(&a.corpus, "corpus", config.GetEnv("NGRAM_CORPUS", ""), "Text corpus used when no frequency files are given")

	rootCmd.AddCommand(
		newEvaluateCmd(a),
		newPlotCmd(a),
		newKeysCmd(a),
		newGeneticCmd(a),
		newAnnealCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

// load reads the configured resources once.
func (a *app) load() (*config.Resources, error) {
	if a.resources != nil {
		return a.resources, nil
	}
	cfg := &config.Config{}
	cfg.Layout.ConfigFile = a.layoutFile
	cfg.Layout.EvaluationParams = a.evalParams
	cfg.Layout.UnigramFile = a.unigrams
	cfg.Layout.BigramFile = a.bigrams
	cfg.Layout.TrigramFile = a.trigrams
	cfg.Layout.CorpusFile = a.corpus

	res, err := config.LoadResources(cfg)
	if err != nil {
		return nil, err
	}
	a.resources = res
	return res, nil
}

// setup returns the evaluator, the layout materializer and a permutation
// generator for the given base layout and fixed characters.
func (a *app) setup(base, fixed string) (*evaluation.Model, *layout.Generator, *optimization.LayoutGenerator, error) {
	res, err := a.load()
	if err != nil {
		return nil, nil, nil, err
	}
	model, err := res.Evaluator()
	if err != nil {
		return nil, nil, nil, err
	}
	layouts, perms, err := res.Layout.WithBaseLayout(base, fixed).Build()
	if err != nil {
		return nil, nil, nil, err
	}
	return model, layouts, perms, nil
}

// readParams returns the content of a YAML parameter file, or nil for an empty path.
func readParams(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	return os.ReadFile(path)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "layoutopt version %s\n", version)
		},
	}
}
