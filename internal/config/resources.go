package config

import (
	"fmt"
	"os"

	"github.com/copyleftdev/layoutevo/internal/evaluation"
)

// Resources bundles the loaded data every optimization run needs.
type Resources struct {
	Layout     LayoutConfig
	Evaluation evaluation.Parameters
	Ngrams     *evaluation.Ngrams
}

// LoadResources reads the layout configuration, evaluation weights and
// n-gram statistics named in cfg.
func LoadResources(cfg *Config) (*Resources, error) {
	layoutCfg, err := LoadLayoutConfig(cfg.Layout.ConfigFile)
	if err != nil {
		return nil, err
	}

	params := evaluation.DefaultParameters()
	if cfg.Layout.EvaluationParams != "" {
		data, err := os.ReadFile(cfg.Layout.EvaluationParams)
		if err != nil {
			return nil, fmt.Errorf("read evaluation params: %w", err)
		}
		if params, err = evaluation.ParseParameters(data); err != nil {
			return nil, err
		}
	}

	ngrams, err := LoadNgrams(cfg.Layout.UnigramFile, cfg.Layout.BigramFile, cfg.Layout.TrigramFile, cfg.Layout.CorpusFile)
	if err != nil {
		return nil, err
	}

	return &Resources{Layout: layoutCfg, Evaluation: params, Ngrams: ngrams}, nil
}

// LoadNgrams reads frequency files when any is given, otherwise counts the
// corpus file, otherwise the built-in corpus.
func LoadNgrams(unigramFile, bigramFile, trigramFile, corpusFile string) (*evaluation.Ngrams, error) {
	if unigramFile == "" && bigramFile == "" && trigramFile == "" {
		if corpusFile == "" {
			return evaluation.NgramsFromText(evaluation.DefaultCorpus), nil
		}
		data, err := os.ReadFile(corpusFile)
		if err != nil {
			return nil, fmt.Errorf("read corpus: %w", err)
		}
		return evaluation.NgramsFromText(string(data)), nil
	}

	var counts [3]map[string]float64
	for i, path := range []string{unigramFile, bigramFile, trigramFile} {
		if path == "" {
			counts[i] = map[string]float64{}
			continue
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %d-gram file: %w", i+1, err)
		}
		counts[i], err = evaluation.ParseFrequencies(f, i+1)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return evaluation.NewNgrams(counts[0], counts[1], counts[2]), nil
}

// Evaluator builds the reference cost model over the loaded resources.
func (r *Resources) Evaluator() (*evaluation.Model, error) {
	return evaluation.NewModel(r.Ngrams, r.Evaluation)
}
