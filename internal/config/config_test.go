package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/layoutevo/internal/optimization"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 30*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 4, cfg.Optimization.MaxJobs)
	assert.True(t, cfg.Optimization.DefaultSeeded)
	assert.Empty(t, cfg.Layout.ConfigFile)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("OPT_MAX_JOBS", "0")
	t.Setenv("LAYOUT_CONFIG", "/etc/layoutevo/layout.yaml")
	t.Setenv("OPT_STEP_PAUSE", "5ms")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 1, cfg.Optimization.MaxJobs)
	assert.Equal(t, "/etc/layoutevo/layout.yaml", cfg.Layout.ConfigFile)
	assert.Equal(t, 5*time.Millisecond, cfg.Optimization.StepPause)

	t.Setenv("HTTP_PORT", "not-a-port")
	_, err = Load()
	assert.Error(t, err)
}

func TestGetEnv(t *testing.T) {
	t.Setenv("LAYOUTEVO_TEST_VALUE", "set")
	assert.Equal(t, "set", GetEnv("LAYOUTEVO_TEST_VALUE", "fallback"))
	assert.Equal(t, "fallback", GetEnv("LAYOUTEVO_TEST_MISSING", "fallback"))
}

func TestDefaultLayoutConfigBuilds(t *testing.T) {
	layouts, perms, err := DefaultLayoutConfig().Build()
	require.NoError(t, err)
	assert.Equal(t, 30, layouts.Keyboard().Size())
	assert.Equal(t, 26, perms.Len())
	assert.Equal(t, ",./;", perms.FixedCharacters())
	assert.Equal(t, DefaultBaseLayout, perms.BaseLayout())
}

func TestParseLayoutConfig(t *testing.T) {
	yamlDoc := `
keyboard:
  efforts:
    - [1, 2, 3]
    - [1, 1, 1]
  fingers:
    - [0, 1, 2]
    - [5, 6, 7]
base_layout: "abcdef"
fixed_characters: "c"
movable: "abdef"
`
	cfg, err := ParseLayoutConfig([]byte(yamlDoc))
	require.NoError(t, err)
	assert.Equal(t, "abcdef", cfg.BaseLayout)
	assert.Len(t, cfg.Keyboard.Efforts, 2)

	_, perms, err := cfg.Build()
	require.NoError(t, err)
	assert.Equal(t, 5, perms.Len())
	assert.Equal(t, "abdef", perms.Slots())

	_, err = ParseLayoutConfig([]byte("keyboard: ["))
	assert.ErrorIs(t, err, optimization.ErrConfig)
}

func TestBuildRejectsOverlappingCharacters(t *testing.T) {
	cfg := DefaultLayoutConfig()
	cfg.Movable = "qwe"
	cfg.FixedCharacters = "q"
	_, _, err := cfg.Build()
	assert.ErrorIs(t, err, optimization.ErrConfig)

	cfg = DefaultLayoutConfig()
	cfg.Keyboard.Fingers = cfg.Keyboard.Fingers[:1]
	_, _, err = cfg.Build()
	assert.ErrorIs(t, err, optimization.ErrConfig)

	cfg = DefaultLayoutConfig().WithBaseLayout("abc", "")
	_, _, err = cfg.Build()
	assert.ErrorIs(t, err, optimization.ErrConfig, "base layout without the fixed characters")
}

func TestLoadLayoutConfigFile(t *testing.T) {
	cfg, err := LoadLayoutConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultLayoutConfig(), cfg)

	path := filepath.Join(t.TempDir(), "layout.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fixed_characters: \";\"\n"), 0o644))
	cfg, err = LoadLayoutConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ";", cfg.FixedCharacters)
	assert.Equal(t, DefaultBaseLayout, cfg.BaseLayout)

	_, err = LoadLayoutConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadNgrams(t *testing.T) {
	ngrams, err := LoadNgrams("", "", "", "")
	require.NoError(t, err)
	assert.NotEmpty(t, ngrams.Unigrams)
	assert.NotEmpty(t, ngrams.Trigrams)

	dir := t.TempDir()
	uni := filepath.Join(dir, "1-grams.txt")
	bi := filepath.Join(dir, "2-grams.txt")
	require.NoError(t, os.WriteFile(uni, []byte("30 e\n10 t\n"), 0o644))
	require.NoError(t, os.WriteFile(bi, []byte("5 th\n5 he\n"), 0o644))

	ngrams, err = LoadNgrams(uni, bi, "", "")
	require.NoError(t, err)
	require.Len(t, ngrams.Unigrams, 2)
	assert.Equal(t, "e", string(ngrams.Unigrams[0].Chars))
	assert.InDelta(t, 0.75, ngrams.Unigrams[0].Freq, 1e-12)
	assert.Len(t, ngrams.Bigrams, 2)
	assert.Empty(t, ngrams.Trigrams)

	corpus := filepath.Join(dir, "corpus.txt")
	require.NoError(t, os.WriteFile(corpus, []byte("aaa"), 0o644))
	ngrams, err = LoadNgrams("", "", "", corpus)
	require.NoError(t, err)
	require.Len(t, ngrams.Unigrams, 1)
	assert.Equal(t, 1.0, ngrams.Unigrams[0].Freq)

	require.NoError(t, os.WriteFile(bi, []byte("5 abc\n"), 0o644))
	_, err = LoadNgrams("", bi, "", "")
	assert.Error(t, err)
}

func TestLoadResources(t *testing.T) {
	dir := t.TempDir()
	params := filepath.Join(dir, "eval.yaml")
	require.NoError(t, os.WriteFile(params, []byte("metrics:\n  same_finger: 9\n"), 0o644))

	cfg := &Config{}
	cfg.Layout.EvaluationParams = params
	res, err := LoadResources(cfg)
	require.NoError(t, err)
	assert.Equal(t, 9.0, res.Evaluation.Metrics.SameFinger)
	assert.Equal(t, DefaultBaseLayout, res.Layout.BaseLayout)

	model, err := res.Evaluator()
	require.NoError(t, err)
	assert.Equal(t, res.Evaluation, model.Parameters())

	cfg.Layout.EvaluationParams = filepath.Join(dir, "missing.yaml")
	_, err = LoadResources(cfg)
	assert.Error(t, err)
}
