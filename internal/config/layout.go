package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/copyleftdev/layoutevo/internal/layout"
	"github.com/copyleftdev/layoutevo/internal/optimization"
)

// DefaultBaseLayout is the qwerty main block on the default keyboard.
const DefaultBaseLayout = "qwertyuiopasdfghjkl;zxcvbnm,./"

// LayoutConfig describes the keyboard, the starting layout and which of
// its characters the optimizers may move.
type LayoutConfig struct {
	Keyboard        layout.KeyboardSpec `yaml:"keyboard" json:"keyboard"`
	BaseLayout      string              `yaml:"base_layout" json:"base_layout"`
	FixedCharacters string              `yaml:"fixed_characters" json:"fixed_characters"`
	// Movable lists the permutable characters. Empty means every non-fixed character.
	Movable string `yaml:"movable" json:"movable"`
}

// DefaultLayoutConfig returns qwerty on the default keyboard with punctuation fixed.
func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{
		Keyboard:        layout.DefaultKeyboardSpec(),
		BaseLayout:      DefaultBaseLayout,
		FixedCharacters: ",./;",
	}
}

// ParseLayoutConfig reads a layout configuration from YAML. Omitted
// sections keep their defaults.
func ParseLayoutConfig(data []byte) (LayoutConfig, error) {
	cfg := DefaultLayoutConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return LayoutConfig{}, optimization.WrapError(optimization.ErrConfig, err, "could not read layout config").WithComponent("config")
	}
	return cfg, nil
}

// LoadLayoutConfig reads the layout configuration at path. An empty path
// returns the default configuration.
func LoadLayoutConfig(path string) (LayoutConfig, error) {
	if path == "" {
		return DefaultLayoutConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return LayoutConfig{}, fmt.Errorf("read layout config: %w", err)
	}
	return ParseLayoutConfig(data)
}

// WithBaseLayout returns a copy using a different starting layout and fixed set.
func (c LayoutConfig) WithBaseLayout(base, fixed string) LayoutConfig {
	if base != "" {
		c.BaseLayout = base
	}
	if fixed != "" {
		c.FixedCharacters = fixed
	}
	return c
}

// Build constructs the keyboard materializer and the permutation generator.
// Every configuration error is reported as optimization.ErrConfig.
func (c LayoutConfig) Build() (*layout.Generator, *optimization.LayoutGenerator, error) {
	kb, err := layout.NewKeyboard(c.Keyboard)
	if err != nil {
		return nil, nil, optimization.WrapError(optimization.ErrConfig, err, "invalid keyboard").WithComponent("config")
	}
	layouts := layout.NewGenerator(kb)
	perms, err := optimization.NewLayoutGenerator(c.Movable, c.FixedCharacters, c.BaseLayout, layouts)
	if err != nil {
		return nil, nil, err
	}
	return layouts, perms, nil
}
