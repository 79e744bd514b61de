package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// .dashkit.yaml schema
// ---------------------------------------------------------------------------

// DashkitFileName is the default config file name.
const DashkitFileName = ".dashkit.yaml"

// DashkitFile is the top-level .dashkit.yaml structure. When the file
// exists in the project root, its values override the default layout
// from Detect. Paths are relative to the project root unless absolute.
type DashkitFile struct {
	// Tweets overrides the tweet cache path.
	Tweets string `yaml:"tweets,omitempty"`
	// Analysis overrides the analysis output path.
	Analysis string `yaml:"analysis,omitempty"`
	// Logo overrides the source logo path.
	Logo string `yaml:"logo,omitempty"`
	// Public overrides the generated asset directory.
	Public string `yaml:"public,omitempty"`

	// Translate holds options for the translate command.
	Translate TranslateConfig `yaml:"translate,omitempty"`
}

// TranslateConfig holds .dashkit.yaml options for translation batches.
type TranslateConfig struct {
	// Limit caps how many tweets go into one batch (default 20).
	Limit int `yaml:"limit,omitempty"`
	// Model is the chat model name (default gpt-4o-mini).
	Model string `yaml:"model,omitempty"`
	// BaseURL points at an OpenAI-compatible endpoint.
	BaseURL string `yaml:"base_url,omitempty"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// LoadDashkitFile loads and validates .dashkit.yaml from the given directory.
// Returns nil if no .dashkit.yaml exists.
func LoadDashkitFile(rootDir string) (*DashkitFile, error) {
	path := filepath.Join(rootDir, DashkitFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var df DashkitFile
	if err := yaml.Unmarshal(data, &df); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if df.Translate.Limit < 0 {
		return nil, fmt.Errorf("%s: translate.limit must not be negative, got %d", path, df.Translate.Limit)
	}

	return &df, nil
}

// Apply copies the overrides set in the file onto a detected project.
// Empty fields leave the project untouched.
func (df *DashkitFile) Apply(p *Project) {
	if df.Tweets != "" {
		p.TweetsFile = df.Tweets
	}
	if df.Analysis != "" {
		p.AnalysisFile = df.Analysis
	}
	if df.Logo != "" {
		p.LogoFile = df.Logo
	}
	if df.Public != "" {
		p.PublicDir = df.Public
	}
	if df.Translate.Limit > 0 {
		p.Limit = df.Translate.Limit
	}
	if df.Translate.Model != "" {
		p.Model = df.Translate.Model
	}
	if df.Translate.BaseURL != "" {
		p.BaseURL = df.Translate.BaseURL
	}
}
