// Package config implements detection of the dashboard project layout:
// where the tweet cache, the analysis output, the source logo and the
// generated asset directory live relative to the project root.
package config

import (
	"path/filepath"
)

// Default layout, relative to the project root.
const (
	DefaultTweetsFile   = "data/raw_tweets.json"
	DefaultAnalysisFile = "data/analyze_output.json"
	DefaultLogoFile     = "logo.png"
	DefaultPublicDir    = "public"
)

// Project holds the resolved project configuration.
type Project struct {
	// Root is the absolute project root directory.
	Root string

	// TweetsFile is the tweet cache path, relative to Root unless absolute.
	TweetsFile string
	// AnalysisFile is the analysis output path, relative to Root unless absolute.
	AnalysisFile string
	// LogoFile is the source logo path, relative to Root unless absolute.
	LogoFile string
	// PublicDir is the generated asset directory, relative to Root unless absolute.
	PublicDir string

	// Limit caps how many tweets go into one translation batch.
	// Zero means the built-in default.
	Limit int
	// Model is the chat model name. Empty means the built-in default.
	Model string
	// BaseURL points at an OpenAI-compatible endpoint. Empty means the
	// official API.
	BaseURL string
}

// Detect builds the project configuration for the working directory,
// starting from the default layout. Overrides from .dashkit.yaml are
// applied separately via LoadDashkitFile and Apply.
func Detect(rootDir string) *Project {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		absRoot = rootDir
	}

	return &Project{
		Root:         absRoot,
		TweetsFile:   DefaultTweetsFile,
		AnalysisFile: DefaultAnalysisFile,
		LogoFile:     DefaultLogoFile,
		PublicDir:    DefaultPublicDir,
	}
}

// resolve joins a configured path with the project root.
// Absolute paths are kept as-is.
func (p *Project) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.Root, path)
}

// TweetsPath returns the absolute path to the tweet cache file.
func (p *Project) TweetsPath() string {
	return p.resolve(p.TweetsFile)
}

// AnalysisPath returns the absolute path to the analysis output file.
func (p *Project) AnalysisPath() string {
	return p.resolve(p.AnalysisFile)
}

// LogoPath returns the absolute path to the source logo.
func (p *Project) LogoPath() string {
	return p.resolve(p.LogoFile)
}

// PublicPath returns the absolute path to the generated asset directory.
func (p *Project) PublicPath() string {
	return p.resolve(p.PublicDir)
}
