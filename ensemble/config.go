package ensemble

import (
	"regexp"

	"github.com/sirupsen/logrus"
)

// DefaultIndexPattern extracts the realization index from paths like
// /scratch/case/realization-7/iter-0.
var DefaultIndexPattern = regexp.MustCompile(`.*realization-(\d+)`)

// DefaultSummaryGlob locates an undiscovered summary file relative to the
// realization root.
const DefaultSummaryGlob = "eclipse/model/*.UNSMRY"

// RealizationConfig groups the knobs of NewScratchRealization.
type RealizationConfig struct {
	IndexPattern *regexp.Regexp     // one capture group, parsed as the index (nil = DefaultIndexPattern)
	SummaryGlob  string             // fallback summary location ("" = DefaultSummaryGlob)
	OpenSummary  SummaryOpener      // summary decoder (nil = NewSummaryReaderFunc)
	Logger       logrus.FieldLogger // nil = logrus standard logger
}

// DefaultRealizationConfig returns a config with every field at its default.
func DefaultRealizationConfig() RealizationConfig {
	return RealizationConfig{
		IndexPattern: DefaultIndexPattern,
		SummaryGlob:  DefaultSummaryGlob,
	}
}

func (c RealizationConfig) withDefaults() RealizationConfig {
	if c.IndexPattern == nil {
		c.IndexPattern = DefaultIndexPattern
	}
	if c.SummaryGlob == "" {
		c.SummaryGlob = DefaultSummaryGlob
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	return c
}

// opener resolves the summary decoder, preferring the per-config one.
func (c RealizationConfig) opener() SummaryOpener {
	if c.OpenSummary != nil {
		return c.OpenSummary
	}
	return NewSummaryReaderFunc
}

// EnsembleConfig groups the knobs of NewScratchEnsemble.
type EnsembleConfig struct {
	Realization RealizationConfig // applied to every realization
	Concurrency int               // realizations processed in parallel per batch step (<= 1 = sequential)
}

// DefaultEnsembleConfig returns a sequential ensemble config.
func DefaultEnsembleConfig() EnsembleConfig {
	return EnsembleConfig{
		Realization: DefaultRealizationConfig(),
		Concurrency: 1,
	}
}
