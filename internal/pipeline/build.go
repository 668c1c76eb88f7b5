package pipeline

import (
	"fmt"

	"github.com/banshee-data/roi-relay/internal/config"
	"github.com/banshee-data/roi-relay/internal/roi"
)

// BuildOptions carries in-process dependencies that cannot be expressed
// in a configuration file.
type BuildOptions struct {
	// OnRelay is attached to every attribute_relay stage.
	OnRelay roi.RelayFunc
	// Options are passed to New.
	Options []Option
}

type stageFactory func(sc config.StageConfig, opts BuildOptions) (roi.FrameStage, error)

var factories = map[string]stageFactory{
	config.KindRegionSynthesizer: func(sc config.StageConfig, _ BuildOptions) (roi.FrameStage, error) {
		return roi.NewRegionSynthesizer(roi.SynthesizerConfig{Name: sc.Name, Inputs: sc.Inputs, ROI: sc.ROI})
	},
	config.KindAttributeStub: func(sc config.StageConfig, _ BuildOptions) (roi.FrameStage, error) {
		return roi.NewAttributeStub(roi.StubConfig{
			Name:       sc.Name,
			ROI:        sc.ROI,
			Attribute:  sc.Attribute,
			Value:      sc.Value,
			Confidence: sc.Confidence,
		})
	},
	config.KindAttributeRelay: func(sc config.StageConfig, opts BuildOptions) (roi.FrameStage, error) {
		return roi.NewAttributeRelay(roi.RelayConfig{
			Name:      sc.Name,
			ROI:       sc.ROI,
			Attribute: sc.Attribute,
			OnOrphan:  sc.OnOrphan,
			OnRelay:   opts.OnRelay,
		})
	},
}

// Build constructs a pipeline from a validated configuration. Every
// stage is constructed before any frame can be processed, so a
// misconfigured stage fails here.
func Build(cfg *config.PipelineConfig, opts BuildOptions) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	for _, notice := range cfg.OrderingNotices() {
		diagf("ordering: %s", notice)
	}

	stages := make([]roi.FrameStage, 0, len(cfg.Stages))
	for i, sc := range cfg.Stages {
		factory, ok := factories[sc.Kind]
		if !ok {
			return nil, fmt.Errorf("stages[%d]: unknown stage kind %q", i, sc.Kind)
		}
		stage, err := factory(sc, opts)
		if err != nil {
			return nil, fmt.Errorf("stages[%d] (%s): %w", i, sc.Kind, err)
		}
		diagf("stage %d: %s (%s)", i, stage.Name(), sc.Kind)
		stages = append(stages, stage)
	}
	return New(stages, opts.Options...)
}
