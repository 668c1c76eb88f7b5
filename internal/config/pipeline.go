package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/roi-relay/internal/qname"
	"github.com/banshee-data/roi-relay/internal/roi"
)

// DefaultConfigPath is the path to the canonical pipeline definition: the
// license-plate OCR pipeline with a placeholder analysis stage.
const DefaultConfigPath = "config/pipeline.defaults.yaml"

// Stage kinds accepted in StageConfig.Kind.
const (
	KindRegionSynthesizer = "region_synthesizer"
	KindAttributeStub     = "attribute_stub"
	KindAttributeRelay    = "attribute_relay"
)

// maxFileSize caps configuration files at 1MB.
const maxFileSize = 1 * 1024 * 1024

// PipelineConfig is the root of a pipeline definition. Stages run in the
// listed order for every frame.
type PipelineConfig struct {
	Stages []StageConfig `json:"stages" yaml:"stages"`
	Record *RecordConfig `json:"record,omitempty" yaml:"record,omitempty"`
}

// StageConfig holds the options of one stage. Which fields apply
// depends on Kind.
type StageConfig struct {
	Kind string `json:"kind" yaml:"kind"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// region_synthesizer
	Inputs []string `json:"inputs,omitempty" yaml:"inputs,omitempty"`

	// all kinds
	ROI string `json:"roi" yaml:"roi"`

	// attribute_stub, attribute_relay
	Attribute string `json:"attribute,omitempty" yaml:"attribute,omitempty"`

	// attribute_stub
	Value      any      `json:"value,omitempty" yaml:"value,omitempty"`
	Confidence *float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`

	// attribute_relay
	OnOrphan string `json:"on_orphan,omitempty" yaml:"on_orphan,omitempty"`
}

// RecordConfig enables persistence of relayed attributes.
type RecordConfig struct {
	DBPath *string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// LoadPipelineConfig loads a PipelineConfig from a .json, .yaml or .yml
// file and validates it.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := ParsePipelineConfig(data, ext)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParsePipelineConfig decodes data according to ext (".json", ".yaml"
// or ".yml") and validates the result.
func ParsePipelineConfig(data []byte, ext string) (*PipelineConfig, error) {
	cfg := &PipelineConfig{}
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents. Panics if the file cannot be loaded,
// intended for test setup.
func MustLoadDefaultConfig() *PipelineConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadPipelineConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks every stage eagerly so a misconfigured pipeline never
// processes a frame.
func (c *PipelineConfig) Validate() error {
	if len(c.Stages) == 0 {
		return errors.New("at least one stage is required")
	}
	for i := range c.Stages {
		if err := c.Stages[i].Validate(); err != nil {
			return fmt.Errorf("stages[%d]: %w", i, err)
		}
	}
	if c.Record != nil && c.Record.DBPath != nil && strings.TrimSpace(*c.Record.DBPath) == "" {
		return errors.New("record.db_path must not be empty when set")
	}
	return nil
}

// Validate checks one stage's options for its kind.
func (s *StageConfig) Validate() error {
	if _, err := qname.Parse("roi", s.ROI); err != nil {
		return err
	}
	switch s.Kind {
	case KindRegionSynthesizer:
		// An empty inputs list is valid and matches nothing.
		if _, err := qname.ParseList("inputs", s.Inputs); err != nil {
			return err
		}
	case KindAttributeStub:
		if _, err := qname.Parse("attribute", s.Attribute); err != nil {
			return err
		}
		if s.Confidence != nil && (*s.Confidence < 0 || *s.Confidence > 1) {
			return fmt.Errorf("confidence must be between 0 and 1, got %f", *s.Confidence)
		}
	case KindAttributeRelay:
		if _, err := qname.Parse("attribute", s.Attribute); err != nil {
			return err
		}
		if _, err := roi.ParseOrphanPolicy(s.OnOrphan); err != nil {
			return err
		}
	case "":
		return errors.New("kind is required")
	default:
		return fmt.Errorf("unknown stage kind %q", s.Kind)
	}
	return nil
}

// GetDBPath returns the recorder database path, or "" when recording is
// disabled.
func (c *PipelineConfig) GetDBPath() string {
	if c.Record == nil || c.Record.DBPath == nil {
		return ""
	}
	return *c.Record.DBPath
}

// OrderingNotices lists stages that consume a region name no earlier
// region_synthesizer produces. The ordering contract is external, so
// these are diagnostics rather than errors. Assumes Validate passed.
func (c *PipelineConfig) OrderingNotices() []string {
	var notices []string
	produced := make(map[string]bool)
	for i, s := range c.Stages {
		switch s.Kind {
		case KindRegionSynthesizer:
			produced[s.ROI] = true
		case KindAttributeStub, KindAttributeRelay:
			if !produced[s.ROI] {
				notices = append(notices, fmt.Sprintf("stages[%d] (%s) consumes %s before any region_synthesizer produces it", i, s.Kind, s.ROI))
			}
		}
	}
	return notices
}
