package pipeline

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/roi-relay/internal/config"
	"github.com/banshee-data/roi-relay/internal/objmeta"
	"github.com/banshee-data/roi-relay/internal/qname"
	"github.com/banshee-data/roi-relay/internal/roi"
	"github.com/banshee-data/roi-relay/internal/testutil"
)

func TestBuildStagesFromConfig(t *testing.T) {
	t.Parallel()

	p, err := Build(config.MustLoadDefaultConfig(), BuildOptions{})
	require.NoError(t, err)

	stages := p.Stages()
	require.Len(t, stages, 3)
	assert.IsType(t, &roi.RegionSynthesizer{}, stages[0])
	assert.IsType(t, &roi.AttributeStub{}, stages[1])
	assert.IsType(t, &roi.AttributeRelay{}, stages[2])
	assert.Equal(t, []string{"create-roi", "fake-ocr", "merge-roi"},
		[]string{stages[0].Name(), stages[1].Name(), stages[2].Name()})
}

func TestBuildRejectsMalformedNames(t *testing.T) {
	t.Parallel()

	cfg := &config.PipelineConfig{Stages: []config.StageConfig{
		{Kind: config.KindRegionSynthesizer, Inputs: []string{"vehicle.license_plate"}, ROI: "custom_roi"},
	}}
	_, err := Build(cfg, BuildOptions{})
	var cfgErr *qname.ConfigError
	require.True(t, errors.As(err, &cfgErr), "got %v", err)
	assert.Equal(t, "roi", cfgErr.Field)
}

func TestBuildWiresRelayHook(t *testing.T) {
	t.Parallel()

	var relayed []objmeta.Attribute
	p, err := Build(config.MustLoadDefaultConfig(), BuildOptions{
		OnRelay: func(_ *objmeta.Frame, _ *objmeta.ObjectNode, attr objmeta.Attribute) {
			relayed = append(relayed, attr)
		},
	})
	require.NoError(t, err)

	f, _ := testutil.PlateFrame(t, "f-1", objmeta.BoundingBox{Width: 10, Height: 5})
	require.NoError(t, p.ProcessFrame(f))
	require.Len(t, relayed, 1)
	assert.Equal(t, testutil.OCR, relayed[0].Key())
}

// Not parallel: the log streams are package state.
func TestBuildLogsOrderingNotices(t *testing.T) {
	var diag bytes.Buffer
	SetLogWriters(nil, &diag, nil)
	t.Cleanup(func() { SetLogWriters(nil, nil, nil) })

	cfg := &config.PipelineConfig{Stages: []config.StageConfig{
		{Kind: config.KindAttributeRelay, ROI: "custom_roi.roi", Attribute: "my_ocr.text"},
	}}
	_, err := Build(cfg, BuildOptions{})
	require.NoError(t, err)
	assert.Contains(t, diag.String(), "ordering: stages[0]")
	assert.Contains(t, diag.String(), "[pipeline] ")
}
