package roi_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/roi-relay/internal/objmeta"
	"github.com/banshee-data/roi-relay/internal/roi"
	"github.com/banshee-data/roi-relay/internal/testutil"
)

func plateStages(t *testing.T) []roi.FrameStage {
	t.Helper()
	synth, err := roi.NewRegionSynthesizer(roi.SynthesizerConfig{
		Inputs: []string{"vehicle.license_plate"},
		ROI:    "custom_roi.roi",
	})
	require.NoError(t, err)
	stub, err := roi.NewAttributeStub(roi.StubConfig{ROI: "custom_roi.roi", Attribute: "my_ocr.text"})
	require.NoError(t, err)
	relay, err := roi.NewAttributeRelay(roi.RelayConfig{ROI: "custom_roi.roi", Attribute: "my_ocr.text"})
	require.NoError(t, err)
	return []roi.FrameStage{synth, stub, relay}
}

// TestLicensePlateScenario walks a single plate through synthesis, the
// placeholder OCR and relay.
func TestLicensePlateScenario(t *testing.T) {
	t.Parallel()

	stages := plateStages(t)
	f, plates := testutil.PlateFrame(t, "f-1", objmeta.BoundingBox{Left: 0, Top: 0, Width: 10, Height: 5})

	require.NoError(t, stages[0].ProcessFrame(f))
	regions := testutil.NodesNamed(f, testutil.ROI)
	require.Len(t, regions, 1)
	parent, ok := f.Graph.Parent(regions[0].ID())
	require.True(t, ok)
	assert.Same(t, plates[0], parent)
	assert.Equal(t, objmeta.BoundingBox{Width: 10, Height: 5}, regions[0].BBox)

	require.NoError(t, stages[1].ProcessFrame(f))
	attr, ok := regions[0].Attr(testutil.OCR)
	require.True(t, ok)
	assert.Equal(t, 1, attr.Value)

	require.NoError(t, stages[2].ProcessFrame(f))
	want := objmeta.FrameRecord{
		FrameID:  "f-1",
		SourceID: "cam-test",
		Objects: []objmeta.ObjectRecord{{
			ID:         uint64(plates[0].ID()),
			Category:   "vehicle",
			Label:      "license_plate",
			BBox:       objmeta.BoundingBox{Width: 10, Height: 5},
			Attributes: []objmeta.Attribute{{Category: "my_ocr", Label: "text", Value: 1, Confidence: 1}},
		}},
	}
	if diff := cmp.Diff(want, f.Record()); diff != "" {
		t.Errorf("final frame mismatch (-want +got):\n%s", diff)
	}
}

func TestStagesAreSharedAcrossConcurrentFrames(t *testing.T) {
	t.Parallel()

	stages := plateStages(t)
	const frames = 32

	var wg sync.WaitGroup
	results := make([]*objmeta.Frame, frames)
	for i := 0; i < frames; i++ {
		f, _ := testutil.PlateFrame(t, fmt.Sprintf("f-%d", i),
			objmeta.BoundingBox{Left: float64(i), Width: 10, Height: 5},
			objmeta.BoundingBox{Left: float64(i) + 20, Width: 10, Height: 5},
		)
		results[i] = f
		wg.Add(1)
		go func(f *objmeta.Frame) {
			defer wg.Done()
			for _, s := range stages {
				if err := s.ProcessFrame(f); err != nil {
					t.Errorf("%s: %v", s.Name(), err)
					return
				}
			}
		}(f)
	}
	wg.Wait()

	for _, f := range results {
		assert.Equal(t, 2, f.Graph.Len())
		for _, n := range f.Graph.Objects() {
			_, ok := n.Attr(testutil.OCR)
			assert.True(t, ok, "frame %s node %d missing relayed attribute", f.FrameID, n.ID())
		}
	}
	relay := stages[2].(*roi.AttributeRelay)
	assert.Equal(t, uint64(frames), relay.Stats().Frames)
	assert.Equal(t, uint64(2*frames), relay.Stats().Relayed)
}
