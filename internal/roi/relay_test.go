package roi_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/roi-relay/internal/objmeta"
	"github.com/banshee-data/roi-relay/internal/roi"
	"github.com/banshee-data/roi-relay/internal/testutil"
)

func newRelay(t *testing.T, cfg roi.RelayConfig) *roi.AttributeRelay {
	t.Helper()
	if cfg.ROI == "" {
		cfg.ROI = "custom_roi.roi"
	}
	if cfg.Attribute == "" {
		cfg.Attribute = "my_ocr.text"
	}
	r, err := roi.NewAttributeRelay(cfg)
	require.NoError(t, err)
	return r
}

func TestNewAttributeRelayValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  roi.RelayConfig
	}{
		{name: "bad roi", cfg: roi.RelayConfig{ROI: "roi", Attribute: "my_ocr.text"}},
		{name: "bad attribute", cfg: roi.RelayConfig{ROI: "custom_roi.roi", Attribute: "text"}},
		{name: "bad orphan policy", cfg: roi.RelayConfig{ROI: "custom_roi.roi", Attribute: "my_ocr.text", OnOrphan: "panic"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := roi.NewAttributeRelay(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestAttributeRelayCopiesAndRemoves(t *testing.T) {
	t.Parallel()

	f, plates := testutil.PlateFrame(t, "f-1",
		objmeta.BoundingBox{Width: 10, Height: 5},
		objmeta.BoundingBox{Left: 30, Width: 10, Height: 5},
	)
	first := testutil.MustAddChild(t, f, plates[0], testutil.ROI)
	second := testutil.MustAddChild(t, f, plates[1], testutil.ROI)
	first.SetAttr(objmeta.Attribute{Category: "my_ocr", Label: "text", Value: "AB123", Confidence: 0.91})
	second.SetAttr(objmeta.Attribute{Category: "my_ocr", Label: "text", Value: map[string]any{"text": "XY9"}, Confidence: 0.42})
	second.SetAttr(objmeta.Attribute{Category: "my_ocr", Label: "chars", Value: 3, Confidence: 1})

	var mu sync.Mutex
	var seen []objmeta.Attribute
	r := newRelay(t, roi.RelayConfig{OnRelay: func(frame *objmeta.Frame, parent *objmeta.ObjectNode, attr objmeta.Attribute) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, "f-1", frame.FrameID)
		assert.True(t, parent.Is(testutil.Plate))
		seen = append(seen, attr)
	}})
	require.NoError(t, r.ProcessFrame(f))

	assert.Empty(t, testutil.NodesNamed(f, testutil.ROI))
	assert.Equal(t, 2, f.Graph.Len())

	got, ok := plates[0].Attr(testutil.OCR)
	require.True(t, ok)
	assert.Equal(t, objmeta.Attribute{Category: "my_ocr", Label: "text", Value: "AB123", Confidence: 0.91}, got)

	got, ok = plates[1].Attr(testutil.OCR)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"text": "XY9"}, got.Value)
	assert.Equal(t, 0.42, got.Confidence)
	assert.Equal(t, 1, plates[1].NumAttrs(), "only the configured attribute is relayed")

	assert.Len(t, seen, 2)
	assert.Equal(t, roi.Stats{Frames: 1, Matched: 2, Relayed: 2}, r.Stats())
}

func TestAttributeRelayDropsRegionsWithoutAttribute(t *testing.T) {
	t.Parallel()

	f, plates := testutil.PlateFrame(t, "f-1", objmeta.BoundingBox{Width: 10, Height: 5})
	plates[0].SetAttr(objmeta.Attribute{Category: "detector", Label: "score", Value: 0.8, Confidence: 0.8})
	region := testutil.MustAddChild(t, f, plates[0], testutil.ROI)
	region.SetAttr(objmeta.Attribute{Category: "other", Label: "thing", Value: 1, Confidence: 1})
	before := plates[0].Attributes()

	r := newRelay(t, roi.RelayConfig{})
	require.NoError(t, r.ProcessFrame(f))

	assert.Empty(t, testutil.NodesNamed(f, testutil.ROI))
	assert.Equal(t, before, plates[0].Attributes(), "parent attributes unchanged")
	assert.Equal(t, roi.Stats{Frames: 1, Matched: 1, Dropped: 1}, r.Stats())
}

func TestAttributeRelayNoRegionsLeavesGraphUnchanged(t *testing.T) {
	t.Parallel()

	f, plates := testutil.PlateFrame(t, "f-1", objmeta.BoundingBox{Width: 10, Height: 5})
	plates[0].SetAttr(objmeta.Attribute{Category: "my_ocr", Label: "text", Value: "kept", Confidence: 0.5})
	before := f.Record()

	r := newRelay(t, roi.RelayConfig{})
	require.NoError(t, r.ProcessFrame(f))
	require.NoError(t, r.ProcessFrame(f))
	assert.Equal(t, before, f.Record())
}

func TestAttributeRelayOrphans(t *testing.T) {
	t.Parallel()

	build := func(t *testing.T) (*objmeta.Frame, *objmeta.ObjectNode) {
		f := testutil.NewFrame("f-orphan")
		orphan := testutil.MustAdd(t, f, testutil.ROI, objmeta.BoundingBox{Width: 4, Height: 2})
		orphan.SetAttr(objmeta.Attribute{Category: "my_ocr", Label: "text", Value: "lost", Confidence: 0.3})
		plate := testutil.MustAdd(t, f, testutil.Plate, objmeta.BoundingBox{Width: 10, Height: 5})
		child := testutil.MustAddChild(t, f, plate, testutil.ROI)
		child.SetAttr(objmeta.Attribute{Category: "my_ocr", Label: "text", Value: "found", Confidence: 0.9})
		return f, plate
	}

	t.Run("drop", func(t *testing.T) {
		t.Parallel()
		f, plate := build(t)
		var calls int
		r := newRelay(t, roi.RelayConfig{
			OnRelay: func(*objmeta.Frame, *objmeta.ObjectNode, objmeta.Attribute) { calls++ },
		})
		require.NoError(t, r.ProcessFrame(f))
		assert.Equal(t, 1, calls)
		assert.Empty(t, testutil.NodesNamed(f, testutil.ROI))
		got, ok := plate.Attr(testutil.OCR)
		require.True(t, ok)
		assert.Equal(t, "found", got.Value)
		assert.Equal(t, uint64(1), r.Stats().Orphaned)
	})

	t.Run("error", func(t *testing.T) {
		t.Parallel()
		f, plate := build(t)
		var calls int
		r := newRelay(t, roi.RelayConfig{
			OnOrphan: "error",
			OnRelay:  func(*objmeta.Frame, *objmeta.ObjectNode, objmeta.Attribute) { calls++ },
		})
		err := r.ProcessFrame(f)
		require.Error(t, err)
		assert.True(t, errors.Is(err, roi.ErrOrphanNode))
		assert.Empty(t, testutil.NodesNamed(f, testutil.ROI), "every region is removed even when the frame fails")
		_, ok := plate.Attr(testutil.OCR)
		assert.True(t, ok, "regions with parents are still relayed")
		assert.Zero(t, calls, "a failed frame is not reported to the relay hook")
	})
}

func TestAttributeRelayAfterParentRemoved(t *testing.T) {
	t.Parallel()

	f, plates := testutil.PlateFrame(t, "f-1", objmeta.BoundingBox{Width: 10, Height: 5})
	region := testutil.MustAddChild(t, f, plates[0], testutil.ROI)
	region.SetAttr(objmeta.Attribute{Category: "my_ocr", Label: "text", Value: "AB123", Confidence: 0.9})
	require.NoError(t, f.Graph.Remove(plates[0].ID()))

	r := newRelay(t, roi.RelayConfig{})
	require.NoError(t, r.ProcessFrame(f))
	assert.Zero(t, f.Graph.Len())
	assert.Equal(t, uint64(1), r.Stats().Orphaned)
}

func TestParseOrphanPolicy(t *testing.T) {
	t.Parallel()

	p, err := roi.ParseOrphanPolicy("")
	require.NoError(t, err)
	assert.Equal(t, roi.OrphanDrop, p)
	p, err = roi.ParseOrphanPolicy("error")
	require.NoError(t, err)
	assert.Equal(t, roi.OrphanError, p)
	_, err = roi.ParseOrphanPolicy("ignore")
	assert.Error(t, err)
}
