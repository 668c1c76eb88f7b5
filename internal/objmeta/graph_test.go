package objmeta

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/roi-relay/internal/qname"
)

var (
	plateName = qname.Name{Category: "vehicle", Label: "license_plate"}
	roiName   = qname.Name{Category: "custom_roi", Label: "roi"}
)

func TestGraphAddAssignsIDsInOrder(t *testing.T) {
	t.Parallel()
	g := NewGraph()

	a := NewObjectNode(plateName, BoundingBox{Width: 10, Height: 5})
	b := NewObjectNode(roiName, BoundingBox{Width: 1, Height: 1})
	idA, err := g.Add(a)
	require.NoError(t, err)
	idB, err := g.Add(b)
	require.NoError(t, err)

	assert.NotZero(t, idA)
	assert.Greater(t, idB, idA)
	assert.Equal(t, idA, a.ID())
	assert.Equal(t, 2, g.Len())
	assert.Equal(t, []*ObjectNode{a, b}, g.Objects())

	_, err = g.Add(a)
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	other := NewGraph()
	_, err = other.Add(a)
	assert.ErrorIs(t, err, ErrAlreadyRegistered, "a node belongs to one graph at a time")

	_, err = g.Add(nil)
	assert.Error(t, err)
}

func TestGraphSetParentRequiresRegistration(t *testing.T) {
	t.Parallel()
	g := NewGraph()
	parent := NewObjectNode(plateName, BoundingBox{})
	pid, err := g.Add(parent)
	require.NoError(t, err)

	child := NewObjectNode(roiName, BoundingBox{})
	err = g.SetParent(child.ID(), pid)
	assert.ErrorIs(t, err, ErrNodeNotFound, "unregistered child must be rejected")

	cid, err := g.Add(child)
	require.NoError(t, err)
	require.NoError(t, g.SetParent(cid, pid))

	got, ok := g.Parent(cid)
	require.True(t, ok)
	assert.Same(t, parent, got)
	assert.Equal(t, []*ObjectNode{child}, g.Children(pid))

	assert.ErrorIs(t, g.SetParent(cid, cid), ErrSelfParent)
	assert.ErrorIs(t, g.SetParent(cid, 999), ErrNodeNotFound)
}

func TestGraphRemove(t *testing.T) {
	t.Parallel()
	g := NewGraph()
	parent := NewObjectNode(plateName, BoundingBox{})
	child := NewObjectNode(roiName, BoundingBox{})
	pid, _ := g.Add(parent)
	cid, _ := g.Add(child)
	require.NoError(t, g.SetParent(cid, pid))

	t.Run("removing parent leaves no dangling link", func(t *testing.T) {
		require.NoError(t, g.Remove(pid))
		_, ok := g.Parent(cid)
		assert.False(t, ok)
		assert.Equal(t, pid, child.ParentID(), "key is kept but no longer resolves")
		_, ok = g.Get(pid)
		assert.False(t, ok)
	})

	t.Run("double remove is an explicit error", func(t *testing.T) {
		err := g.Remove(pid)
		assert.True(t, errors.Is(err, ErrNodeNotFound))
	})

	t.Run("removed node can be registered again", func(t *testing.T) {
		id, err := g.Add(parent)
		require.NoError(t, err)
		assert.NotEqual(t, pid, id, "ids are never reused")
	})
}

func TestGraphSelectIsSnapshot(t *testing.T) {
	t.Parallel()
	g := NewGraph()
	for i := 0; i < 3; i++ {
		_, err := g.Add(NewObjectNode(plateName, BoundingBox{Left: float64(i)}))
		require.NoError(t, err)
	}
	plates := g.Select(func(n *ObjectNode) bool { return n.Is(plateName) })
	require.Len(t, plates, 3)

	_, err := g.Add(NewObjectNode(plateName, BoundingBox{}))
	require.NoError(t, err)
	assert.Len(t, plates, 3)
	for i, n := range plates {
		assert.Equal(t, float64(i), n.BBox.Left)
	}
	assert.Empty(t, g.Select(func(n *ObjectNode) bool { return n.Is(roiName) }))
}

func TestObjectNodeAttributes(t *testing.T) {
	t.Parallel()
	n := NewObjectNode(plateName, BoundingBox{})
	key := qname.Name{Category: "my_ocr", Label: "text"}

	_, ok := n.Attr(key)
	assert.False(t, ok)

	n.SetAttr(Attribute{Category: "my_ocr", Label: "text", Value: "AB123", Confidence: 0.4})
	n.SetAttr(Attribute{Category: "color", Label: "primary", Value: "red", Confidence: 0.9})
	n.SetAttr(Attribute{Category: "my_ocr", Label: "text", Value: "AB128", Confidence: 0.8})

	got, ok := n.Attr(key)
	require.True(t, ok)
	assert.Equal(t, "AB128", got.Value, "last write wins")
	assert.Equal(t, 0.8, got.Confidence)
	assert.Equal(t, 2, n.NumAttrs())

	attrs := n.Attributes()
	require.Len(t, attrs, 2)
	assert.Equal(t, key, attrs[0].Key(), "rewrite keeps first position")
}
