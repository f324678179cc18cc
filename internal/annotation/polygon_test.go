package annotation_test

import (
	"merot-portal/internal/annotation"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolygonTool(t *testing.T) {
	size := annotation.Size{Width: 300, Height: 300}
	tool, err := annotation.NewPolygonTool([]string{"road", "building"}, annotation.NewViewport(size, size), nil)
	require.NoError(t, err)
	require.NoError(t, tool.SelectLabel("road"))

	t.Run("FinishWithoutPoints", func(t *testing.T) {
		assert.ErrorIs(t, tool.Finish(), annotation.ErrNotDrawing)
	})

	t.Run("RejectsTwoPoints", func(t *testing.T) {
		tool.Click(annotation.Point{X: 10, Y: 10})
		tool.Click(annotation.Point{X: 50, Y: 10})
		assert.True(t, tool.Drawing())

		err := tool.Finish()
		assert.ErrorIs(t, err, annotation.ErrTooFewPoints)
		assert.Empty(t, tool.Polygons())
		assert.Len(t, tool.Current(), 2)
	})

	t.Run("AcceptsThreePoints", func(t *testing.T) {
		tool.Click(annotation.Point{X: 50, Y: 50})
		require.NoError(t, tool.Finish())

		polygons := tool.Polygons()
		require.Len(t, polygons, 1)
		assert.Equal(t, "road", polygons[0].Label)
		assert.True(t, polygons[0].Closed)
		assert.Len(t, polygons[0].Points, 3)
		assert.False(t, tool.Drawing())
	})

	t.Run("CancelDiscardsInProgress", func(t *testing.T) {
		tool.Click(annotation.Point{X: 100, Y: 100})
		tool.Click(annotation.Point{X: 150, Y: 100})
		tool.Cancel()
		assert.False(t, tool.Drawing())
		assert.Len(t, tool.Polygons(), 1)
	})

	t.Run("IndependentLabels", func(t *testing.T) {
		require.NoError(t, tool.SelectLabel("building"))
		for _, p := range []annotation.Point{{X: 200, Y: 200}, {X: 250, Y: 200}, {X: 250, Y: 250}, {X: 200, Y: 250}} {
			tool.Click(p)
		}
		require.NoError(t, tool.Finish())

		polygons := tool.Polygons()
		require.Len(t, polygons, 2)
		assert.Equal(t, "road", polygons[0].Label)
		assert.Equal(t, "building", polygons[1].Label)

		scene := tool.Scene()
		assert.Equal(t, 2, scene.Count(annotation.ShapePolyline))
	})

	t.Run("Draft", func(t *testing.T) {
		draft, err := tool.Draft()
		require.NoError(t, err)

		seeded, err := annotation.NewPolygonTool([]string{"road", "building"}, annotation.NewViewport(size, size), &draft)
		require.NoError(t, err)
		assert.Equal(t, tool.Polygons(), seeded.Polygons())
	})
}

func TestPolygonToolRequiresLabelOnFinish(t *testing.T) {
	size := annotation.Size{Width: 100, Height: 100}
	tool, err := annotation.NewPolygonTool([]string{"road"}, annotation.NewViewport(size, size), nil)
	require.NoError(t, err)

	tool.Click(annotation.Point{X: 1, Y: 1})
	tool.Click(annotation.Point{X: 20, Y: 1})
	tool.Click(annotation.Point{X: 20, Y: 20})

	assert.ErrorIs(t, tool.Finish(), annotation.ErrNoLabel)
	assert.Len(t, tool.Current(), 3)

	require.NoError(t, tool.SelectLabel("road"))
	require.NoError(t, tool.Finish())
	assert.Len(t, tool.Polygons(), 1)
}

func TestPolygonToolScalesVertices(t *testing.T) {
	tool, err := annotation.NewPolygonTool(nil, annotation.NewViewport(annotation.Size{Width: 100, Height: 100}, annotation.Size{Width: 200, Height: 400}), nil)
	require.NoError(t, err)

	tool.Click(annotation.Point{X: 10, Y: 10})
	assert.Equal(t, []annotation.Point{{X: 20, Y: 40}}, tool.Current())
}
