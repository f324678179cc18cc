package annotation_test

import (
	"encoding/json"
	"merot-portal/internal/annotation"
	"merot-portal/pkg/api"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBoxTool(t *testing.T, display, natural annotation.Size) *annotation.BoxTool {
	tool, err := annotation.NewBoxTool([]string{"person", "car"}, annotation.NewViewport(display, natural), nil)
	require.NoError(t, err)
	return tool
}

func drag(t *testing.T, tool *annotation.BoxTool, from, to annotation.Point) (bool, error) {
	require.NoError(t, tool.MouseDown(from))
	tool.MouseMove(annotation.Point{X: (from.X + to.X) / 2, Y: (from.Y + to.Y) / 2})
	tool.MouseMove(to)
	return tool.MouseUp(to)
}

func TestBoxToolCommitsDrag(t *testing.T) {
	size := annotation.Size{Width: 200, Height: 150}
	tool := newBoxTool(t, size, size)

	require.NoError(t, tool.SelectLabel("person"))
	added, err := drag(t, tool, annotation.Point{X: 10, Y: 10}, annotation.Point{X: 60, Y: 80})
	require.NoError(t, err)
	assert.True(t, added)

	assert.Equal(t, []annotation.BoundingBox{
		{X: 10, Y: 10, Width: 50, Height: 70, Label: "person", Confidence: 1},
	}, tool.Boxes())
	assert.False(t, tool.Drawing())
}

func TestBoxToolRequiresLabel(t *testing.T) {
	size := annotation.Size{Width: 200, Height: 150}
	tool := newBoxTool(t, size, size)

	err := tool.MouseDown(annotation.Point{X: 10, Y: 10})
	assert.ErrorIs(t, err, annotation.ErrNoLabel)
	assert.True(t, annotation.IsValidation(err))
	assert.False(t, tool.Drawing())

	assert.ErrorIs(t, tool.SelectLabel("bicycle"), annotation.ErrUnknownLabel)
}

func TestBoxToolDiscardsSmallDrags(t *testing.T) {
	size := annotation.Size{Width: 200, Height: 150}

	tests := []struct {
		name string
		to   annotation.Point
	}{
		{"Click", annotation.Point{X: 20, Y: 20}},
		{"ExactlyTenWide", annotation.Point{X: 30, Y: 80}},
		{"ExactlyTenHigh", annotation.Point{X: 80, Y: 30}},
		{"NarrowNegative", annotation.Point{X: 15, Y: -40}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tool := newBoxTool(t, size, size)
			require.NoError(t, tool.SelectLabel("car"))

			added, err := drag(t, tool, annotation.Point{X: 20, Y: 20}, tt.to)
			assert.False(t, added)
			assert.ErrorIs(t, err, annotation.ErrShapeTooSmall)
			assert.Empty(t, tool.Boxes())
			assert.Equal(t, 0, tool.Revision())
		})
	}
}

func TestBoxToolNormalizesNegativeExtent(t *testing.T) {
	size := annotation.Size{Width: 200, Height: 150}
	tool := newBoxTool(t, size, size)
	require.NoError(t, tool.SelectLabel("car"))

	require.NoError(t, tool.MouseDown(annotation.Point{X: 100, Y: 100}))
	tool.MouseMove(annotation.Point{X: 40, Y: 30})

	anchor, w, h, ok := tool.Candidate()
	require.True(t, ok)
	assert.Equal(t, annotation.Point{X: 100, Y: 100}, anchor)
	assert.Equal(t, -60.0, w)
	assert.Equal(t, -70.0, h)

	added, err := tool.MouseLeave(annotation.Point{X: 40, Y: 30})
	require.NoError(t, err)
	require.True(t, added)

	assert.Equal(t, annotation.BoundingBox{X: 40, Y: 30, Width: 60, Height: 70, Label: "car", Confidence: 1}, tool.Boxes()[0])
}

func TestBoxToolScalesToNaturalResolution(t *testing.T) {
	tool := newBoxTool(t, annotation.Size{Width: 400, Height: 300}, annotation.Size{Width: 800, Height: 900})
	require.NoError(t, tool.SelectLabel("person"))
	require.NoError(t, tool.SetConfidence(0.8))

	// 8px on screen is below the threshold even though it would be 16px after scaling.
	added, err := drag(t, tool, annotation.Point{X: 0, Y: 0}, annotation.Point{X: 8, Y: 100})
	assert.False(t, added)
	assert.ErrorIs(t, err, annotation.ErrShapeTooSmall)

	added, err = drag(t, tool, annotation.Point{X: 10, Y: 20}, annotation.Point{X: 110, Y: 120})
	require.NoError(t, err)
	require.True(t, added)
	assert.Equal(t, annotation.BoundingBox{X: 20, Y: 60, Width: 200, Height: 300, Label: "person", Confidence: 0.8}, tool.Boxes()[0])

	scene := tool.Scene()
	assert.Equal(t, 1, scene.Count(annotation.ShapeRect))
	rect := scene.Primitives[0]
	assert.Equal(t, []annotation.Point{{X: 10, Y: 20}, {X: 110, Y: 120}}, rect.Points)
}

func TestBoxToolSceneIncludesCandidate(t *testing.T) {
	size := annotation.Size{Width: 200, Height: 150}
	tool := newBoxTool(t, size, size)
	require.NoError(t, tool.SelectLabel("person"))
	_, err := drag(t, tool, annotation.Point{X: 10, Y: 10}, annotation.Point{X: 60, Y: 80})
	require.NoError(t, err)

	require.NoError(t, tool.MouseDown(annotation.Point{X: 100, Y: 100}))
	tool.MouseMove(annotation.Point{X: 150, Y: 140})

	scene := tool.Scene()
	assert.Equal(t, 2, scene.Count(annotation.ShapeRect))
	assert.True(t, scene.Primitives[len(scene.Primitives)-1].Dashed)
}

func TestBoxToolDraftAndSeed(t *testing.T) {
	size := annotation.Size{Width: 200, Height: 150}
	tool := newBoxTool(t, size, size)

	_, err := tool.Draft()
	assert.ErrorIs(t, err, annotation.ErrEmptyAnnotation)

	require.NoError(t, tool.SelectLabel("person"))
	_, err = drag(t, tool, annotation.Point{X: 10, Y: 10}, annotation.Point{X: 60, Y: 80})
	require.NoError(t, err)
	tool.SetNotes("partially occluded")

	draft, err := tool.Draft()
	require.NoError(t, err)
	assert.Equal(t, api.TaskTypeBoundingBox, draft.AnnotationType)
	assert.Equal(t, "partially occluded", draft.Notes)

	var decoded struct {
		Boxes []annotation.BoundingBox `json:"boxes"`
	}
	require.NoError(t, json.Unmarshal(draft.AnnotationData, &decoded))
	assert.Len(t, decoded.Boxes, 1)

	seeded, err := annotation.NewBoxTool([]string{"person", "car"}, annotation.NewViewport(size, size), &draft)
	require.NoError(t, err)
	assert.Equal(t, tool.Boxes(), seeded.Boxes())

	require.NoError(t, seeded.Remove(0))
	assert.Empty(t, seeded.Boxes())
	assert.ErrorIs(t, seeded.Remove(0), annotation.ErrOutOfRange)

	_, err = annotation.NewBoxTool(nil, annotation.NewViewport(size, size), &api.AnnotationDraft{
		AnnotationType: api.TaskTypePolygon,
		AnnotationData: json.RawMessage(`{}`),
	})
	assert.ErrorIs(t, err, annotation.ErrWrongAnnotationType)
}
