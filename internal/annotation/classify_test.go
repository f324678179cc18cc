package annotation_test

import (
	"encoding/json"
	"merot-portal/internal/annotation"
	"merot-portal/pkg/api"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifierSingleLabel(t *testing.T) {
	c, err := annotation.NewClassifier([]string{"spam", "ham"}, false, nil)
	require.NoError(t, err)

	_, err = c.Draft()
	assert.ErrorIs(t, err, annotation.ErrNoLabel)

	require.NoError(t, c.Toggle("spam"))
	require.NoError(t, c.Toggle("ham"))
	assert.Equal(t, []string{"ham"}, c.Selected())

	assert.ErrorIs(t, c.Toggle("eggs"), annotation.ErrUnknownLabel)
	assert.ErrorIs(t, c.SetConfidence(1.5), annotation.ErrOutOfRange)
	require.NoError(t, c.SetConfidence(0.9))

	draft, err := c.Draft()
	require.NoError(t, err)
	assert.Equal(t, api.TaskTypeTextClassification, draft.AnnotationType)
	assert.JSONEq(t, `{"label":"ham"}`, string(draft.AnnotationData))
	require.NotNil(t, draft.ConfidenceScore)
	assert.Equal(t, 0.9, *draft.ConfidenceScore)
}

func TestClassifierMultiLabel(t *testing.T) {
	c, err := annotation.NewClassifier([]string{"sports", "politics", "tech"}, true, nil)
	require.NoError(t, err)

	require.NoError(t, c.Toggle("sports"))
	require.NoError(t, c.Toggle("tech"))
	require.NoError(t, c.Toggle("sports"))
	require.NoError(t, c.Toggle("politics"))
	assert.Equal(t, []string{"tech", "politics"}, c.Selected())

	draft, err := c.Draft()
	require.NoError(t, err)
	assert.JSONEq(t, `{"labels":["tech","politics"]}`, string(draft.AnnotationData))

	seeded, err := annotation.NewClassifier([]string{"sports", "politics", "tech"}, false, &draft)
	require.NoError(t, err)
	assert.Equal(t, []string{"tech"}, seeded.Selected())
}

func TestSentimentPicker(t *testing.T) {
	s, err := annotation.NewSentimentPicker(nil, nil)
	require.NoError(t, err)

	_, err = s.Draft()
	assert.ErrorIs(t, err, annotation.ErrNoLabel)

	assert.ErrorIs(t, s.Choose("angry"), annotation.ErrUnknownLabel)
	require.NoError(t, s.Choose("negative"))
	assert.ErrorIs(t, s.SetIntensity(0), annotation.ErrOutOfRange)
	assert.ErrorIs(t, s.SetIntensity(6), annotation.ErrOutOfRange)
	require.NoError(t, s.SetIntensity(5))

	draft, err := s.Draft()
	require.NoError(t, err)

	var data map[string]any
	require.NoError(t, json.Unmarshal(draft.AnnotationData, &data))
	assert.Equal(t, "negative", data["sentiment"])
	assert.Equal(t, 5.0, data["intensity"])

	seeded, err := annotation.NewSentimentPicker(nil, &api.AnnotationDraft{
		AnnotationData: json.RawMessage(`{"sentiment":"neutral","intensity":42}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "neutral", seeded.Sentiment())

	draft, err = seeded.Draft()
	require.NoError(t, err)
	assert.JSONEq(t, `{"sentiment":"neutral","intensity":3}`, string(draft.AnnotationData))
}
