package store

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djeday123/goml-sentiment/nn"
	"github.com/djeday123/goml-sentiment/train"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("", true, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRun(t *testing.T) *Run {
	t.Helper()
	m, err := nn.NewClassifier(nn.ClassifierConfig{VocabSize: 5, EmbeddingDim: 3, Dropout: 0.2, Seed: 1})
	require.NoError(t, err)
	return &Run{
		ClassNames:     []string{"neg", "pos"},
		Vocabulary:     []string{"good", "movie", "bad"},
		SequenceLength: 4,
		Model:          m.State(),
		History: &train.History{Epochs: []train.EpochMetrics{
			{Epoch: 1, Train: train.Metrics{Loss: 0.69, Accuracy: 0.5, Examples: 3}},
		}},
		Test: &train.Metrics{Loss: 0.6, Accuracy: 0.75, Examples: 4},
	}
}

func TestSaveAndLoadRun(t *testing.T) {
	s := openMemory(t)
	run := sampleRun(t)

	id, err := s.SaveRun(run)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	assert.Equal(t, id, run.ID)
	assert.False(t, run.CreatedAt.IsZero())

	got, err := s.LoadRun(id)
	require.NoError(t, err)
	assert.Equal(t, run.Vocabulary, got.Vocabulary)
	assert.Equal(t, run.SequenceLength, got.SequenceLength)
	assert.Equal(t, run.Model, got.Model)
	assert.Equal(t, run.Test, got.Test)
	assert.Equal(t, 1, got.History.Len())
	assert.True(t, run.CreatedAt.Equal(got.CreatedAt))

	restored, err := nn.FromState(got.Model)
	require.NoError(t, err)
	assert.Equal(t, 5*3+3+1, restored.CountParameters())
}

func TestLatestTracksLastSave(t *testing.T) {
	s := openMemory(t)

	_, err := s.Latest()
	assert.ErrorIs(t, err, ErrNotFound)

	first, err := s.SaveRun(sampleRun(t))
	require.NoError(t, err)
	second, err := s.SaveRun(sampleRun(t))
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	latest, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, second, latest.ID)
}

func TestLoadUnknownRun(t *testing.T) {
	s := openMemory(t)
	_, err := s.LoadRun(uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	s := openMemory(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	older := sampleRun(t)
	older.CreatedAt = base
	newer := sampleRun(t)
	newer.CreatedAt = base.Add(time.Hour)
	newer.Test = nil

	_, err := s.SaveRun(older)
	require.NoError(t, err)
	_, err = s.SaveRun(newer)
	require.NoError(t, err)

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Zero(t, list[0].TestAccuracy)
	assert.Equal(t, older.ID, list[1].ID)
	assert.Equal(t, 0.75, list[1].TestAccuracy)
	assert.Equal(t, 1, list[1].Epochs)
}

func TestOpenOnDisk(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, false, zerolog.Nop())
	require.NoError(t, err)
	id, err := s.SaveRun(sampleRun(t))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(dir, false, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()
	latest, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, id, latest.ID)
}
