package progress_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubedasmusas/backend/internal/progress"
)

var now = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func joined(t *testing.T, userID, challengeID string) []progress.Participation {
	t.Helper()
	list, err := progress.Join(nil, userID, challengeID, now)
	require.NoError(t, err)
	return list
}

func TestJoin(t *testing.T) {
	list := joined(t, "u1", "c1")
	require.Len(t, list, 1)
	assert.Equal(t, 0, list[0].Progress)
	assert.Nil(t, list[0].CompletedAt)
}

func TestJoinTwiceFails(t *testing.T) {
	list := joined(t, "u1", "c1")

	next, err := progress.Join(list, "u1", "c1", now.Add(time.Hour))
	assert.ErrorIs(t, err, progress.ErrAlreadyParticipating)
	assert.Len(t, next, 1, "snapshot unchanged on duplicate join")

	// Same user, different challenge is fine.
	next, err = progress.Join(list, "u1", "c2", now)
	require.NoError(t, err)
	assert.Len(t, next, 2)
}

func TestUpdateProgressClamps(t *testing.T) {
	list := joined(t, "u1", "c1")

	over, err := progress.UpdateProgress(list, "u1", "c1", 150, now)
	require.NoError(t, err)
	exact, err := progress.UpdateProgress(list, "u1", "c1", 100, now)
	require.NoError(t, err)
	assert.Equal(t, exact, over)

	under, err := progress.UpdateProgress(list, "u1", "c1", -5, now)
	require.NoError(t, err)
	assert.Equal(t, 0, under[0].Progress)
	assert.Nil(t, under[0].CompletedAt)
}

func TestUpdateProgressCompletionTimestampWrittenOnce(t *testing.T) {
	list := joined(t, "u1", "c1")

	list, err := progress.UpdateProgress(list, "u1", "c1", 100, now)
	require.NoError(t, err)
	require.NotNil(t, list[0].CompletedAt)
	first := *list[0].CompletedAt

	list, err = progress.UpdateProgress(list, "u1", "c1", 100, now.Add(2*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, list[0].CompletedAt)
	assert.Equal(t, first, *list[0].CompletedAt, "no duplicate timestamp writes")
}

func TestUpdateProgressRollbackClearsCompletion(t *testing.T) {
	list := joined(t, "u1", "c1")

	list, err := progress.UpdateProgress(list, "u1", "c1", 100, now)
	require.NoError(t, err)
	list, err = progress.UpdateProgress(list, "u1", "c1", 80, now.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 80, list[0].Progress)
	assert.Nil(t, list[0].CompletedAt)
}

func TestUpdateProgressUnknownPair(t *testing.T) {
	_, err := progress.UpdateProgress(nil, "u1", "c1", 50, now)
	assert.ErrorIs(t, err, progress.ErrNotParticipating)
}

func TestLookupsReturnZeroValues(t *testing.T) {
	list := joined(t, "u1", "c1")
	list, err := progress.UpdateProgress(list, "u1", "c1", 40, now)
	require.NoError(t, err)

	assert.True(t, progress.IsParticipating(list, "u1", "c1"))
	assert.False(t, progress.IsParticipating(list, "u2", "c1"))
	assert.Equal(t, 40, progress.GetProgress(list, "u1", "c1"))
	assert.Equal(t, 0, progress.GetProgress(list, "u2", "c9"))
}

func TestSummarize(t *testing.T) {
	list := joined(t, "u1", "c1")
	list, _ = progress.Join(list, "u2", "c1", now)
	list, _ = progress.Join(list, "u3", "c1", now)
	list, err := progress.UpdateProgress(list, "u2", "c1", 100, now)
	require.NoError(t, err)

	s := progress.Summarize(list)
	assert.Equal(t, 2, s.Active)
	assert.Equal(t, 1, s.Completed)
}

func TestTotalRewardPointsMissingChallengeCountsZero(t *testing.T) {
	list := joined(t, "u1", "c1")
	list, _ = progress.Join(list, "u1", "c2", now)
	list, _ = progress.UpdateProgress(list, "u1", "c1", 100, now)
	list, _ = progress.UpdateProgress(list, "u1", "c2", 100, now)

	rewards := map[string]int{"c1": 50} // c2 has no reward entry
	assert.Equal(t, 50, progress.TotalRewardPoints(list, rewards))
}
