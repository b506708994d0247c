package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/clubedasmusas/backend/internal/consistency"
)

func TestToggleGuardFilterPinsPriorRevision(t *testing.T) {
	read := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	prior := consistency.DailyLog{
		UserID:    "user-1",
		Date:      consistency.DateOnly(read),
		Trained:   true,
		UpdatedAt: read,
	}

	assert.Equal(t, bson.M{
		"user_id":    "user-1",
		"date":       prior.Date,
		"updated_at": read,
	}, toggleGuardFilter("user-1", prior))
}

func TestToggleUpdateCarriesAllCheckFields(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	next := consistency.DailyLog{
		UserID:     "user-1",
		Date:       consistency.DateOnly(now),
		AteHealthy: true,
		DrankWater: true,
		Note:       "leg day",
		UpdatedAt:  now,
	}

	set, ok := toggleUpdate(next)["$set"].(bson.M)
	require.True(t, ok)
	assert.Equal(t, bson.M{
		"ate_healthy": true,
		"trained":     false,
		"drank_water": true,
		"note":        "leg day",
		"updated_at":  now,
	}, set)
}

func TestToggleWriteInvalidatesStaleSnapshots(t *testing.T) {
	// Two clients read the same log and each toggle a different field.
	// Whichever commits first moves updated_at, so the loser's guard filter
	// no longer matches and it must re-read instead of clobbering the winner.
	read := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	snapshot := consistency.DailyLog{
		UserID:    "user-1",
		Date:      consistency.DateOnly(read),
		UpdatedAt: read,
	}

	first, err := consistency.ToggleCheck(&snapshot, consistency.FieldTrained, read.Add(time.Minute))
	require.NoError(t, err)

	committed := toggleUpdate(first)["$set"].(bson.M)["updated_at"]
	stale := toggleGuardFilter("user-1", snapshot)["updated_at"]
	assert.NotEqual(t, committed, stale)

	// After a re-read of the committed record the retried toggle keeps the
	// winner's field.
	retried, err := consistency.ToggleCheck(&first, consistency.FieldDrankWater, read.Add(2*time.Minute))
	require.NoError(t, err)
	assert.True(t, retried.Trained)
	assert.True(t, retried.DrankWater)
	assert.False(t, retried.AteHealthy)
}
