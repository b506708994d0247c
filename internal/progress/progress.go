// Package progress tracks per-user challenge participation as pure reducers
// over an in-memory snapshot; persistence of the returned slices is the
// caller's responsibility.
package progress

import (
	"errors"
	"time"
)

var (
	ErrAlreadyParticipating = errors.New("already participating in this challenge")
	ErrNotParticipating     = errors.New("not participating in this challenge")
)

// Participation is one user's progress in one challenge. CompletedAt is
// non-nil exactly when Progress == 100.
type Participation struct {
	ID          string     `json:"id" bson:"_id,omitempty"`
	UserID      string     `json:"user_id" bson:"user_id"`
	ChallengeID string     `json:"challenge_id" bson:"challenge_id"`
	Progress    int        `json:"progress" bson:"progress"`
	JoinedAt    time.Time  `json:"joined_at" bson:"joined_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

func find(list []Participation, userID, challengeID string) int {
	for i, p := range list {
		if p.UserID == userID && p.ChallengeID == challengeID {
			return i
		}
	}
	return -1
}

// Clamp bounds a progress value to [0, 100]. Out-of-range input is accepted
// and clamped rather than rejected.
func Clamp(value int) int {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}

// Join appends a fresh participation with progress 0. A second join for the
// same (user, challenge) pair is an error and leaves the snapshot unchanged.
func Join(list []Participation, userID, challengeID string, now time.Time) ([]Participation, error) {
	if find(list, userID, challengeID) >= 0 {
		return list, ErrAlreadyParticipating
	}
	next := make([]Participation, len(list), len(list)+1)
	copy(next, list)
	next = append(next, Participation{
		UserID:      userID,
		ChallengeID: challengeID,
		Progress:    0,
		JoinedAt:    now.UTC(),
	})
	return next, nil
}

// UpdateProgress sets the clamped progress value. CompletedAt is written only
// on the transition to 100 (repeating 100 keeps the original timestamp) and
// cleared again for any value below 100, so corrections roll the completion
// back.
func UpdateProgress(list []Participation, userID, challengeID string, value int, now time.Time) ([]Participation, error) {
	i := find(list, userID, challengeID)
	if i < 0 {
		return list, ErrNotParticipating
	}

	next := make([]Participation, len(list))
	copy(next, list)

	p := next[i]
	p.Progress = Clamp(value)
	switch {
	case p.Progress == 100 && p.CompletedAt == nil:
		t := now.UTC()
		p.CompletedAt = &t
	case p.Progress < 100:
		p.CompletedAt = nil
	}
	next[i] = p
	return next, nil
}

// IsParticipating reports membership; absence is false, never an error.
func IsParticipating(list []Participation, userID, challengeID string) bool {
	return find(list, userID, challengeID) >= 0
}

// GetProgress returns the progress for the pair, or 0 when absent.
func GetProgress(list []Participation, userID, challengeID string) int {
	i := find(list, userID, challengeID)
	if i < 0 {
		return 0
	}
	return list[i].Progress
}

// Stats are the aggregate participation numbers shown on the admin dashboard.
type Stats struct {
	Active    int `json:"active"`
	Completed int `json:"completed"`
}

// Summarize reduces a participation snapshot to aggregate counts.
func Summarize(list []Participation) Stats {
	var s Stats
	for _, p := range list {
		if p.CompletedAt != nil {
			s.Completed++
		} else {
			s.Active++
		}
	}
	return s
}

// TotalRewardPoints sums the reward points earned by completed participations.
// A challenge missing from the rewards map contributes zero instead of
// failing the whole reduction.
func TotalRewardPoints(list []Participation, rewards map[string]int) int {
	total := 0
	for _, p := range list {
		if p.CompletedAt == nil {
			continue
		}
		total += rewards[p.ChallengeID]
	}
	return total
}
