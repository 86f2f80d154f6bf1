package enums

import "fmt"

// SyncStatus tracks whether a local order has been mirrored to Dr. Green.
type SyncStatus string

const (
	SyncStatusPending      SyncStatus = "pending"
	SyncStatusSynced       SyncStatus = "synced"
	SyncStatusFailed       SyncStatus = "failed"
	SyncStatusManualReview SyncStatus = "manual_review"
)

var validSyncStatuses = []SyncStatus{
	SyncStatusPending,
	SyncStatusSynced,
	SyncStatusFailed,
	SyncStatusManualReview,
}

// syncTransitions lists the allowed moves out of each state. synced is only
// reachable from pending, so a flagged order must be reset before it can sync.
var syncTransitions = map[SyncStatus][]SyncStatus{
	SyncStatusPending:      {SyncStatusSynced, SyncStatusFailed, SyncStatusManualReview},
	SyncStatusFailed:       {SyncStatusPending, SyncStatusManualReview},
	SyncStatusManualReview: {SyncStatusPending},
}

// String implements fmt.Stringer.
func (s SyncStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SyncStatus.
func (s SyncStatus) IsValid() bool {
	for _, candidate := range validSyncStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is permitted.
// Staying in the same state is always allowed.
func (s SyncStatus) CanTransitionTo(next SyncStatus) bool {
	if !next.IsValid() {
		return false
	}
	if s == next {
		return true
	}
	for _, allowed := range syncTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseSyncStatus converts raw input into a SyncStatus.
func ParseSyncStatus(value string) (SyncStatus, error) {
	for _, candidate := range validSyncStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sync status %q", value)
}
