package model

import "time"

// BlobCleanupJob asks the cleanup worker to remove every stored object under
// the given key prefixes.
type BlobCleanupJob struct {
	Prefixes    []string  `json:"prefixes"`
	SubjectID   string    `json:"subject_id"`
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}
