package util

import (
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// NewRunID returns a short random identifier for a pipeline run. Run IDs
// tag log lines, backup file names, and the statistics summary so that
// artifacts from the same run can be correlated.
func NewRunID() string {
	id, err := gonanoid.Generate("0123456789abcdefghijklmnopqrstuvwxyz", 10)
	if err != nil {
		// gonanoid only fails when the system entropy source does; a
		// timestamp keeps run artifacts distinguishable in that case.
		return fmt.Sprintf("run%d", time.Now().UnixNano())
	}
	return id
}

// BackupSuffix returns the timestamped suffix appended to pre-write backup
// copies of persisted artifacts.
func BackupSuffix(now time.Time) string {
	return now.UTC().Format("20060102T150405Z")
}
