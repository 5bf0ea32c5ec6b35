package util

import (
	"testing"
	"time"
)

func TestNewRunID(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		id := NewRunID()
		if len(id) != 10 {
			t.Fatalf("NewRunID() = %q, want 10 characters", id)
		}
		for _, r := range id {
			if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
				t.Fatalf("NewRunID() = %q contains invalid character %q", id, r)
			}
		}
		if seen[id] {
			t.Fatalf("NewRunID() repeated %q within 100 draws", id)
		}
		seen[id] = true
	}
}

func TestBackupSuffix(t *testing.T) {
	at := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	if got := BackupSuffix(at); got != "20260314T150926Z" {
		t.Fatalf("BackupSuffix() = %q, want %q", got, "20260314T150926Z")
	}

	// Non-UTC input is normalized.
	loc := time.FixedZone("plus2", 2*3600)
	local := time.Date(2026, 3, 14, 17, 9, 26, 0, loc)
	if got := BackupSuffix(local); got != "20260314T150926Z" {
		t.Fatalf("BackupSuffix(local) = %q, want UTC-normalized %q", got, "20260314T150926Z")
	}
}
