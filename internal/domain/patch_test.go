package domain

import (
	"testing"
	"time"
)

func TestFullPatchLeavesDashboardFlags(t *testing.T) {
	at := time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC)
	stored := Quiz{Title: "Old", Featured: true, IsTemplate: true}
	authored := Quiz{Title: "New", Status: StatusPublished}

	patch := FullPatch(authored, at)
	if patch.Featured != nil || patch.IsTemplate != nil {
		t.Fatalf("expected flags left out of the patch")
	}
	patch.Apply(&stored)
	if stored.Title != "New" || stored.Status != StatusPublished || !stored.Featured || !stored.IsTemplate {
		t.Fatalf("unexpected quiz %+v", stored)
	}
	if !stored.LastModified.Equal(at) {
		t.Fatalf("expected LastModified %v, got %v", at, stored.LastModified)
	}
}
