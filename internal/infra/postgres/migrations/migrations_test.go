package migrations

import "testing"

func TestMigrationsRegistered(t *testing.T) {
	sorted := Migrations.Sorted()
	if len(sorted) != 1 {
		t.Fatalf("expected 1 migration, got %d", len(sorted))
	}
	if sorted[0].Name != "20240120090000" || sorted[0].Comment != "create_quizzes" {
		t.Fatalf("unexpected migration %s (%s)", sorted[0].Name, sorted[0].Comment)
	}
	if sorted[0].Up == nil || sorted[0].Down == nil {
		t.Fatalf("expected up and down funcs")
	}
	if createQuizzesSQL == "" {
		t.Fatalf("expected embedded schema")
	}
}
