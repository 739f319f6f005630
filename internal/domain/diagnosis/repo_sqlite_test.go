package diagnosis

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/patientdesk/patientdesk/internal/domain/errs"
	"github.com/patientdesk/patientdesk/internal/platform/db"
)

func newTestRepo(t *testing.T) Repository {
	t.Helper()
	sqldb, err := db.Open(":memory:", 1000)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { sqldb.Close() })
	if err := db.EnsureSchema(context.Background(), sqldb, zerolog.Nop()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return NewRepoSQLite(sqldb)
}

func TestGetOrCreate_Idempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id1, err := repo.GetOrCreate(ctx, "Asthma")
	if err != nil {
		t.Fatalf("first GetOrCreate returned error: %v", err)
	}
	id2, err := repo.GetOrCreate(ctx, "Asthma")
	if err != nil {
		t.Fatalf("second GetOrCreate returned error: %v", err)
	}
	if id1 != id2 {
		t.Errorf("expected same id for repeated name, got %d and %d", id1, id2)
	}

	items, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected exactly one diagnosis, got %d", len(items))
	}
	if items[0].Name != "Asthma" {
		t.Errorf("expected stored name 'Asthma', got %q", items[0].Name)
	}
}

func TestGetOrCreate_CaseInsensitiveMatchKeepsOriginalCase(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id1, err := repo.GetOrCreate(ctx, "Hypertension")
	if err != nil {
		t.Fatalf("GetOrCreate returned error: %v", err)
	}
	id2, err := repo.GetOrCreate(ctx, "HYPERTENSION")
	if err != nil {
		t.Fatalf("GetOrCreate returned error: %v", err)
	}
	if id1 != id2 {
		t.Errorf("expected case-insensitive match, got ids %d and %d", id1, id2)
	}

	d, err := repo.GetByID(ctx, id1)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if d.Name != "Hypertension" {
		t.Errorf("expected original case to be stored, got %q", d.Name)
	}
}

func TestGetOrCreate_TrimsWhitespace(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id1, err := repo.GetOrCreate(ctx, "  Diabetes ")
	if err != nil {
		t.Fatalf("GetOrCreate returned error: %v", err)
	}
	id2, err := repo.GetOrCreate(ctx, "Diabetes")
	if err != nil {
		t.Fatalf("GetOrCreate returned error: %v", err)
	}
	if id1 != id2 {
		t.Errorf("expected trimmed name to match, got ids %d and %d", id1, id2)
	}
}

func TestGetOrCreate_EmptyNameRejected(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.GetOrCreate(context.Background(), "   "); !errs.IsValidation(err) {
		t.Errorf("expected validation error for blank name, got %v", err)
	}
}

func TestList_Alphabetical(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, name := range []string{"Pneumonia", "Asthma", "Hypertension"} {
		if _, err := repo.GetOrCreate(ctx, name); err != nil {
			t.Fatalf("GetOrCreate(%s) returned error: %v", name, err)
		}
	}

	items, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	want := []string{"Asthma", "Hypertension", "Pneumonia"}
	if len(items) != len(want) {
		t.Fatalf("expected %d diagnoses, got %d", len(want), len(items))
	}
	for i, name := range want {
		if items[i].Name != name {
			t.Errorf("position %d: expected %q, got %q", i, name, items[i].Name)
		}
	}
}

func TestDeleteIfOrphaned(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.GetOrCreate(ctx, "Asthma")
	if err != nil {
		t.Fatalf("GetOrCreate returned error: %v", err)
	}

	removed, err := repo.DeleteIfOrphaned(ctx, id)
	if err != nil {
		t.Fatalf("DeleteIfOrphaned returned error: %v", err)
	}
	if !removed {
		t.Error("expected unreferenced diagnosis to be removed")
	}
	if _, err := repo.GetByID(ctx, id); err == nil {
		t.Error("expected GetByID to fail after orphan delete")
	}
}
