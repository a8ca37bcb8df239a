package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tripwise/planner/internal/tripplan"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "plans.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func storedReport() tripplan.Report {
	section := func(title string) tripplan.Section {
		return tripplan.Section{Title: title, Items: []tripplan.Item{
			tripplan.PlainItem("A first item with enough text to pass validation."),
			tripplan.PlainItem("A second item with enough text to pass validation."),
		}}
	}
	return tripplan.Report{
		Title:   "Two weeks in Iberia",
		Summary: "A relaxed two-week loop through Lisbon and Madrid in spring.",
		Sections: []tripplan.Section{
			section("Trip Summary"),
			section("Getting There"),
			section("Where to Stay"),
			section("Practical Notes"),
		},
	}
}

func storedPlan() *Plan {
	return &Plan{
		Locale: tripplan.LocaleEN,
		Preferences: tripplan.Preferences{
			Origin:      "GRU",
			Destination: "LIS",
			StartDate:   time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
			EndDate:     time.Date(2026, 3, 24, 0, 0, 0, 0, time.UTC),
			Travelers:   2,
		},
		Report: storedReport(),
		Model:  "test-model",
	}
}

func TestSaveAndGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p := storedPlan()
	if err := s.Save(ctx, p); err != nil {
		t.Fatalf("save: %v", err)
	}
	if p.ID == "" {
		t.Fatal("save did not assign an id")
	}

	got, err := s.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Report.Title != p.Report.Title {
		t.Fatalf("report title lost: %q", got.Report.Title)
	}
	if got.Preferences.Origin != "GRU" || got.Preferences.Travelers != 2 {
		t.Fatalf("preferences lost: %+v", got.Preferences)
	}
	if got.Locale != tripplan.LocaleEN {
		t.Fatalf("locale lost: %q", got.Locale)
	}
}

func TestSaveRejectsInvalidReport(t *testing.T) {
	s := openTestStore(t)
	p := storedPlan()
	p.Report.Sections = p.Report.Sections[:2]
	if err := s.Save(context.Background(), p); err == nil {
		t.Fatal("expected invalid report to be rejected")
	}
}

func TestGetMissingPlan(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Get(context.Background(), "pl_missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetSurfacesCorruptRow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p := storedPlan()
	if err := s.Save(ctx, p); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := s.db.Exec(`UPDATE plans SET report = '{"title":""}' WHERE plan_id = ?`, p.ID); err != nil {
		t.Fatalf("corrupt row: %v", err)
	}

	_, err := s.Get(ctx, p.ID)
	if !errors.Is(err, ErrCorruptReport) {
		t.Fatalf("expected ErrCorruptReport, got %v", err)
	}
}

func TestShareMintsStableToken(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p := storedPlan()
	if err := s.Save(ctx, p); err != nil {
		t.Fatalf("save: %v", err)
	}

	token, err := s.Share(ctx, p.ID)
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	if token == "" {
		t.Fatal("empty share token")
	}
	again, err := s.Share(ctx, p.ID)
	if err != nil {
		t.Fatalf("share again: %v", err)
	}
	if again != token {
		t.Fatalf("share token changed: %q vs %q", token, again)
	}

	got, err := s.GetByShareToken(ctx, token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got.ID != p.ID {
		t.Fatalf("token resolved to wrong plan %q", got.ID)
	}
}

func TestShareMissingPlan(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Share(context.Background(), "pl_missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	older := storedPlan()
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	if err := s.Save(ctx, older); err != nil {
		t.Fatalf("save older: %v", err)
	}
	newer := storedPlan()
	if err := s.Save(ctx, newer); err != nil {
		t.Fatalf("save newer: %v", err)
	}

	plans, err := s.List(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(plans) != 2 {
		t.Fatalf("expected 2 plans, got %d", len(plans))
	}
	if plans[0].ID != newer.ID {
		t.Fatalf("expected newest first, got %q", plans[0].ID)
	}
}
