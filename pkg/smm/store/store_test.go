package store

import (
	"path/filepath"
	"testing"

	"github.com/bukhantcev/stavfitness26/pkg/smm/post"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenSeedsDefaultProfile(t *testing.T) {
	s := openTestStore(t)

	p, err := s.Profile()
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.Name != "STAVFITNESS26" {
		t.Errorf("seeded profile name = %q, want STAVFITNESS26", p.Name)
	}
	if len(p.Services) == 0 || len(p.Hashtags) == 0 {
		t.Error("seeded profile is missing services or hashtags")
	}
}

func TestSaveProfileRoundTrip(t *testing.T) {
	s := openTestStore(t)

	p, err := s.Profile()
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	p.Name = "NEWSTUDIO"
	p.Services = []string{"yoga"}

	if err := s.SaveProfile(p); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}

	got, err := s.Profile()
	if err != nil {
		t.Fatalf("Profile after save: %v", err)
	}
	if got.Name != "NEWSTUDIO" {
		t.Errorf("profile name = %q, want NEWSTUDIO", got.Name)
	}
	if len(got.Services) != 1 || got.Services[0] != "yoga" {
		t.Errorf("profile services = %v, want [yoga]", got.Services)
	}
}

func TestDailyTime(t *testing.T) {
	s := openTestStore(t)

	t.Run("unset reads as off", func(t *testing.T) {
		got, err := s.DailyTime()
		if err != nil {
			t.Fatalf("DailyTime: %v", err)
		}
		if got != "" {
			t.Errorf("DailyTime = %q, want empty", got)
		}
	})

	t.Run("set and read back", func(t *testing.T) {
		if err := s.SetDailyTime("10:00"); err != nil {
			t.Fatalf("SetDailyTime: %v", err)
		}
		got, err := s.DailyTime()
		if err != nil {
			t.Fatalf("DailyTime: %v", err)
		}
		if got != "10:00" {
			t.Errorf("DailyTime = %q, want 10:00", got)
		}
	})

	t.Run("clear turns autopost off", func(t *testing.T) {
		if err := s.SetDailyTime(""); err != nil {
			t.Fatalf("SetDailyTime(\"\"): %v", err)
		}
		got, err := s.DailyTime()
		if err != nil {
			t.Fatalf("DailyTime: %v", err)
		}
		if got != "" {
			t.Errorf("DailyTime = %q, want empty after clear", got)
		}
	})
}

func TestDraftsAreAppendOnlyAndOrdered(t *testing.T) {
	s := openTestStore(t)

	first, err := s.AddDraft(post.KindOffer, "first text", "")
	if err != nil {
		t.Fatalf("AddDraft: %v", err)
	}
	second, err := s.AddDraft(post.KindTip, "second text", "stretching")
	if err != nil {
		t.Fatalf("AddDraft: %v", err)
	}

	if second.ID <= first.ID {
		t.Errorf("draft IDs not monotonic: first=%d second=%d", first.ID, second.ID)
	}

	latest, err := s.LatestDraft()
	if err != nil {
		t.Fatalf("LatestDraft: %v", err)
	}
	if latest == nil || latest.ID != second.ID {
		t.Fatalf("LatestDraft = %+v, want id %d", latest, second.ID)
	}
	if latest.Kind != post.KindTip || latest.Text != "second text" || latest.ImagePrompt != "stretching" {
		t.Errorf("latest draft fields wrong: %+v", latest)
	}
	if latest.HasImage() {
		t.Error("fresh draft reports an attachment")
	}

	n, err := s.CountDrafts()
	if err != nil {
		t.Fatalf("CountDrafts: %v", err)
	}
	if n != 2 {
		t.Errorf("CountDrafts = %d, want 2", n)
	}
}

func TestLatestDraftEmpty(t *testing.T) {
	s := openTestStore(t)

	latest, err := s.LatestDraft()
	if err != nil {
		t.Fatalf("LatestDraft: %v", err)
	}
	if latest != nil {
		t.Errorf("LatestDraft on empty log = %+v, want nil", latest)
	}
}

func TestDraftImageLifecycle(t *testing.T) {
	s := openTestStore(t)

	d, err := s.AddDraft(post.KindTip, "text", "theme")
	if err != nil {
		t.Fatalf("AddDraft: %v", err)
	}

	image := []byte{0x89, 0x50, 0x4e, 0x47}
	if err := s.SetDraftImage(d.ID, image, "theme"); err != nil {
		t.Fatalf("SetDraftImage: %v", err)
	}

	got, err := s.Draft(d.ID)
	if err != nil {
		t.Fatalf("Draft: %v", err)
	}
	if !got.HasImage() {
		t.Fatal("draft has no attachment after SetDraftImage")
	}
	if string(got.Attachment) != string(image) {
		t.Error("attachment bytes do not round-trip")
	}
	if got.Text != "text" {
		t.Errorf("text changed by image update: %q", got.Text)
	}

	if err := s.ClearDraftImage(d.ID); err != nil {
		t.Fatalf("ClearDraftImage: %v", err)
	}
	got, err = s.Draft(d.ID)
	if err != nil {
		t.Fatalf("Draft: %v", err)
	}
	if got.HasImage() {
		t.Error("attachment survived ClearDraftImage")
	}

	// Clearing again is a quiet no-op.
	if err := s.ClearDraftImage(d.ID); err != nil {
		t.Errorf("second ClearDraftImage: %v", err)
	}
}

func TestMigrateAddsImageColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")

	// Create a pre-attachment database by hand.
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s.DB().Exec("DROP TABLE drafts"); err != nil {
		t.Fatalf("drop drafts: %v", err)
	}
	if _, err := s.DB().Exec(`
		CREATE TABLE drafts (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			kind         TEXT NOT NULL,
			text         TEXT NOT NULL,
			image_prompt TEXT NOT NULL DEFAULT '',
			created_at   TEXT NOT NULL
		)`); err != nil {
		t.Fatalf("create legacy drafts: %v", err)
	}
	s.Close()

	// Reopening runs the migration.
	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	d, err := s.AddDraft(post.KindNews, "migrated", "")
	if err != nil {
		t.Fatalf("AddDraft after migration: %v", err)
	}
	if err := s.SetDraftImage(d.ID, []byte{1, 2, 3}, ""); err != nil {
		t.Fatalf("SetDraftImage after migration: %v", err)
	}
	got, err := s.Draft(d.ID)
	if err != nil {
		t.Fatalf("Draft: %v", err)
	}
	if !got.HasImage() {
		t.Error("migrated table cannot store attachments")
	}
}
