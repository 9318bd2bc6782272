package post

import (
	"testing"
	"time"
)

func TestKindForDay(t *testing.T) {
	t.Parallel()

	// A week starting on a known Monday, walking the full cycle plus the
	// wrap-around day.
	monday := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	if monday.Weekday() != time.Monday {
		t.Fatalf("fixture date is %s, want Monday", monday.Weekday())
	}

	want := []Kind{
		KindOffer,      // Monday
		KindTip,        // Tuesday
		KindSchedule,   // Wednesday
		KindMotivation, // Thursday
		KindReview,     // Friday
		KindNews,       // Saturday
		KindOffer,      // Sunday wraps around
	}
	for i, w := range want {
		day := monday.AddDate(0, 0, i)
		if got := KindForDay(day); got != w {
			t.Errorf("KindForDay(%s) = %s, want %s", day.Weekday(), got, w)
		}
	}
}

func TestPlanWeekKinds(t *testing.T) {
	t.Parallel()

	if len(PlanWeekKinds) != 7 {
		t.Fatalf("PlanWeekKinds has %d entries, want 7", len(PlanWeekKinds))
	}
	for i, k := range PlanWeekKinds {
		if !IsValidKind(string(k)) {
			t.Errorf("PlanWeekKinds[%d] = %q is not a valid kind", i, k)
		}
	}
}

func TestIsValidKind(t *testing.T) {
	t.Parallel()

	for _, k := range KindCycle {
		if !IsValidKind(string(k)) {
			t.Errorf("IsValidKind(%q) = false, want true", k)
		}
	}
	for _, s := range []string{"", "spam", "OFFER", "tips"} {
		if IsValidKind(s) {
			t.Errorf("IsValidKind(%q) = true, want false", s)
		}
	}
}

func TestDraftHasImage(t *testing.T) {
	t.Parallel()

	var nilDraft *Draft
	if nilDraft.HasImage() {
		t.Error("nil draft reports an image")
	}
	if (&Draft{}).HasImage() {
		t.Error("empty draft reports an image")
	}
	if !(&Draft{Attachment: []byte{0x89}}).HasImage() {
		t.Error("draft with attachment reports no image")
	}
}
