// Package post defines the content domain types shared by the store, the
// generation gateway, and the bot: the brand profile, draft records, and
// the post kind taxonomy.
package post

import "time"

// Kind is the content category steering prompt construction.
type Kind string

const (
	KindOffer      Kind = "offer"
	KindTip        Kind = "tip"
	KindSchedule   Kind = "schedule"
	KindMotivation Kind = "motivation"
	KindReview     Kind = "review"
	KindNews       Kind = "news"
)

// KindCycle is the fixed rotation used by the weekly plan and the daily
// autopost job (weekday modulo cycle length).
var KindCycle = []Kind{KindOffer, KindTip, KindSchedule, KindMotivation, KindReview, KindNews}

// PlanWeekKinds is the seven-slot cycle used by the weekly content plan.
var PlanWeekKinds = []Kind{KindOffer, KindTip, KindSchedule, KindMotivation, KindReview, KindNews, KindTip}

// KindForDay picks the autopost kind for a given date. The rotation is
// anchored at Monday, so Monday publishes an offer.
func KindForDay(t time.Time) Kind {
	day := (int(t.Weekday()) + 6) % 7
	return KindCycle[day%len(KindCycle)]
}

// IsValidKind reports whether s names a known post kind. Free-form kinds
// are still accepted by the store; this only validates the curated set.
func IsValidKind(s string) bool {
	switch Kind(s) {
	case KindOffer, KindTip, KindSchedule, KindMotivation, KindReview, KindNews:
		return true
	}
	return false
}

// Profile is the singleton brand profile read on every generation call.
type Profile struct {
	// Name is the studio/brand name used in prompts and the slogan line.
	Name string `json:"name" yaml:"name"`

	// Address is shown unobtrusively in generated posts.
	Address string `json:"address" yaml:"address"`

	// Phone is the contact number for the call to action.
	Phone string `json:"phone" yaml:"phone"`

	// Services are the offerings the copy leans on.
	Services []string `json:"services" yaml:"services"`

	// Tone describes the writing voice (e.g. "friendly, to the point").
	Tone string `json:"tone" yaml:"tone"`

	// Hashtags are appended to every generated post.
	Hashtags []string `json:"hashtags" yaml:"hashtags"`

	// Offers are current promotions the copy may weave in.
	Offers []string `json:"offers" yaml:"offers"`

	// BrandWords are phrases the copy should reuse verbatim.
	BrandWords []string `json:"brand_words" yaml:"brand_words"`

	// ImageStyle describes the look of generated images.
	ImageStyle string `json:"image_style" yaml:"image_style"`
}

// DefaultProfile returns the profile seeded on first run.
func DefaultProfile() *Profile {
	return &Profile{
		Name:    "STAVFITNESS26",
		Address: "15/2 Pirogova St, 3rd floor",
		Phone:   "+7 988 703-20-14",
		Services: []string{
			"pilates", "stretching", "healthy back", "dance aerobics", "strength training",
		},
		Tone: "friendly, to the point, no fluff, with emoji",
		Hashtags: []string{
			"#pilates", "#stretching", "#stavropol", "#fitness", "#healthyback", "#workout",
		},
		Offers: []string{
			"10% off with a flyer",
			"Free trial class by appointment",
		},
		BrandWords: []string{
			"STAVFITNESS26", "strong body", "healthy posture", "welcoming atmosphere",
			"your body, your health, your harmony",
		},
		ImageStyle: "bright studio, natural light, motion, smiling people, 3:4",
	}
}

// Draft is a generated, not-yet-published candidate post. Drafts are
// append-only: every field except Attachment is immutable after insert,
// and the workflow always operates on the highest-ID draft.
type Draft struct {
	// ID is assigned by the store at creation and defines recency order.
	ID int64

	// Kind is the content category the draft was generated for.
	Kind Kind

	// Text is the generated post body.
	Text string

	// ImagePrompt is the operator theme (or constructed image prompt) the
	// image generator should reflect. Empty when no theme was supplied.
	ImagePrompt string

	// Attachment is the raw image payload, nil when the draft has no image.
	// This is the only field mutated after creation.
	Attachment []byte

	// CreatedAt is the insertion timestamp.
	CreatedAt time.Time
}

// HasImage reports whether the draft currently carries an attachment.
func (d *Draft) HasImage() bool { return d != nil && len(d.Attachment) > 0 }
