package advisory

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/tbourn/go-delay-guarantee/internal/domain"
)

func TestPrompt_IncludesAssessmentAndTerms(t *testing.T) {
	req := Request{
		Assessment: domain.DelayAssessment{
			Route:                 domain.RouteDescriptor{Origin: "Airport", DistanceKm: 40, DurationMinutes: 50},
			Score:                 40,
			Tier:                  domain.TierMedium,
			EstimatedDelayMinutes: 10,
		},
		Terms:          domain.Compensation{Kind: domain.KindPercentage, Value: 10},
		DiscountAmount: 12,
		Currency:       "EUR",
	}
	p := Prompt(req)
	for _, want := range []string{"Airport to unknown", "40.0 km", "40/100 (medium tier)", "10 minutes", "10% discount", "12.00 EUR"} {
		if !strings.Contains(p, want) {
			t.Fatalf("prompt missing %q:\n%s", want, p)
		}
	}

	req.Terms = domain.Compensation{Kind: domain.KindFixed, Value: 5}
	if !strings.Contains(Prompt(req), "fixed 5.00 discount") {
		t.Fatalf("fixed terms not rendered")
	}
}

func TestClip(t *testing.T) {
	if Clip("  hi  ") != "hi" {
		t.Fatalf("Clip should trim")
	}
	long := strings.Repeat("é", MaxNoteRunes+50)
	if got := Clip(long); utf8.RuneCountInString(got) != MaxNoteRunes {
		t.Fatalf("Clip length = %d", utf8.RuneCountInString(got))
	}
}

func TestNewGeminiAdvisor_RequiresKey(t *testing.T) {
	if _, err := NewGeminiAdvisor(context.Background(), " ", "gemini-1.5-flash", time.Second); err == nil {
		t.Fatalf("expected error for empty key")
	}
}

func TestNopAdvisor(t *testing.T) {
	var a Advisor = NopAdvisor{}
	note, err := a.Note(context.Background(), Request{})
	if note != "" || err != nil {
		t.Fatalf("nop advisor = (%q, %v)", note, err)
	}
}
