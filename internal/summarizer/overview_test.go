package summarizer

import (
	"strings"
	"testing"
)

func TestOverview_PicksFrequentSentencesInOrder(t *testing.T) {
	chunks := []string{
		"Cells divide by mitosis. The weather was pleasant.",
		"Mitosis yields identical cells. Mitosis and cells are central.",
	}
	got := NewFrequency().Overview(chunks, 2)
	if strings.Contains(got, "weather") {
		t.Fatalf("low-frequency sentence selected: %q", got)
	}
	first := strings.Index(got, "Cells divide")
	second := strings.Index(got, "Mitosis")
	if first < 0 || second < 0 || first > second {
		t.Fatalf("expected corpus order, got %q", got)
	}
}

func TestOverview_NoSentenceBoundaries(t *testing.T) {
	got := NewFrequency().Overview([]string{"  heading only  "}, 3)
	if got != "heading only" {
		t.Fatalf("got %q", got)
	}
}

func TestOverview_MoreSentencesThanAvailable(t *testing.T) {
	got := NewFrequency().Overview([]string{"One idea. Two ideas!"}, 10)
	if got != "One idea. Two ideas!" {
		t.Fatalf("got %q", got)
	}
}
