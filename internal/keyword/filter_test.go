package keyword

import (
	"reflect"
	"testing"

	"coursetutor/internal/corpus"
)

func TestTokens(t *testing.T) {
	got := Tokens("What is Photo-synthesis, exactly?  (Unit 1.2)")
	want := []string{"what", "is", "photo", "synthesis", "exactly", "unit", "1", "2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokens = %v, want %v", got, want)
	}
}

func TestFilter_SubstringMatchInCorpusOrder(t *testing.T) {
	c := corpus.New([]string{
		"Mitochondria are the powerhouse of the cell.",
		"PHOTOSYNTHESIS converts light energy.",
		"Cellular respiration releases energy.",
	})
	got := Filter(c, "photosynthesis energy!")
	if !reflect.DeepEqual(got, []int{1, 2}) {
		t.Fatalf("Filter = %v, want [1 2]", got)
	}
	// "cell" is a substring of "cellular"
	if got := Filter(c, "cell"); !reflect.DeepEqual(got, []int{0, 2}) {
		t.Fatalf("Filter(cell) = %v, want [0 2]", got)
	}
	if got := Filter(c, "?!"); got != nil {
		t.Fatalf("expected nil for punctuation-only query, got %v", got)
	}
}

func TestExpand_DeterministicAndDeduplicated(t *testing.T) {
	got := Expand("osmosis")
	want := []string{"osmosis", "Unit osmosis"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Expand = %v, want %v", got, want)
	}
	got = Expand("section 1.2")
	want = []string{"section 1.2", "section 1 2", " 1.2", "Unit section 1.2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Expand = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(Expand("section 1.2"), got) {
		t.Fatalf("Expand must be deterministic")
	}
}

func TestCandidates_FallsBackToWholeCorpus(t *testing.T) {
	c := corpus.New([]string{"alpha beta", "gamma delta", "epsilon"})
	// "Unit " expansion adds the token "unit", which no chunk contains.
	got := Candidates(c, "zzz qqq")
	if !reflect.DeepEqual(got, []int{0, 1, 2}) {
		t.Fatalf("Candidates = %v, want whole corpus", got)
	}
	if len(Candidates(c, "")) != 3 {
		t.Fatalf("empty query must still yield the whole corpus")
	}
}

func TestCandidates_UnionsExpansions(t *testing.T) {
	c := corpus.New([]string{"Unit overview", "gamma delta", "the gamma ray"})
	got := Candidates(c, "gamma")
	if !reflect.DeepEqual(got, []int{0, 1, 2}) {
		t.Fatalf("Candidates = %v, want [0 1 2]", got)
	}
}
