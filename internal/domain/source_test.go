package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestCandidateSet_AddKeepsMaxVectorScore(t *testing.T) {
	set := make(CandidateSet)

	set.Add(ContextSource{ID: "content:a", VectorScore: 0.5, Snippet: "first"})
	set.Add(ContextSource{ID: "content:a", VectorScore: 0.8, Snippet: "second"})
	set.Add(ContextSource{ID: "content:a", VectorScore: 0.3, Snippet: "third"})

	if len(set) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(set))
	}
	if got := set["content:a"].VectorScore; got != 0.8 {
		t.Fatalf("expected max vector score 0.8, got %v", got)
	}
}

func TestCandidateSet_DomainIDs(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	set := make(CandidateSet)
	set.Add(ContextSource{ID: "domain:" + a.String(), Kind: SourceKindDomain, DomainID: &a})
	set.Add(ContextSource{ID: "content:x", Kind: SourceKindContentItem, DomainID: &a})
	set.Add(ContextSource{ID: "content:y", Kind: SourceKindContentItem, DomainID: &b})
	set.Add(ContextSource{ID: "external:z", Kind: SourceKindExternalReference})

	ids := set.DomainIDs()
	if len(ids) != 2 {
		t.Fatalf("expected 2 distinct domain ids, got %d", len(ids))
	}
}

func TestValidSourceKind(t *testing.T) {
	tests := []struct {
		kind string
		want bool
	}{
		{"domain", true},
		{"content_item", true},
		{"external_reference", true},
		{"memory", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := ValidSourceKind(tt.kind); got != tt.want {
			t.Errorf("ValidSourceKind(%q) = %v, want %v", tt.kind, got, tt.want)
		}
	}
}
