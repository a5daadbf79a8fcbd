package services

import (
	"strings"
	"testing"
)

func TestFirstJSONRegion(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`, true},
		{"prose wrapped", "Sure! ```json\n[1, 2]\n``` hope that helps", "[1, 2]", true},
		{"braces in strings", `{"a": "}{"}`, `{"a": "}{"}`, true},
		{"unbalanced", `{"a": 1`, "", false},
		{"no json", "just words", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := firstJSONRegion(tt.in)
			if ok != tt.ok || got != tt.want {
				t.Fatalf("firstJSONRegion(%q): want=(%q,%v) got=(%q,%v)", tt.in, tt.want, tt.ok, got, ok)
			}
		})
	}
}

func TestDecodeFlashcards_Valid(t *testing.T) {
	raw := `[{"question": "Q1", "answer": "A1"}, {"question": "Q2", "answer": "A2"}]`
	cards, fallback := decodeFlashcards(raw, "source", 10)
	if fallback {
		t.Fatalf("valid input should not fall back")
	}
	if len(cards) != 2 || cards[0].Question != "Q1" {
		t.Fatalf("cards: %+v", cards)
	}
}

func TestDecodeFlashcards_SkipsMalformedItems(t *testing.T) {
	raw := `[{"question": "Q1", "answer": "A1"}, {"question": ""}, {"other": true}]`
	cards, fallback := decodeFlashcards(raw, "source", 10)
	if fallback || len(cards) != 1 {
		t.Fatalf("want 1 card without fallback, got %d (fallback=%v)", len(cards), fallback)
	}
}

func TestDecodeFlashcards_FallbackSynthesis(t *testing.T) {
	source := "The krebs cycle produces ATP in cells. Enzymes catalyze biochemical reactions efficiently."
	cards, fallback := decodeFlashcards("the model refused", source, 10)
	if !fallback {
		t.Fatalf("garbage input must fall back")
	}
	if len(cards) == 0 {
		t.Fatalf("synthesis produced no cards")
	}
	if !strings.HasPrefix(cards[0].Question, "Complete the idea:") {
		t.Fatalf("unexpected synthesized question: %q", cards[0].Question)
	}
}

func TestDecodeMindMap_Valid(t *testing.T) {
	mm, fallback := decodeMindMap(`{"root": "Cells", "branches": ["Nucleus", "Membrane"]}`, "source")
	if fallback {
		t.Fatalf("valid input should not fall back")
	}
	if mm.Root != "Cells" || len(mm.Branches) != 2 {
		t.Fatalf("mind map: %+v", mm)
	}
}

func TestDecodeMindMap_FallbackFromSource(t *testing.T) {
	source := "Cell biology basics. The nucleus stores DNA. The membrane controls transport."
	mm, fallback := decodeMindMap("no json here", source)
	if !fallback {
		t.Fatalf("garbage input must fall back")
	}
	if mm.Root == "" || len(mm.Branches) == 0 {
		t.Fatalf("synthesized mind map incomplete: %+v", mm)
	}
}

func TestDecodeMCQQuestions(t *testing.T) {
	raw := `Here you go:
[
  {"question": "Q1", "options": ["a", "b", "c", "d"], "answer": 2},
  {"question": "Q2", "options": ["a"], "answer": 0},
  {"question": "Q3", "options": ["a", "b"], "answer": 5}
]`
	qs, err := decodeMCQQuestions(raw, 10)
	if err != nil {
		t.Fatalf("decodeMCQQuestions: %v", err)
	}
	// Q2 has too few options, Q3's answer is out of range
	if len(qs) != 1 || qs[0].Question != "Q1" || qs[0].Answer != 2 {
		t.Fatalf("questions: %+v", qs)
	}
}

func TestDecodeMCQQuestions_NoUsable(t *testing.T) {
	if _, err := decodeMCQQuestions("[]", 10); err == nil {
		t.Fatalf("empty array should error")
	}
	if _, err := decodeMCQQuestions("prose only", 10); err == nil {
		t.Fatalf("non-json should error")
	}
}
