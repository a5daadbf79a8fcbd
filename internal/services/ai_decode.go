package services

import (
  "encoding/json"
  "errors"
  "strings"
)

// Model output carries no structured-output guarantee, so structured kinds
// (mind map, flashcards, MCQs) are parsed defensively: find the first
// well-formed braced/bracketed region in the raw text, and if that fails,
// synthesize a minimal valid structure from the source text instead of
// dropping the kind.

type Flashcard struct {
  Question string `json:"question"`
  Answer   string `json:"answer"`
}

type MindMap struct {
  Root     string   `json:"root"`
  Branches []string `json:"branches"`
}

// firstJSONRegion returns the first balanced {...} or [...] region of s,
// respecting JSON string literals and escapes.
func firstJSONRegion(s string) (string, bool) {
  start := -1
  var open, close byte
  for i := 0; i < len(s); i++ {
    if s[i] == '{' || s[i] == '[' {
      start = i
      open = s[i]
      if open == '{' {
        close = '}'
      } else {
        close = ']'
      }
      break
    }
  }
  if start < 0 {
    return "", false
  }

  depth := 0
  inString := false
  escaped := false
  for i := start; i < len(s); i++ {
    c := s[i]
    if inString {
      switch {
      case escaped:
        escaped = false
      case c == '\\':
        escaped = true
      case c == '"':
        inString = false
      }
      continue
    }
    switch c {
    case '"':
      inString = true
    case open:
      depth++
    case close:
      depth--
      if depth == 0 {
        return s[start : i+1], true
      }
    }
  }
  return "", false
}

func decodeJSONObject(raw string) (map[string]any, error) {
  region, ok := firstJSONRegion(raw)
  if !ok {
    return nil, errors.New("no JSON region found")
  }
  var obj map[string]any
  if err := json.Unmarshal([]byte(region), &obj); err != nil {
    return nil, err
  }
  return obj, nil
}

func decodeJSONArray(raw string) ([]any, error) {
  region, ok := firstJSONRegion(raw)
  if !ok {
    return nil, errors.New("no JSON region found")
  }
  var arr []any
  if err := json.Unmarshal([]byte(region), &arr); err != nil {
    return nil, err
  }
  return arr, nil
}

// decodeFlashcards parses model output into flashcards; on failure it derives
// naive cards from the source text. The bool reports whether the fallback
// synthesis was used.
func decodeFlashcards(raw string, source string, max int) ([]Flashcard, bool) {
  if max <= 0 {
    max = 10
  }

  if arr, err := decodeJSONArray(raw); err == nil {
    cards := make([]Flashcard, 0, len(arr))
    for _, item := range arr {
      m, ok := item.(map[string]any)
      if !ok {
        continue
      }
      q, _ := m["question"].(string)
      a, _ := m["answer"].(string)
      if strings.TrimSpace(q) == "" || strings.TrimSpace(a) == "" {
        continue
      }
      cards = append(cards, Flashcard{Question: q, Answer: a})
      if len(cards) == max {
        break
      }
    }
    if len(cards) > 0 {
      return cards, false
    }
  }

  return synthesizeFlashcards(source, max), true
}

// decodeMindMap parses model output into a mind map; on failure it builds a
// flat one from the source's leading sentences.
func decodeMindMap(raw string, source string) (*MindMap, bool) {
  if obj, err := decodeJSONObject(raw); err == nil {
    root, _ := obj["root"].(string)
    var branches []string
    if arr, ok := obj["branches"].([]any); ok {
      for _, b := range arr {
        if s, ok := b.(string); ok && strings.TrimSpace(s) != "" {
          branches = append(branches, s)
        }
      }
    }
    if strings.TrimSpace(root) != "" && len(branches) > 0 {
      return &MindMap{Root: root, Branches: branches}, false
    }
  }

  sentences := splitSentences(source)
  mm := &MindMap{Root: firstWords(source, 6)}
  for _, s := range sentences {
    mm.Branches = append(mm.Branches, firstWords(s, 8))
    if len(mm.Branches) == 6 {
      break
    }
  }
  if len(mm.Branches) == 0 {
    mm.Branches = []string{mm.Root}
  }
  return mm, true
}

func synthesizeFlashcards(source string, max int) []Flashcard {
  sentences := splitSentences(source)
  cards := make([]Flashcard, 0, max)
  for _, s := range sentences {
    s = strings.TrimSpace(s)
    if len(s) < 20 {
      continue
    }
    cards = append(cards, Flashcard{
      Question: "Complete the idea: " + firstWords(s, 6) + "...",
      Answer:   s,
    })
    if len(cards) == max {
      break
    }
  }
  if len(cards) == 0 {
    cards = append(cards, Flashcard{
      Question: "What is this document about?",
      Answer:   firstWords(source, 30),
    })
  }
  return cards
}

func splitSentences(s string) []string {
  var out []string
  var cur strings.Builder
  for _, r := range s {
    cur.WriteRune(r)
    if r == '.' || r == '!' || r == '?' || r == '\n' {
      if part := strings.TrimSpace(cur.String()); part != "" && part != "." {
        out = append(out, part)
      }
      cur.Reset()
    }
  }
  if part := strings.TrimSpace(cur.String()); part != "" {
    out = append(out, part)
  }
  return out
}

func firstWords(s string, n int) string {
  fields := strings.Fields(s)
  if len(fields) <= n {
    return strings.Join(fields, " ")
  }
  return strings.Join(fields[:n], " ")
}
