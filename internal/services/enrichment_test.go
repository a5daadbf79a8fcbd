package services

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/notelet/notelet-backend/internal/types"
)

func TestKindsForText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"short", strings.Repeat("a", 200), []string{EnrichKindSummary}},
		{"medium", strings.Repeat("a", 600), []string{EnrichKindSummary, EnrichKindFlashcards, EnrichKindMindMap}},
		{"long", strings.Repeat("a", 1200), []string{EnrichKindSummary, EnrichKindFlashcards, EnrichKindMindMap, EnrichKindStudyGuide}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := kindsForText(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("kinds: want=%v got=%v", tt.want, got)
			}
		})
	}
}

type enrichFixture struct {
	svc    *enrichmentService
	runs   *fakeEnrichmentRunRepo
	notes  *fakeNoteRepo
	client *fakeOpenAIClient
}

func newEnrichFixture(t *testing.T, generate func(system string, user string) (string, error)) *enrichFixture {
	log := testLogger(t)
	runs := newFakeEnrichmentRunRepo()
	notes := newFakeNoteRepo()
	client := &fakeOpenAIClient{generate: generate}
	svc := NewEnrichmentService(log, runs, notes, client, nil).(*enrichmentService)
	return &enrichFixture{svc: svc, runs: runs, notes: notes, client: client}
}

func seedNote(t *testing.T, fx *enrichFixture, text string) *types.Note {
	note := &types.Note{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		Title:         "lecture.txt",
		ExtractedText: text,
	}
	if _, err := fx.notes.Create(context.Background(), nil, []*types.Note{note}); err != nil {
		t.Fatalf("seed note: %v", err)
	}
	return note
}

func claimRun(t *testing.T, fx *enrichFixture, note *types.Note) *types.EnrichmentRun {
	ctx := context.Background()
	if err := fx.svc.Enqueue(ctx, note.UserID, note.ID, note.ExtractedText); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	run, err := fx.runs.ClaimNextRunnable(ctx, nil, maxRunAttempts, runRetryDelay, staleRunningAge)
	if err != nil || run == nil {
		t.Fatalf("claim: run=%v err=%v", run, err)
	}
	return run
}

func longSourceText() string {
	return strings.Repeat("Photosynthesis converts light energy into chemical energy. ", 25)
}

func TestEnrichment_ProcessRunAllKinds(t *testing.T) {
	fx := newEnrichFixture(t, func(system string, user string) (string, error) {
		switch system {
		case summarySystemPrompt:
			return "Plants turn light into sugar.", nil
		case mindMapSystemPrompt:
			return `{"root": "Photosynthesis", "branches": ["Light reactions", "Calvin cycle"]}`, nil
		case studyGuideSystemPrompt:
			return "Key concepts\n- Light reactions\n- Calvin cycle", nil
		case flashcardsSystemPrompt:
			return `[{"question": "What powers photosynthesis?", "answer": "Light"}]`, nil
		}
		return "", errors.New("unexpected prompt")
	})

	note := seedNote(t, fx, longSourceText())
	run := claimRun(t, fx, note)

	fx.svc.processRun(context.Background(), run)

	stored := fx.runs.get(run.ID)
	if stored.Status != types.EnrichmentStatusSucceeded {
		t.Fatalf("run status: want=%s got=%s (error=%q)", types.EnrichmentStatusSucceeded, stored.Status, stored.Error)
	}

	updated := fx.notes.get(note.ID)
	if !strings.Contains(updated.AnalysisText, "Plants turn light into sugar.") {
		t.Fatalf("analysis text missing summary: %q", updated.AnalysisText)
	}
	if !strings.Contains(updated.AnalysisText, "Flashcards") {
		t.Fatalf("analysis text missing flashcards section: %q", updated.AnalysisText)
	}

	var structured map[string]any
	lastCall := fx.notes.updateCalls[len(fx.notes.updateCalls)-1]
	raw, ok := lastCall["analysis_structured"].(datatypes.JSON)
	if !ok {
		t.Fatalf("structured analysis not persisted")
	}
	if err := json.Unmarshal(raw, &structured); err != nil {
		t.Fatalf("decode structured: %v", err)
	}
	if structured["degraded"] != false {
		t.Fatalf("degraded: want=false got=%v", structured["degraded"])
	}
	mm, _ := structured["mind_map"].(map[string]any)
	if mm["root"] != "Photosynthesis" {
		t.Fatalf("mind map root: got=%v", mm["root"])
	}
}

func TestEnrichment_ModelFailureDegradesGracefully(t *testing.T) {
	fx := newEnrichFixture(t, func(system string, user string) (string, error) {
		return "", errors.New("model unavailable")
	})

	note := seedNote(t, fx, longSourceText())
	run := claimRun(t, fx, note)

	fx.svc.processRun(context.Background(), run)

	stored := fx.runs.get(run.ID)
	if stored.Status != types.EnrichmentStatusSucceeded {
		t.Fatalf("run status: want=%s got=%s", types.EnrichmentStatusSucceeded, stored.Status)
	}

	updated := fx.notes.get(note.ID)
	if !strings.Contains(updated.AnalysisText, summaryFallbackText) {
		t.Fatalf("static summary fallback not used: %q", updated.AnalysisText)
	}
	// mind map and flashcards synthesized from the source text
	if !strings.Contains(updated.AnalysisText, "Mind Map") {
		t.Fatalf("synthesized mind map missing: %q", updated.AnalysisText)
	}
	if !strings.Contains(updated.AnalysisText, "Flashcards") {
		t.Fatalf("synthesized flashcards missing: %q", updated.AnalysisText)
	}
	// summary tried twice before the static fallback
	summaryCalls := 0
	for _, sys := range fx.client.calls {
		if sys == summarySystemPrompt || sys == summaryRetrySystemPrompt {
			summaryCalls++
		}
	}
	if summaryCalls != 2 {
		t.Fatalf("summary attempts: want=2 got=%d", summaryCalls)
	}
}

func TestEnrichment_MalformedJSONSalvaged(t *testing.T) {
	fx := newEnrichFixture(t, func(system string, user string) (string, error) {
		switch system {
		case flashcardsSystemPrompt:
			return "Sure! Here are your cards:\n```json\n[{\"question\": \"Q1\", \"answer\": \"A1\"}]\n```", nil
		case mindMapSystemPrompt:
			return "not json at all", nil
		default:
			return "fine", nil
		}
	})

	note := seedNote(t, fx, longSourceText())
	run := claimRun(t, fx, note)

	fx.svc.processRun(context.Background(), run)

	updated := fx.notes.get(note.ID)
	if !strings.Contains(updated.AnalysisText, "Q: Q1") {
		t.Fatalf("salvaged flashcards missing: %q", updated.AnalysisText)
	}
	// unparseable mind map falls back to synthesis, run still succeeds
	stored := fx.runs.get(run.ID)
	if stored.Status != types.EnrichmentStatusSucceeded {
		t.Fatalf("run status: want=%s got=%s", types.EnrichmentStatusSucceeded, stored.Status)
	}
}

func TestEnrichment_PersistRetriesTransientFailure(t *testing.T) {
	fx := newEnrichFixture(t, func(system string, user string) (string, error) {
		return "ok", nil
	})

	note := seedNote(t, fx, strings.Repeat("b", 200))
	run := claimRun(t, fx, note)

	fx.notes.updateErrs = []error{errors.New("deadlock"), nil}
	fx.svc.processRun(context.Background(), run)

	stored := fx.runs.get(run.ID)
	if stored.Status != types.EnrichmentStatusSucceeded {
		t.Fatalf("run status after transient persist failure: want=%s got=%s", types.EnrichmentStatusSucceeded, stored.Status)
	}
}

func TestEnrichment_SummaryOnlyFallbackWrite(t *testing.T) {
	fx := newEnrichFixture(t, func(system string, user string) (string, error) {
		return "the summary", nil
	})

	note := seedNote(t, fx, strings.Repeat("b", 200))
	run := claimRun(t, fx, note)

	// every full write fails, the minimal summary-only write succeeds
	fx.notes.updateErrs = []error{
		errors.New("disk full"), errors.New("disk full"), errors.New("disk full"),
		nil,
	}
	fx.svc.processRun(context.Background(), run)

	stored := fx.runs.get(run.ID)
	if stored.Status != types.EnrichmentStatusSucceeded {
		t.Fatalf("run status: want=%s got=%s", types.EnrichmentStatusSucceeded, stored.Status)
	}
	last := fx.notes.updateCalls[len(fx.notes.updateCalls)-1]
	if _, ok := last["analysis_structured"]; ok {
		t.Fatalf("minimal write must not include structured analysis")
	}
	if !strings.Contains(last["analysis_text"].(string), "the summary") {
		t.Fatalf("minimal write missing summary: %v", last["analysis_text"])
	}
}

func TestEnrichment_MissingNoteFailsRun(t *testing.T) {
	fx := newEnrichFixture(t, func(system string, user string) (string, error) {
		return "ok", nil
	})

	ctx := context.Background()
	userID := uuid.New()
	ghost := uuid.New()
	if err := fx.svc.Enqueue(ctx, userID, ghost, "some text"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	run, err := fx.runs.ClaimNextRunnable(ctx, nil, maxRunAttempts, runRetryDelay, staleRunningAge)
	if err != nil || run == nil {
		t.Fatalf("claim: %v", err)
	}

	fx.svc.processRun(ctx, run)

	stored := fx.runs.get(run.ID)
	if stored.Status != types.EnrichmentStatusFailed {
		t.Fatalf("run status: want=%s got=%s", types.EnrichmentStatusFailed, stored.Status)
	}
	if stored.Error == "" {
		t.Fatalf("failed run has no error recorded")
	}
}
