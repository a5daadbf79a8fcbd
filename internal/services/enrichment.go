package services

import (
  "context"
  "encoding/json"
  "fmt"
  "strings"
  "sync"
  "time"
  "unicode/utf8"

  "github.com/google/uuid"
  "golang.org/x/sync/errgroup"
  "gorm.io/datatypes"

  "github.com/notelet/notelet-backend/internal/logger"
  "github.com/notelet/notelet-backend/internal/repos"
  "github.com/notelet/notelet-backend/internal/sse"
  "github.com/notelet/notelet-backend/internal/types"
  "github.com/notelet/notelet-backend/internal/utils"
)

const (
  EnrichKindSummary    = "summary"
  EnrichKindMindMap    = "mind_map"
  EnrichKindStudyGuide = "study_guide"
  EnrichKindFlashcards = "flashcards"
)

// Scheduling thresholds in extracted-text runes. A summary is always
// generated; the heavier kinds only kick in once there is enough text to
// make them worthwhile.
const (
  mindMapMinChars    = 500
  studyGuideMinChars = 1000
  flashcardsMinChars = 300
)

// Per-kind generation ceilings. Each kind runs under its own deadline so one
// slow call cannot starve the rest of the fan-out.
const (
  summaryTimeout    = 45 * time.Second
  mindMapTimeout    = 60 * time.Second
  studyGuideTimeout = 60 * time.Second
  flashcardsTimeout = 45 * time.Second
)

const (
  maxRunAttempts   = 3
  runRetryDelay    = 30 * time.Second
  staleRunningAge  = 5 * time.Minute
  heartbeatEvery   = 15 * time.Second
  maxPromptChars   = 12000
  maxFlashcards    = 12
  persistAttempts  = 3
  persistBackoff   = 250 * time.Millisecond
)

const summaryFallbackText = "A summary could not be generated for this document."

const (
  summarySystemPrompt = "You are a study assistant. Write a concise summary of the provided document in 3-6 sentences. Plain prose, no headings."

  summaryRetrySystemPrompt = "Summarize the following text in two sentences."

  mindMapSystemPrompt = "You are a study assistant. Respond ONLY with a JSON object of the form {\"root\": string, \"branches\": [string, ...]} describing a mind map of the document. No prose, no markdown fences."

  studyGuideSystemPrompt = "You are a study assistant. Produce a study guide for the provided document: key concepts, short explanations, and review questions. Use plain text with simple section headings."

  flashcardsSystemPrompt = "You are a study assistant. Respond ONLY with a JSON array of objects of the form {\"question\": string, \"answer\": string} covering the document's main facts. No prose, no markdown fences."
)

// EnrichmentService owns the background AI pipeline: notes are queued as
// enrichment_run rows and a small worker pool claims and processes them, so
// runs survive restarts and are retried or reclaimed on crash.
type EnrichmentService interface {
  Enqueue(ctx context.Context, userID uuid.UUID, noteID uuid.UUID, text string) error
  StartWorker(ctx context.Context)
  RunsForNote(ctx context.Context, userID uuid.UUID, noteID uuid.UUID) ([]*types.EnrichmentRun, error)
}

type enrichmentService struct {
  log          *logger.Logger
  runRepo      repos.EnrichmentRunRepo
  noteRepo     repos.NoteRepo
  client       OpenAIClient
  broadcaster  *sse.Broadcaster
  pollInterval time.Duration
  workers      int
}

func NewEnrichmentService(
  baseLog *logger.Logger,
  runRepo repos.EnrichmentRunRepo,
  noteRepo repos.NoteRepo,
  client OpenAIClient,
  broadcaster *sse.Broadcaster,
) EnrichmentService {
  serviceLog := baseLog.With("service", "EnrichmentService")
  pollSeconds := utils.GetEnvAsInt("ENRICH_POLL_SECONDS", 3, serviceLog)
  workers := utils.GetEnvAsInt("ENRICH_WORKERS", 2, serviceLog)
  if workers < 1 {
    workers = 1
  }
  return &enrichmentService{
    log:          serviceLog,
    runRepo:      runRepo,
    noteRepo:     noteRepo,
    client:       client,
    broadcaster:  broadcaster,
    pollInterval: time.Duration(pollSeconds) * time.Second,
    workers:      workers,
  }
}

// kindsForText decides which enrichment kinds a document earns.
func kindsForText(text string) []string {
  n := utf8.RuneCountInString(text)
  kinds := []string{EnrichKindSummary}
  if n > flashcardsMinChars {
    kinds = append(kinds, EnrichKindFlashcards)
  }
  if n > mindMapMinChars {
    kinds = append(kinds, EnrichKindMindMap)
  }
  if n > studyGuideMinChars {
    kinds = append(kinds, EnrichKindStudyGuide)
  }
  return kinds
}

func (s *enrichmentService) Enqueue(ctx context.Context, userID uuid.UUID, noteID uuid.UUID, text string) error {
  kinds := kindsForText(text)
  kindsJSON, err := json.Marshal(kinds)
  if err != nil {
    return fmt.Errorf("Failed to encode enrichment kinds: %w", err)
  }

  now := time.Now()
  run := &types.EnrichmentRun{
    ID:        uuid.New(),
    UserID:    userID,
    NoteID:    noteID,
    Status:    types.EnrichmentStatusQueued,
    Kinds:     datatypes.JSON(kindsJSON),
    CreatedAt: now,
    UpdatedAt: now,
  }
  if _, err := s.runRepo.Create(ctx, nil, []*types.EnrichmentRun{run}); err != nil {
    return fmt.Errorf("Failed to enqueue enrichment run: %w", err)
  }
  s.log.Info("Enrichment run queued", "run_id", run.ID, "note_id", noteID, "kinds", kinds)
  return nil
}

func (s *enrichmentService) RunsForNote(ctx context.Context, userID uuid.UUID, noteID uuid.UUID) ([]*types.EnrichmentRun, error) {
  note, err := s.noteRepo.GetByIDForUser(ctx, nil, noteID, userID)
  if err != nil {
    return nil, fmt.Errorf("Failed to load note: %w", err)
  }
  if note == nil {
    return nil, fmt.Errorf("%w: note %s", ErrNotFound, noteID)
  }
  runs, err := s.runRepo.GetByNoteID(ctx, nil, noteID)
  if err != nil {
    return nil, fmt.Errorf("Failed to load enrichment runs: %w", err)
  }
  return runs, nil
}

// StartWorker launches the claim loop goroutines. They stop when ctx is
// cancelled.
func (s *enrichmentService) StartWorker(ctx context.Context) {
  for i := 0; i < s.workers; i++ {
    workerID := i
    go func() {
      ticker := time.NewTicker(s.pollInterval)
      defer ticker.Stop()
      for {
        select {
        case <-ctx.Done():
          return
        case <-ticker.C:
          run, err := s.runRepo.ClaimNextRunnable(ctx, nil, maxRunAttempts, runRetryDelay, staleRunningAge)
          if err != nil {
            s.log.Warn("ClaimNextRunnable failed", "worker_id", workerID, "error", err)
            continue
          }
          if run == nil {
            continue
          }
          s.processRun(ctx, run)
        }
      }
    }()
  }
  s.log.Info("Enrichment workers started", "workers", s.workers, "poll_interval", s.pollInterval)
}

type enrichmentOutput struct {
  mu sync.Mutex

  summary         string
  summaryDegraded bool

  mindMap         *MindMap
  mindMapDegraded bool

  studyGuide         string
  studyGuideDegraded bool

  flashcards         []Flashcard
  flashcardsDegraded bool
}

func (s *enrichmentService) processRun(ctx context.Context, run *types.EnrichmentRun) {
  runLog := s.log.With("run_id", run.ID, "note_id", run.NoteID, "attempt", run.Attempts)

  hbCtx, stopHeartbeat := context.WithCancel(ctx)
  defer stopHeartbeat()
  go s.heartbeat(hbCtx, run.ID)

  note, err := s.noteRepo.GetByIDForUser(ctx, nil, run.NoteID, run.UserID)
  if err != nil {
    s.failRun(ctx, run, fmt.Errorf("Failed to load note: %w", err))
    return
  }
  if note == nil {
    s.failRun(ctx, run, fmt.Errorf("note %s no longer exists", run.NoteID))
    return
  }

  var kinds []string
  if len(run.Kinds) > 0 {
    if err := json.Unmarshal(run.Kinds, &kinds); err != nil {
      runLog.Warn("Failed to decode run kinds; recomputing", "error", err)
    }
  }
  if len(kinds) == 0 {
    kinds = kindsForText(note.ExtractedText)
  }

  text := note.ExtractedText
  if utf8.RuneCountInString(text) > maxPromptChars {
    text = string([]rune(text)[:maxPromptChars])
  }

  out := &enrichmentOutput{}
  g, _ := errgroup.WithContext(ctx)
  for _, kind := range kinds {
    kind := kind
    g.Go(func() error {
      s.generateKind(ctx, kind, text, out, runLog)
      return nil
    })
  }
  _ = g.Wait()

  if err := s.persistResults(ctx, note, run, kinds, out); err != nil {
    s.failRun(ctx, run, err)
    return
  }

  if err := s.runRepo.UpdateFields(ctx, nil, run.ID, map[string]interface{}{
    "status":     types.EnrichmentStatusSucceeded,
    "error":      "",
    "updated_at": time.Now(),
  }); err != nil {
    runLog.Error("Failed to mark run succeeded", "error", err)
    return
  }

  runLog.Info("Enrichment run succeeded", "kinds", kinds)
  s.broadcaster.Send(ctx, run.UserID, sse.SSEEventNoteEnriched, map[string]any{
    "note_id": run.NoteID,
    "kinds":   kinds,
  })
}

// generateKind produces one enrichment kind. Every failure path lands on a
// usable fallback value, so a run never dies because the model misbehaved.
func (s *enrichmentService) generateKind(ctx context.Context, kind string, text string, out *enrichmentOutput, runLog *logger.Logger) {
  switch kind {
  case EnrichKindSummary:
    summary, degraded := s.generateSummary(ctx, text, runLog)
    out.mu.Lock()
    out.summary, out.summaryDegraded = summary, degraded
    out.mu.Unlock()

  case EnrichKindMindMap:
    tctx, cancel := context.WithTimeout(ctx, mindMapTimeout)
    defer cancel()
    raw, err := s.client.GenerateText(tctx, mindMapSystemPrompt, text)
    if err != nil {
      runLog.Warn("Mind map generation failed; synthesizing", "error", err)
      raw = ""
    }
    mm, fallback := decodeMindMap(raw, text)
    out.mu.Lock()
    out.mindMap, out.mindMapDegraded = mm, fallback
    out.mu.Unlock()

  case EnrichKindStudyGuide:
    tctx, cancel := context.WithTimeout(ctx, studyGuideTimeout)
    defer cancel()
    guide, err := s.client.GenerateText(tctx, studyGuideSystemPrompt, text)
    degraded := false
    if err != nil || strings.TrimSpace(guide) == "" {
      if err != nil {
        runLog.Warn("Study guide generation failed; synthesizing", "error", err)
      }
      guide = synthesizeStudyGuide(text)
      degraded = true
    }
    out.mu.Lock()
    out.studyGuide, out.studyGuideDegraded = guide, degraded
    out.mu.Unlock()

  case EnrichKindFlashcards:
    tctx, cancel := context.WithTimeout(ctx, flashcardsTimeout)
    defer cancel()
    raw, err := s.client.GenerateText(tctx, flashcardsSystemPrompt, text)
    if err != nil {
      runLog.Warn("Flashcard generation failed; synthesizing", "error", err)
      raw = ""
    }
    cards, fallback := decodeFlashcards(raw, text, maxFlashcards)
    out.mu.Lock()
    out.flashcards, out.flashcardsDegraded = cards, fallback
    out.mu.Unlock()

  default:
    runLog.Warn("Unknown enrichment kind", "kind", kind)
  }
}

// generateSummary tries the full prompt, then a stripped-down one, then a
// static fallback so the note always ends up with summary text.
func (s *enrichmentService) generateSummary(ctx context.Context, text string, runLog *logger.Logger) (string, bool) {
  tctx, cancel := context.WithTimeout(ctx, summaryTimeout)
  defer cancel()
  summary, err := s.client.GenerateText(tctx, summarySystemPrompt, text)
  if err == nil && strings.TrimSpace(summary) != "" {
    return strings.TrimSpace(summary), false
  }
  if err != nil {
    runLog.Warn("Summary generation failed; retrying with reduced prompt", "error", err)
  }

  tctx2, cancel2 := context.WithTimeout(ctx, summaryTimeout)
  defer cancel2()
  summary, err = s.client.GenerateText(tctx2, summaryRetrySystemPrompt, text)
  if err == nil && strings.TrimSpace(summary) != "" {
    return strings.TrimSpace(summary), false
  }
  if err != nil {
    runLog.Warn("Reduced summary generation failed; using static fallback", "error", err)
  }
  return summaryFallbackText, true
}

func synthesizeStudyGuide(text string) string {
  sentences := splitSentences(text)
  var b strings.Builder
  b.WriteString("Key points\n\n")
  count := 0
  for _, sent := range sentences {
    sent = strings.TrimSpace(sent)
    if len(sent) < 20 {
      continue
    }
    b.WriteString("- ")
    b.WriteString(sent)
    b.WriteString("\n")
    count++
    if count == 10 {
      break
    }
  }
  if count == 0 {
    b.WriteString("- ")
    b.WriteString(firstWords(text, 30))
    b.WriteString("\n")
  }
  return b.String()
}

// persistResults writes the composed analysis onto the note, retrying
// transient failures, and on persistent failure falls back to saving just
// the summary so at least the headline survives.
func (s *enrichmentService) persistResults(ctx context.Context, note *types.Note, run *types.EnrichmentRun, kinds []string, out *enrichmentOutput) error {
  degraded := out.summaryDegraded || out.mindMapDegraded || out.studyGuideDegraded || out.flashcardsDegraded

  structured := map[string]any{
    "summary":      out.summary,
    "kinds":        kinds,
    "degraded":     degraded,
    "generated_at": time.Now().UTC().Format(time.RFC3339),
  }
  if out.mindMap != nil {
    structured["mind_map"] = out.mindMap
  }
  if out.studyGuide != "" {
    structured["study_guide"] = out.studyGuide
  }
  if len(out.flashcards) > 0 {
    structured["flashcards"] = out.flashcards
  }
  structuredJSON, err := json.Marshal(structured)
  if err != nil {
    return fmt.Errorf("Failed to encode analysis: %w", err)
  }

  var b strings.Builder
  b.WriteString("Summary\n")
  b.WriteString(out.summary)
  if out.studyGuide != "" {
    b.WriteString("\n\nStudy Guide\n")
    b.WriteString(out.studyGuide)
  }
  if out.mindMap != nil {
    b.WriteString("\n\nMind Map\n")
    b.WriteString(out.mindMap.Root)
    for _, br := range out.mindMap.Branches {
      b.WriteString("\n- ")
      b.WriteString(br)
    }
  }
  if len(out.flashcards) > 0 {
    b.WriteString("\n\nFlashcards\n")
    for _, card := range out.flashcards {
      b.WriteString("Q: ")
      b.WriteString(card.Question)
      b.WriteString("\nA: ")
      b.WriteString(card.Answer)
      b.WriteString("\n")
    }
  }

  fields := map[string]interface{}{
    "analysis_text":       b.String(),
    "analysis_structured": datatypes.JSON(structuredJSON),
    "updated_at":          time.Now(),
  }

  var lastErr error
  for attempt := 1; attempt <= persistAttempts; attempt++ {
    if lastErr = s.noteRepo.UpdateFieldsForUser(ctx, nil, note.ID, run.UserID, fields); lastErr == nil {
      return nil
    }
    time.Sleep(persistBackoff * time.Duration(attempt))
  }

  // Minimal retry: just the summary text.
  if err := s.noteRepo.UpdateFieldsForUser(ctx, nil, note.ID, run.UserID, map[string]interface{}{
    "analysis_text": "Summary\n" + out.summary,
    "updated_at":    time.Now(),
  }); err == nil {
    s.log.Warn("Persisted summary only after full analysis write failed", "note_id", note.ID, "error", lastErr)
    return nil
  }
  return fmt.Errorf("Failed to persist analysis: %w", lastErr)
}

func (s *enrichmentService) heartbeat(ctx context.Context, runID uuid.UUID) {
  ticker := time.NewTicker(heartbeatEvery)
  defer ticker.Stop()
  for {
    select {
    case <-ctx.Done():
      return
    case <-ticker.C:
      if err := s.runRepo.UpdateFields(ctx, nil, runID, map[string]interface{}{
        "heartbeat_at": time.Now(),
      }); err != nil {
        s.log.Warn("Failed to heartbeat run", "run_id", runID, "error", err)
      }
    }
  }
}

func (s *enrichmentService) failRun(ctx context.Context, run *types.EnrichmentRun, cause error) {
  s.log.Error("Enrichment run failed", "run_id", run.ID, "note_id", run.NoteID, "attempt", run.Attempts, "error", cause)
  now := time.Now()
  if err := s.runRepo.UpdateFields(ctx, nil, run.ID, map[string]interface{}{
    "status":        types.EnrichmentStatusFailed,
    "error":         cause.Error(),
    "last_error_at": now,
    "updated_at":    now,
  }); err != nil {
    s.log.Error("Failed to mark run failed", "run_id", run.ID, "error", err)
  }
}
