package services

import (
  "context"
  "encoding/json"
  "fmt"
  "strings"
  "time"

  "github.com/google/uuid"
  "gorm.io/datatypes"

  "github.com/notelet/notelet-backend/internal/logger"
  "github.com/notelet/notelet-backend/internal/repos"
  "github.com/notelet/notelet-backend/internal/types"
)

const (
  mcqGenerateTimeout  = 90 * time.Second
  mcqDefaultQuestions = 10
  mcqMaxQuestions     = 25
  mcqMinSourceChars   = 50
)

type MCQQuestion struct {
  Question string   `json:"question"`
  Options  []string `json:"options"`
  Answer   int      `json:"answer"`
}

type MCQService interface {
  Generate(ctx context.Context, userID uuid.UUID, sourceText string, difficulty string, questionCount int) (*types.MCQSet, error)
  Get(ctx context.Context, userID uuid.UUID, setID uuid.UUID) (*types.MCQSet, error)
  List(ctx context.Context, userID uuid.UUID) ([]*types.MCQSet, error)
  Delete(ctx context.Context, userID uuid.UUID, setID uuid.UUID) error
}

type mcqService struct {
  log    *logger.Logger
  repo   repos.MCQSetRepo
  client OpenAIClient
}

func NewMCQService(baseLog *logger.Logger, repo repos.MCQSetRepo, client OpenAIClient) MCQService {
  serviceLog := baseLog.With("service", "MCQService")
  return &mcqService{log: serviceLog, repo: repo, client: client}
}

func mcqSystemPrompt(difficulty string, count int) string {
  return fmt.Sprintf(
    "You are a quiz writer. From the provided text, write %d %s-level multiple choice questions. "+
      "Respond ONLY with a JSON array of objects of the form "+
      "{\"question\": string, \"options\": [string, string, string, string], \"answer\": int} "+
      "where answer is the zero-based index of the correct option. No prose, no markdown fences.",
    count, difficulty)
}

func (s *mcqService) Generate(ctx context.Context, userID uuid.UUID, sourceText string, difficulty string, questionCount int) (*types.MCQSet, error) {
  sourceText = strings.TrimSpace(sourceText)
  if len(sourceText) < mcqMinSourceChars {
    return nil, fmt.Errorf("%w: source text is too short for question generation", ErrValidation)
  }
  switch difficulty {
  case "beginner", "intermediate", "advanced":
  case "":
    difficulty = "intermediate"
  default:
    return nil, fmt.Errorf("%w: unknown difficulty %q", ErrValidation, difficulty)
  }
  if questionCount <= 0 {
    questionCount = mcqDefaultQuestions
  }
  if questionCount > mcqMaxQuestions {
    questionCount = mcqMaxQuestions
  }

  gctx, cancel := context.WithTimeout(ctx, mcqGenerateTimeout)
  defer cancel()
  raw, err := s.client.GenerateText(gctx, mcqSystemPrompt(difficulty, questionCount), sourceText)
  if err != nil {
    return nil, fmt.Errorf("Failed to generate questions: %w", err)
  }

  questions, err := decodeMCQQuestions(raw, questionCount)
  if err != nil {
    return nil, fmt.Errorf("Failed to decode questions: %w", err)
  }
  questionsJSON, err := json.Marshal(questions)
  if err != nil {
    return nil, fmt.Errorf("Failed to encode questions: %w", err)
  }

  now := time.Now()
  set := &types.MCQSet{
    ID:            uuid.New(),
    UserID:        userID,
    SourceText:    sourceText,
    Difficulty:    difficulty,
    QuestionCount: len(questions),
    Questions:     datatypes.JSON(questionsJSON),
    CreatedAt:     now,
    UpdatedAt:     now,
  }
  if _, err := s.repo.Create(ctx, nil, []*types.MCQSet{set}); err != nil {
    return nil, fmt.Errorf("Failed to create question set: %w", err)
  }
  return set, nil
}

// decodeMCQQuestions salvages the first JSON array from the model output and
// keeps only well-formed questions.
func decodeMCQQuestions(raw string, max int) ([]MCQQuestion, error) {
  arr, err := decodeJSONArray(raw)
  if err != nil {
    return nil, err
  }

  out := make([]MCQQuestion, 0, len(arr))
  for _, item := range arr {
    m, ok := item.(map[string]any)
    if !ok {
      continue
    }
    q, _ := m["question"].(string)
    if strings.TrimSpace(q) == "" {
      continue
    }
    rawOpts, _ := m["options"].([]any)
    opts := make([]string, 0, len(rawOpts))
    for _, o := range rawOpts {
      if str, ok := o.(string); ok && strings.TrimSpace(str) != "" {
        opts = append(opts, str)
      }
    }
    ansF, _ := m["answer"].(float64)
    ans := int(ansF)
    if len(opts) < 2 || ans < 0 || ans >= len(opts) {
      continue
    }
    out = append(out, MCQQuestion{Question: q, Options: opts, Answer: ans})
    if len(out) == max {
      break
    }
  }
  if len(out) == 0 {
    return nil, fmt.Errorf("no usable questions in model output")
  }
  return out, nil
}

func (s *mcqService) Get(ctx context.Context, userID uuid.UUID, setID uuid.UUID) (*types.MCQSet, error) {
  set, err := s.repo.GetByIDForUser(ctx, nil, setID, userID)
  if err != nil {
    return nil, fmt.Errorf("Failed to load question set: %w", err)
  }
  if set == nil {
    return nil, fmt.Errorf("%w: question set %s", ErrNotFound, setID)
  }
  return set, nil
}

func (s *mcqService) List(ctx context.Context, userID uuid.UUID) ([]*types.MCQSet, error) {
  sets, err := s.repo.GetByUserID(ctx, nil, userID)
  if err != nil {
    return nil, fmt.Errorf("Failed to list question sets: %w", err)
  }
  return sets, nil
}

func (s *mcqService) Delete(ctx context.Context, userID uuid.UUID, setID uuid.UUID) error {
  if err := s.repo.FullDeleteByIDForUser(ctx, nil, setID, userID); err != nil {
    return fmt.Errorf("Failed to delete question set: %w", err)
  }
  return nil
}
