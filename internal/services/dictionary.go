package services

import (
  "context"
  "fmt"
  "strings"
  "time"

  "github.com/google/uuid"

  "github.com/notelet/notelet-backend/internal/logger"
  "github.com/notelet/notelet-backend/internal/repos"
  "github.com/notelet/notelet-backend/internal/types"
)

type DictionaryService interface {
  Add(ctx context.Context, userID uuid.UUID, word string, meaning string) (*types.DictionaryEntry, error)
  Lookup(ctx context.Context, userID uuid.UUID, word string) (*types.DictionaryEntry, error)
  List(ctx context.Context, userID uuid.UUID) ([]*types.DictionaryEntry, error)
  Search(ctx context.Context, userID uuid.UUID, query string, limit int) ([]*types.DictionaryEntry, error)
  Update(ctx context.Context, userID uuid.UUID, entryID uuid.UUID, meaning string) error
  Delete(ctx context.Context, userID uuid.UUID, entryID uuid.UUID) error
}

type dictionaryService struct {
  log    *logger.Logger
  repo   repos.DictionaryRepo
  client OpenAIClient
}

const dictionarySystemPrompt = "You are a dictionary. Define the given word or phrase in one or two plain sentences suitable for a student. Respond with the definition only."

func NewDictionaryService(baseLog *logger.Logger, repo repos.DictionaryRepo, client OpenAIClient) DictionaryService {
  serviceLog := baseLog.With("service", "DictionaryService")
  return &dictionaryService{log: serviceLog, repo: repo, client: client}
}

func (s *dictionaryService) Add(ctx context.Context, userID uuid.UUID, word string, meaning string) (*types.DictionaryEntry, error) {
  word = strings.TrimSpace(word)
  if word == "" {
    return nil, fmt.Errorf("%w: word is required", ErrValidation)
  }
  meaning = strings.TrimSpace(meaning)
  if meaning == "" {
    return nil, fmt.Errorf("%w: meaning is required", ErrValidation)
  }

  now := time.Now()
  entry := &types.DictionaryEntry{
    ID:        uuid.New(),
    UserID:    userID,
    Word:      word,
    Meaning:   meaning,
    CreatedAt: now,
    UpdatedAt: now,
  }
  if _, err := s.repo.Create(ctx, nil, []*types.DictionaryEntry{entry}); err != nil {
    return nil, fmt.Errorf("Failed to create dictionary entry: %w", err)
  }
  return entry, nil
}

// Lookup asks the model for a definition and saves the result, so repeated
// lookups of the same word hit the user's own dictionary first.
func (s *dictionaryService) Lookup(ctx context.Context, userID uuid.UUID, word string) (*types.DictionaryEntry, error) {
  word = strings.TrimSpace(word)
  if word == "" {
    return nil, fmt.Errorf("%w: word is required", ErrValidation)
  }

  existing, err := s.repo.SearchByUserID(ctx, nil, userID, word, 5)
  if err != nil {
    return nil, fmt.Errorf("Failed to search dictionary: %w", err)
  }
  for _, e := range existing {
    if strings.EqualFold(e.Word, word) {
      return e, nil
    }
  }

  lctx, cancel := context.WithTimeout(ctx, 30*time.Second)
  defer cancel()
  meaning, err := s.client.GenerateText(lctx, dictionarySystemPrompt, word)
  if err != nil {
    return nil, fmt.Errorf("Failed to generate definition: %w", err)
  }
  meaning = strings.TrimSpace(meaning)
  if meaning == "" {
    return nil, fmt.Errorf("Failed to generate definition: empty response")
  }

  return s.Add(ctx, userID, word, meaning)
}

func (s *dictionaryService) List(ctx context.Context, userID uuid.UUID) ([]*types.DictionaryEntry, error) {
  entries, err := s.repo.GetByUserID(ctx, nil, userID)
  if err != nil {
    return nil, fmt.Errorf("Failed to list dictionary entries: %w", err)
  }
  return entries, nil
}

func (s *dictionaryService) Search(ctx context.Context, userID uuid.UUID, query string, limit int) ([]*types.DictionaryEntry, error) {
  query = strings.TrimSpace(query)
  if query == "" {
    return nil, fmt.Errorf("%w: search query is required", ErrValidation)
  }
  entries, err := s.repo.SearchByUserID(ctx, nil, userID, query, limit)
  if err != nil {
    return nil, fmt.Errorf("Failed to search dictionary: %w", err)
  }
  return entries, nil
}

func (s *dictionaryService) Update(ctx context.Context, userID uuid.UUID, entryID uuid.UUID, meaning string) error {
  meaning = strings.TrimSpace(meaning)
  if meaning == "" {
    return fmt.Errorf("%w: meaning is required", ErrValidation)
  }
  err := s.repo.UpdateFieldsForUser(ctx, nil, entryID, userID, map[string]interface{}{
    "meaning":    meaning,
    "updated_at": time.Now(),
  })
  if err != nil {
    if isNotFoundErr(err) {
      return fmt.Errorf("%w: dictionary entry %s", ErrNotFound, entryID)
    }
    return fmt.Errorf("Failed to update dictionary entry: %w", err)
  }
  return nil
}

func (s *dictionaryService) Delete(ctx context.Context, userID uuid.UUID, entryID uuid.UUID) error {
  if err := s.repo.FullDeleteByIDForUser(ctx, nil, entryID, userID); err != nil {
    return fmt.Errorf("Failed to delete dictionary entry: %w", err)
  }
  return nil
}
