package services

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/notelet/notelet-backend/internal/logger"
	"github.com/notelet/notelet-backend/internal/types"
)

func testLogger(t interface{ Fatalf(string, ...any) }) *logger.Logger {
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

type fakeUploadSessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*types.UploadSession
	// updateErr, when set, decides per call whether UpdateFields fails.
	updateErr func(fields map[string]interface{}) error
}

func newFakeUploadSessionRepo() *fakeUploadSessionRepo {
	return &fakeUploadSessionRepo{sessions: make(map[uuid.UUID]*types.UploadSession)}
}

func (r *fakeUploadSessionRepo) Create(ctx context.Context, tx *gorm.DB, sessions []*types.UploadSession) ([]*types.UploadSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range sessions {
		copied := *s
		r.sessions[s.ID] = &copied
	}
	return sessions, nil
}

func (r *fakeUploadSessionRepo) GetByIDForUser(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID) (*types.UploadSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.UserID != userID {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (r *fakeUploadSessionRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.UploadSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.UploadSession
	for _, s := range r.sessions {
		if s.UserID == userID {
			copied := *s
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeUploadSessionRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		if err := r.updateErr(fields); err != nil {
			return err
		}
	}
	s, ok := r.sessions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for k, v := range fields {
		switch k {
		case "status":
			s.Status = v.(string)
		case "bytes_received":
			s.BytesReceived = v.(int64)
		case "progress":
			s.Progress = v.(int)
		case "note_id":
			nid := v.(uuid.UUID)
			s.NoteID = &nid
		case "error_detail":
			s.ErrorDetail = v.(string)
		case "completed_at":
			at := v.(time.Time)
			s.CompletedAt = &at
		case "updated_at":
			s.UpdatedAt = v.(time.Time)
		}
	}
	return nil
}

func (r *fakeUploadSessionRepo) FullDeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *fakeUploadSessionRepo) get(id uuid.UUID) *types.UploadSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil
	}
	copied := *s
	return &copied
}

type fakeNoteRepo struct {
	mu        sync.Mutex
	notes     map[uuid.UUID]*types.Note
	createErr error
	// updateErrs is consumed one call at a time, allowing transient-failure
	// sequences in tests.
	updateErrs  []error
	updateCalls []map[string]interface{}
}

func newFakeNoteRepo() *fakeNoteRepo {
	return &fakeNoteRepo{notes: make(map[uuid.UUID]*types.Note)}
}

func (r *fakeNoteRepo) Create(ctx context.Context, tx *gorm.DB, notes []*types.Note) ([]*types.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, n := range notes {
		copied := *n
		r.notes[n.ID] = &copied
	}
	return notes, nil
}

func (r *fakeNoteRepo) GetByIDForUser(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID) (*types.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notes[id]
	if !ok || n.UserID != userID {
		return nil, nil
	}
	copied := *n
	return &copied, nil
}

func (r *fakeNoteRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Note
	for _, n := range r.notes {
		if n.UserID == userID {
			copied := *n
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeNoteRepo) SearchByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, query string, limit int) ([]*types.Note, error) {
	return r.GetByUserID(ctx, tx, userID)
}

func (r *fakeNoteRepo) CountByFolderID(ctx context.Context, tx *gorm.DB, folderID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, n := range r.notes {
		if n.FolderID != nil && *n.FolderID == folderID {
			count++
		}
	}
	return count, nil
}

func (r *fakeNoteRepo) UpdateFieldsForUser(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateCalls = append(r.updateCalls, fields)
	if len(r.updateErrs) > 0 {
		err := r.updateErrs[0]
		r.updateErrs = r.updateErrs[1:]
		if err != nil {
			return err
		}
	}
	n, ok := r.notes[id]
	if !ok || n.UserID != userID {
		return gorm.ErrRecordNotFound
	}
	for k, v := range fields {
		switch k {
		case "title":
			n.Title = v.(string)
		case "is_favorite":
			n.IsFavorite = v.(bool)
		case "analysis_text":
			n.AnalysisText = v.(string)
		}
	}
	return nil
}

func (r *fakeNoteRepo) SoftDeleteByIDForUser(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notes[id]
	if !ok || n.UserID != userID {
		return gorm.ErrRecordNotFound
	}
	delete(r.notes, id)
	return nil
}

func (r *fakeNoteRepo) get(id uuid.UUID) *types.Note {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notes[id]
	if !ok {
		return nil
	}
	copied := *n
	return &copied
}

func (r *fakeNoteRepo) first() *types.Note {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notes {
		copied := *n
		return &copied
	}
	return nil
}

type fakeEnrichmentRunRepo struct {
	mu      sync.Mutex
	runs    map[uuid.UUID]*types.EnrichmentRun
	updates []map[string]interface{}
}

func newFakeEnrichmentRunRepo() *fakeEnrichmentRunRepo {
	return &fakeEnrichmentRunRepo{runs: make(map[uuid.UUID]*types.EnrichmentRun)}
}

func (r *fakeEnrichmentRunRepo) Create(ctx context.Context, tx *gorm.DB, runs []*types.EnrichmentRun) ([]*types.EnrichmentRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, run := range runs {
		copied := *run
		r.runs[run.ID] = &copied
	}
	return runs, nil
}

func (r *fakeEnrichmentRunRepo) GetByNoteID(ctx context.Context, tx *gorm.DB, noteID uuid.UUID) ([]*types.EnrichmentRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.EnrichmentRun
	for _, run := range r.runs {
		if run.NoteID == noteID {
			copied := *run
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeEnrichmentRunRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	r.updates = append(r.updates, fields)
	for k, v := range fields {
		switch k {
		case "status":
			run.Status = v.(string)
		case "error":
			run.Error = v.(string)
		}
	}
	return nil
}

func (r *fakeEnrichmentRunRepo) ClaimNextRunnable(ctx context.Context, tx *gorm.DB, maxAttempts int, retryDelay time.Duration, staleRunning time.Duration) (*types.EnrichmentRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, run := range r.runs {
		if run.Status == types.EnrichmentStatusQueued {
			run.Status = types.EnrichmentStatusRunning
			run.Attempts++
			copied := *run
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeEnrichmentRunRepo) get(id uuid.UUID) *types.EnrichmentRun {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return nil
	}
	copied := *run
	return &copied
}

type fakeBucket struct {
	mu        sync.Mutex
	objects   map[string][]byte
	uploadErr error
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: make(map[string][]byte)}
}

func (b *fakeBucket) UploadFile(ctx context.Context, key string, file io.Reader) error {
	if b.uploadErr != nil {
		return b.uploadErr
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	return nil
}

func (b *fakeBucket) DownloadFile(ctx context.Context, key string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *fakeBucket) DeleteFile(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	return nil
}

func (b *fakeBucket) GetPublicURL(key string) string {
	return "https://cdn.test/" + key
}

func (b *fakeBucket) SignedURL(key string, ttl time.Duration) (string, error) {
	return "https://signed.test/" + key, nil
}

type fakeOpenAIClient struct {
	mu       sync.Mutex
	calls    []string
	generate func(system string, user string) (string, error)
}

func (c *fakeOpenAIClient) GenerateText(ctx context.Context, system string, user string) (string, error) {
	c.mu.Lock()
	c.calls = append(c.calls, system)
	c.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return c.generate(system, user)
}

func (c *fakeOpenAIClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

type enqueueRecorder struct {
	mu    sync.Mutex
	notes []uuid.UUID
}

func (e *enqueueRecorder) Enqueue(ctx context.Context, userID uuid.UUID, noteID uuid.UUID, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notes = append(e.notes, noteID)
	return nil
}

func (e *enqueueRecorder) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.notes)
}
