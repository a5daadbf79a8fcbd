package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/notelet/notelet-backend/internal/types"
)

type fakeFolderRepo struct {
	mu      sync.Mutex
	folders map[uuid.UUID]*types.Folder
}

func newFakeFolderRepo() *fakeFolderRepo {
	return &fakeFolderRepo{folders: make(map[uuid.UUID]*types.Folder)}
}

func (r *fakeFolderRepo) Create(ctx context.Context, tx *gorm.DB, folders []*types.Folder) ([]*types.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range folders {
		copied := *f
		r.folders[f.ID] = &copied
	}
	return folders, nil
}

func (r *fakeFolderRepo) GetByIDForUser(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID) (*types.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.folders[id]
	if !ok || f.UserID != userID {
		return nil, nil
	}
	copied := *f
	return &copied, nil
}

func (r *fakeFolderRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Folder
	for _, f := range r.folders {
		if f.UserID == userID {
			copied := *f
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeFolderRepo) UpdateFieldsForUser(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.folders[id]
	if !ok || f.UserID != userID {
		return gorm.ErrRecordNotFound
	}
	if name, ok := fields["name"].(string); ok {
		f.Name = name
	}
	return nil
}

func (r *fakeFolderRepo) FullDeleteByIDForUser(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.folders, id)
	return nil
}

func TestFolder_DeleteBlockedWhileNotesRemain(t *testing.T) {
	log := testLogger(t)
	folders := newFakeFolderRepo()
	notes := newFakeNoteRepo()
	svc := NewFolderService(log, folders, notes)
	ctx := context.Background()
	userID := uuid.New()

	folder, err := svc.Create(ctx, userID, "Biology", "#00ff00")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	note := &types.Note{ID: uuid.New(), UserID: userID, Title: "cells", FolderID: &folder.ID}
	if _, err := notes.Create(ctx, nil, []*types.Note{note}); err != nil {
		t.Fatalf("seed note: %v", err)
	}

	if err := svc.Delete(ctx, userID, folder.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("delete with notes: want ErrInvalidState got %v", err)
	}

	if err := notes.SoftDeleteByIDForUser(ctx, nil, note.ID, userID); err != nil {
		t.Fatalf("remove note: %v", err)
	}
	if err := svc.Delete(ctx, userID, folder.ID); err != nil {
		t.Fatalf("delete empty folder: %v", err)
	}
}

func TestFolder_CreateValidation(t *testing.T) {
	svc := NewFolderService(testLogger(t), newFakeFolderRepo(), newFakeNoteRepo())
	if _, err := svc.Create(context.Background(), uuid.New(), "  ", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("blank name: want ErrValidation got %v", err)
	}
}

func TestFolder_DeleteUnknown(t *testing.T) {
	svc := NewFolderService(testLogger(t), newFakeFolderRepo(), newFakeNoteRepo())
	if err := svc.Delete(context.Background(), uuid.New(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown folder: want ErrNotFound got %v", err)
	}
}
