package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/notelet/notelet-backend/internal/types"
)

func newNoteServiceForTest(t *testing.T) (NoteService, *fakeNoteRepo, *fakeBucket) {
	t.Helper()
	notes := newFakeNoteRepo()
	bucket := newFakeBucket()
	svc := NewNoteService(testLogger(t), notes, newFakeFolderRepo(), bucket, &enqueueRecorder{})
	return svc, notes, bucket
}

func TestNote_DownloadURL(t *testing.T) {
	svc, notes, _ := newNoteServiceForTest(t)
	ctx := context.Background()
	userID := uuid.New()

	now := time.Now()
	note := &types.Note{
		ID:         uuid.New(),
		UserID:     userID,
		Title:      "doc.pdf",
		StorageKey: "uploads/abc/doc.pdf",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := notes.Create(ctx, nil, []*types.Note{note}); err != nil {
		t.Fatalf("seed note: %v", err)
	}

	url, err := svc.DownloadURL(ctx, userID, note.ID)
	if err != nil {
		t.Fatalf("DownloadURL: %v", err)
	}
	if !strings.Contains(url, note.StorageKey) {
		t.Fatalf("signed url missing storage key: %q", url)
	}

	if _, err := svc.DownloadURL(ctx, uuid.New(), note.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other user's url: want ErrNotFound got %v", err)
	}
	if _, err := svc.DownloadURL(ctx, userID, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown note url: want ErrNotFound got %v", err)
	}
}
