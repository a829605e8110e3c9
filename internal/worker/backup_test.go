package worker

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

type fakeBackupStore struct {
	err   error
	paths []string
}

func (f *fakeBackupStore) BackupTo(ctx context.Context, path string) error {
	f.paths = append(f.paths, path)
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(path, []byte("backup"), 0600)
}

type fakeUploader struct {
	err   error
	paths []string
}

func (f *fakeUploader) Upload(ctx context.Context, filePath string) error {
	f.paths = append(f.paths, filePath)
	return f.err
}

func TestBackupWorker_RunBackup(t *testing.T) {
	store := &fakeBackupStore{}
	uploader := &fakeUploader{}
	w := NewBackupWorker(store, uploader, time.Hour)

	w.runBackup(context.Background())

	if len(store.paths) != 1 {
		t.Fatalf("BackupTo calls = %d, want 1", len(store.paths))
	}
	if len(uploader.paths) != 1 || uploader.paths[0] != store.paths[0] {
		t.Errorf("uploaded %v, want the generated file %v", uploader.paths, store.paths)
	}
	// The staging file is removed after upload
	if _, err := os.Stat(store.paths[0]); !os.IsNotExist(err) {
		t.Errorf("staging file %s not cleaned up: %v", store.paths[0], err)
	}
}

func TestBackupWorker_GenerationFailureSkipsUpload(t *testing.T) {
	store := &fakeBackupStore{err: errors.New("disk full")}
	uploader := &fakeUploader{}
	w := NewBackupWorker(store, uploader, time.Hour)

	w.runBackup(context.Background())

	if len(uploader.paths) != 0 {
		t.Errorf("upload ran after failed generation: %v", uploader.paths)
	}
}

func TestBackupWorker_UploadFailureDoesNotPanic(t *testing.T) {
	store := &fakeBackupStore{}
	uploader := &fakeUploader{err: errors.New("network down")}
	w := NewBackupWorker(store, uploader, time.Hour)

	w.runBackup(context.Background())

	if len(uploader.paths) != 1 {
		t.Errorf("upload calls = %d, want 1", len(uploader.paths))
	}
}

func TestBackupWorker_StopsOnCancel(t *testing.T) {
	store := &fakeBackupStore{}
	w := NewBackupWorker(store, &fakeUploader{}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
