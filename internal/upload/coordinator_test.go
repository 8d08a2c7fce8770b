package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixharvest/pixharvest/internal/domain"
	"github.com/pixharvest/pixharvest/internal/observability"
)

// fakeStorage keeps remote state in memory and records uploads.
type fakeStorage struct {
	remote   []domain.RemoteFile
	uploaded []string
	failOn   string // basename that triggers an upload error
	listErr  error
}

func (f *fakeStorage) ListFolder(_ context.Context, _ string) ([]domain.RemoteFile, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	// Return a copy so the coordinator's snapshot stays stale even when
	// uploads mutate remote state mid-run.
	out := make([]domain.RemoteFile, len(f.remote))
	copy(out, f.remote)
	return out, nil
}

func (f *fakeStorage) Upload(_ context.Context, localPath, _ string) error {
	name := filepath.Base(localPath)
	if name == f.failOn {
		return errors.New("quota exceeded")
	}
	f.uploaded = append(f.uploaded, name)
	f.remote = append(f.remote, domain.RemoteFile{Name: name})
	return nil
}

func paths(names ...string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = filepath.Join("/tmp/extracted", n)
	}
	return out
}

func newTestCoordinator(storage domain.Storage, out *bytes.Buffer) *Coordinator {
	return NewCoordinator(storage, observability.Nop(), out)
}

func TestRun_SkipsExistingBasenames(t *testing.T) {
	var out bytes.Buffer
	storage := &fakeStorage{remote: []domain.RemoteFile{
		{Name: "page1_img1.png"},
		{Name: "page2_img1.png"},
	}}

	result, err := newTestCoordinator(storage, &out).Run(context.Background(),
		paths("page1_img1.png", "page1_img2.png", "page2_img1.png"), "folder-1", 0)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Uploaded)
	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, []string{"page1_img2.png"}, storage.uploaded)
	assert.Contains(t, out.String(), "Skipping (exists): page1_img1.png")
	assert.Contains(t, out.String(), "Skipping (exists): page2_img1.png")
}

func TestRun_RerunIsIdempotent(t *testing.T) {
	storage := &fakeStorage{}
	files := paths("page1_img1.png", "page1_img2.png")

	first, err := newTestCoordinator(storage, &bytes.Buffer{}).Run(context.Background(), files, "folder-1", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Uploaded)

	second, err := newTestCoordinator(storage, &bytes.Buffer{}).Run(context.Background(), files, "folder-1", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Uploaded)
	assert.Equal(t, 2, second.Skipped)
	assert.Len(t, storage.uploaded, 2)
}

func TestRun_CapStopsUploads(t *testing.T) {
	storage := &fakeStorage{}

	result, err := newTestCoordinator(storage, &bytes.Buffer{}).Run(context.Background(),
		paths("a.png", "b.png", "c.png", "d.png"), "folder-1", 2)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Uploaded)
	assert.Equal(t, []string{"a.png", "b.png"}, storage.uploaded)
}

func TestRun_SkipsDoNotCountTowardCap(t *testing.T) {
	storage := &fakeStorage{remote: []domain.RemoteFile{{Name: "a.png"}}}

	result, err := newTestCoordinator(storage, &bytes.Buffer{}).Run(context.Background(),
		paths("a.png", "b.png", "c.png"), "folder-1", 2)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Uploaded)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, []string{"b.png", "c.png"}, storage.uploaded)
}

func TestRun_MilestoneEveryTwenty(t *testing.T) {
	var out bytes.Buffer
	storage := &fakeStorage{}

	var files []string
	for i := 1; i <= 45; i++ {
		files = append(files, filepath.Join("/tmp/extracted", fmt.Sprintf("img%03d.png", i)))
	}

	result, err := newTestCoordinator(storage, &out).Run(context.Background(), files, "folder-1", 0)
	require.NoError(t, err)

	assert.Equal(t, 45, result.Uploaded)
	assert.Contains(t, out.String(), "Uploaded 20...")
	assert.Contains(t, out.String(), "Uploaded 40...")
	assert.NotContains(t, out.String(), "Uploaded 45...")
}

func TestRun_UploadErrorAborts(t *testing.T) {
	storage := &fakeStorage{failOn: "b.png"}

	result, err := newTestCoordinator(storage, &bytes.Buffer{}).Run(context.Background(),
		paths("a.png", "b.png", "c.png"), "folder-1", 0)
	require.Error(t, err)

	var derr *domain.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ErrorTypeStorage, derr.Type)

	// Files uploaded before the failure stay in place.
	assert.Equal(t, 1, result.Uploaded)
	assert.Equal(t, []string{"a.png"}, storage.uploaded)
}

func TestRun_ListErrorFailsFast(t *testing.T) {
	storage := &fakeStorage{listErr: errors.New("permission denied")}

	_, err := newTestCoordinator(storage, &bytes.Buffer{}).Run(context.Background(),
		paths("a.png"), "folder-1", 0)
	require.Error(t, err)
	assert.Empty(t, storage.uploaded)
}

func TestRun_ListErrorNotRewrapped(t *testing.T) {
	// Adapters hand over already-wrapped listing errors; the coordinator
	// must pass them through instead of stacking another wrapper.
	storage := &fakeStorage{
		listErr: domain.StorageError("failed to list folder folder-1", errors.New("permission denied")),
	}

	_, err := newTestCoordinator(storage, &bytes.Buffer{}).Run(context.Background(),
		paths("a.png"), "folder-1", 0)
	require.Error(t, err)

	var derr *domain.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ErrorTypeStorage, derr.Type)
	assert.Equal(t, 1, strings.Count(err.Error(), "failed to list folder"))
}

func TestRun_OfferedCallback(t *testing.T) {
	storage := &fakeStorage{remote: []domain.RemoteFile{{Name: "a.png"}}}
	coord := newTestCoordinator(storage, &bytes.Buffer{})

	var seen []int
	coord.Offered = func(done int) { seen = append(seen, done) }

	_, err := coord.Run(context.Background(), paths("a.png", "b.png"), "folder-1", 0)
	require.NoError(t, err)

	// Called for skipped and uploaded files alike.
	assert.Equal(t, []int{1, 2}, seen)
}

func TestRun_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	storage := &fakeStorage{}
	_, err := newTestCoordinator(storage, &bytes.Buffer{}).Run(ctx, paths("a.png"), "folder-1", 0)
	assert.ErrorIs(t, err, context.Canceled)
}
