// Package upload implements the skip-existing upload loop.
package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pixharvest/pixharvest/internal/domain"
	"github.com/pixharvest/pixharvest/internal/observability"
)

const milestoneInterval = 20

// Coordinator uploads local files into a remote folder, skipping files whose
// basename is already present. The remote listing is snapshotted once per
// run and never refreshed, so concurrent external additions go unnoticed.
type Coordinator struct {
	storage domain.Storage
	log     *observability.Logger
	out     io.Writer

	// Offered is called after each considered file, uploaded or skipped.
	// Used by the CLI to drive a progress bar.
	Offered func(done int)
}

// NewCoordinator creates a new upload coordinator. Progress lines are
// written to out (os.Stdout when nil).
func NewCoordinator(storage domain.Storage, log *observability.Logger, out io.Writer) *Coordinator {
	if out == nil {
		out = os.Stdout
	}
	return &Coordinator{
		storage: storage,
		log:     log.WithComponent("upload"),
		out:     out,
	}
}

// Run uploads the given paths in order into folderID, up to limit uploads
// (0 = unlimited). Individual upload failures abort the run; files uploaded
// before the failure stay in place and a rerun skips them.
func (c *Coordinator) Run(ctx context.Context, paths []string, folderID string, limit int) (*domain.UploadResult, error) {
	// Storage implementations wrap their own listing errors.
	remote, err := c.storage.ListFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}
	existing := domain.BasenameSet(remote)

	c.log.Info().
		Str("folder_id", folderID).
		Int("remote_files", len(existing)).
		Int("offered", len(paths)).
		Msg("starting upload")

	result := &domain.UploadResult{}

	for done, path := range paths {
		if limit > 0 && result.Uploaded >= limit {
			break
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		name := filepath.Base(path)
		if existing[name] {
			result.Skipped++
			fmt.Fprintf(c.out, "Skipping (exists): %s\n", name)
			c.notify(done + 1)
			continue
		}

		if err := c.storage.Upload(ctx, path, folderID); err != nil {
			return result, domain.StorageError(fmt.Sprintf("failed to upload %s", name), err)
		}

		result.Uploaded++
		c.log.Debug().Str("name", name).Msg("uploaded")

		if result.Uploaded%milestoneInterval == 0 {
			fmt.Fprintf(c.out, "Uploaded %d...\n", result.Uploaded)
		}
		c.notify(done + 1)
	}

	c.log.Info().
		Int("uploaded", result.Uploaded).
		Int("skipped", result.Skipped).
		Msg("upload complete")

	return result, nil
}

func (c *Coordinator) notify(done int) {
	if c.Offered != nil {
		c.Offered(done)
	}
}
