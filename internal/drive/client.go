// Package drive implements the storage port against the Google Drive API.
package drive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/pixharvest/pixharvest/internal/config"
	"github.com/pixharvest/pixharvest/internal/domain"
	"github.com/pixharvest/pixharvest/internal/observability"
)

// Client wraps the Drive v3 service. It implements domain.Storage.
type Client struct {
	svc *drive.Service
	log *observability.Logger
}

// NewClient creates a Drive client from service account credentials.
// Missing credentials are a fatal configuration error, surfaced before any
// extraction or upload work starts.
func NewClient(ctx context.Context, cfg config.DriveConfig, log *observability.Logger) (*Client, error) {
	if cfg.CredentialsFile == "" {
		return nil, domain.ConfigError(
			"Google Drive credentials not configured; set GOOGLE_APPLICATION_CREDENTIALS or drive.credentials_file", nil)
	}

	svc, err := drive.NewService(ctx,
		option.WithCredentialsFile(cfg.CredentialsFile),
		option.WithScopes(drive.DriveScope),
	)
	if err != nil {
		return nil, domain.ConfigError("failed to initialize Google Drive client", err)
	}

	return &Client{svc: svc, log: log.WithComponent("drive")}, nil
}

// ListFolder returns all non-trashed files directly inside folderID,
// paging through the listing until exhausted.
func (c *Client) ListFolder(ctx context.Context, folderID string) ([]domain.RemoteFile, error) {
	query := fmt.Sprintf("'%s' in parents and trashed = false", folderID)

	var files []domain.RemoteFile
	pageToken := ""

	for {
		call := c.svc.Files.List().
			Context(ctx).
			Q(query).
			Fields("nextPageToken, files(id, name, size)").
			PageSize(1000)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		res, err := call.Do()
		if err != nil {
			return nil, domain.StorageError(fmt.Sprintf("failed to list folder %s", folderID), err)
		}

		for _, f := range res.Files {
			files = append(files, domain.RemoteFile{ID: f.Id, Name: f.Name, Size: f.Size})
		}

		if res.NextPageToken == "" {
			break
		}
		pageToken = res.NextPageToken
	}

	c.log.Debug().Str("folder_id", folderID).Int("files", len(files)).Msg("listed remote folder")

	return files, nil
}

// Upload sends the local file into folderID under its basename.
func (c *Client) Upload(ctx context.Context, localPath, folderID string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return domain.IOError(fmt.Sprintf("cannot open file: %s", localPath), err)
	}
	defer file.Close()

	meta := &drive.File{
		Name:    filepath.Base(localPath),
		Parents: []string{folderID},
	}

	_, err = c.svc.Files.Create(meta).
		Context(ctx).
		Media(file, googleapi.ContentType("image/png")).
		Do()
	return err
}
