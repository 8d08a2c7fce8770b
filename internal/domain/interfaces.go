package domain

import "context"

// DocumentReader exposes the embedded images of an open PDF document.
type DocumentReader interface {
	// PageCount returns the number of pages in the document.
	PageCount() int

	// PageImages resolves the embedded images of the given 1-based page.
	PageImages(pageNr int) ([]PageImage, error)

	// Close releases the underlying document.
	Close() error
}

// Storage captures the remote folder operations the upload phase needs.
// Implementations wrap a concrete cloud SDK so the coordinator can be
// tested without network access.
type Storage interface {
	// ListFolder returns the current contents of the remote folder.
	ListFolder(ctx context.Context, folderID string) ([]RemoteFile, error)

	// Upload sends a local file into the remote folder.
	Upload(ctx context.Context, localPath, folderID string) error
}
