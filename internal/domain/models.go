package domain

import (
	"fmt"
	"path/filepath"
)

// PageImage is one embedded raster image referenced by a page. Data holds
// the image stream as handed over by the document reader, already unwrapped
// from PDF stream filters and re-encoded in a standard container (PNG, JPEG
// or TIFF depending on the source color space).
type PageImage struct {
	PageNr   int    // 1-based page number
	Index    int    // 1-based position within the page's image listing
	ObjNr    int    // PDF cross-reference number of the image object
	Name     string // resource name inside the page dictionary
	FileType string // container format of Data ("png", "jpg", "tiff", ...)
	Data     []byte
}

// FileName returns the output name for this image. Skipped images still
// consume their position, so names stay aligned with the page listing.
func (p PageImage) FileName() string {
	return fmt.Sprintf("page%d_img%d.png", p.PageNr, p.Index)
}

// ExtractedImage is a saved image file that passed the size filter.
type ExtractedImage struct {
	Path   string
	Width  int
	Height int
}

// ExtractionResult summarizes one extraction run.
type ExtractionResult struct {
	Images  []ExtractedImage
	Skipped int // undersized or undecodable images
}

// Paths returns the saved file paths in extraction order.
func (r *ExtractionResult) Paths() []string {
	paths := make([]string, len(r.Images))
	for i, img := range r.Images {
		paths[i] = img.Path
	}
	return paths
}

// RemoteFile is one entry in a remote folder listing.
type RemoteFile struct {
	ID   string
	Name string
	Size int64
}

// UploadResult summarizes one upload run.
type UploadResult struct {
	Uploaded int
	Skipped  int
}

// BasenameSet builds a lookup of basenames from a remote listing.
func BasenameSet(files []RemoteFile) map[string]bool {
	set := make(map[string]bool, len(files))
	for _, f := range files {
		set[filepath.Base(f.Name)] = true
	}
	return set
}
