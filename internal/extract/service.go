// Package extract implements the image filtering and extraction loop.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"os"
	"path/filepath"

	// Embedded image streams arrive as PNG, JPEG or TIFF containers. The
	// TIFF decoder must be hhrutter's fork: pdfcpu materializes
	// flate-encoded DeviceCMYK images as CMYK TIFFs, which the x/image
	// decoder rejects as an unsupported color model.
	_ "image/jpeg"

	_ "github.com/hhrutter/tiff"

	"github.com/pixharvest/pixharvest/internal/domain"
	"github.com/pixharvest/pixharvest/internal/observability"
)

// Options configures an extraction run.
type Options struct {
	OutputDir string
	MinSize   int // minimum width AND height in pixels
	Limit     int // maximum number of saved images, 0 = unlimited
}

// Service traverses a document and saves qualifying embedded images as PNG.
type Service struct {
	reader domain.DocumentReader
	log    *observability.Logger
	out    io.Writer
}

// NewService creates a new extraction service. Progress lines are written
// to out (os.Stdout when nil).
func NewService(reader domain.DocumentReader, log *observability.Logger, out io.Writer) *Service {
	if out == nil {
		out = os.Stdout
	}
	return &Service{
		reader: reader,
		log:    log.WithComponent("extract"),
		out:    out,
	}
}

// Run walks the document in page order and saves every embedded image that
// meets the minimum size, stopping once the limit is reached. Undersized and
// undecodable images are skipped without counting toward the limit.
func (s *Service) Run(ctx context.Context, opts Options) (*domain.ExtractionResult, error) {
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, domain.IOError(fmt.Sprintf("failed to create output directory: %s", opts.OutputDir), err)
	}

	result := &domain.ExtractionResult{}
	pageCount := s.reader.PageCount()

	s.log.Info().Int("pages", pageCount).Msg("starting extraction")

	for pageNr := 1; pageNr <= pageCount; pageNr++ {
		if opts.Limit > 0 && len(result.Images) >= opts.Limit {
			break
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		refs, err := s.reader.PageImages(pageNr)
		if err != nil {
			return nil, err
		}

		for _, ref := range refs {
			if opts.Limit > 0 && len(result.Images) >= opts.Limit {
				break
			}

			saved, err := s.save(ref, opts)
			if err != nil {
				return nil, err
			}
			if saved == nil {
				result.Skipped++
				continue
			}

			result.Images = append(result.Images, *saved)
			fmt.Fprintf(s.out, "Extracted: %s (%dx%d)\n", saved.Path, saved.Width, saved.Height)
		}
	}

	s.log.Info().
		Int("extracted", len(result.Images)).
		Int("skipped", result.Skipped).
		Msg("extraction complete")

	return result, nil
}

// save decodes one embedded image, applies the size filter and writes it as
// PNG. It returns nil without error when the image is skipped.
func (s *Service) save(ref domain.PageImage, opts Options) (*domain.ExtractedImage, error) {
	img, _, err := image.Decode(bytes.NewReader(ref.Data))
	if err != nil {
		// JPX and other exotic streams have no Go decoder. Treat like any
		// other per-item skip condition rather than aborting the run.
		s.log.Warn().
			Int("page", ref.PageNr).
			Int("obj", ref.ObjNr).
			Str("type", ref.FileType).
			Err(err).
			Msg("cannot decode embedded image, skipping")
		return nil, nil
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if width < opts.MinSize || height < opts.MinSize {
		s.log.Debug().
			Int("page", ref.PageNr).
			Int("obj", ref.ObjNr).
			Int("width", width).
			Int("height", height).
			Msg("image below minimum size, skipping")
		return nil, nil
	}

	// PNG has no CMYK representation. Anything with more than three color
	// channels net of alpha gets redrawn into RGBA first.
	if needsRGBConversion(img) {
		img = toRGBA(img)
	}

	path := filepath.Join(opts.OutputDir, ref.FileName())
	file, err := os.Create(path)
	if err != nil {
		return nil, domain.IOError(fmt.Sprintf("failed to create output file: %s", path), err)
	}

	err = png.Encode(file, img)
	file.Close()
	if err != nil {
		return nil, domain.ExtractionError(fmt.Sprintf("failed to encode %s as PNG", ref.FileName()), err)
	}

	return &domain.ExtractedImage{Path: path, Width: width, Height: height}, nil
}

// needsRGBConversion reports whether the decoded image uses a color space
// with more than three color channels net of alpha.
func needsRGBConversion(img image.Image) bool {
	return img.ColorModel() == color.CMYKModel
}

// toRGBA redraws an image into an RGBA buffer.
func toRGBA(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba
}
