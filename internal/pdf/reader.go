package pdf

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/pixharvest/pixharvest/internal/domain"
	"github.com/pixharvest/pixharvest/internal/observability"
)

var conf *model.Configuration

func init() {
	conf = model.NewDefaultConfiguration()
	conf.ValidateLinks = false
	conf.Offline = true
	conf.Cmd = model.EXTRACTIMAGES
}

// Reader resolves the embedded images of a PDF document using pdfcpu.
// It implements domain.DocumentReader.
type Reader struct {
	ctx  *model.Context
	file *os.File
	log  *observability.Logger
}

// Open validates and parses the PDF at path.
func Open(path string, log *observability.Logger) (*Reader, error) {
	if err := NewValidator(log).ValidatePDFPath(path); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, domain.IOError(fmt.Sprintf("cannot open file: %s", path), err)
	}

	ctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		f.Close()
		return nil, domain.DecodeError(fmt.Sprintf("failed to parse PDF: %s", path), err)
	}

	return &Reader{ctx: ctx, file: f, log: log.WithComponent("pdf")}, nil
}

// PageCount returns the number of pages in the document.
func (r *Reader) PageCount() int {
	return r.ctx.PageCount
}

// PageImages resolves the embedded images of the given 1-based page.
// pdfcpu keys the result by object number; ordering by object number keeps
// the per-page image indices stable across runs.
func (r *Reader) PageImages(pageNr int) ([]domain.PageImage, error) {
	images, err := pdfcpu.ExtractPageImages(r.ctx, pageNr, false)
	if err != nil {
		return nil, domain.DecodeError(fmt.Sprintf("failed to extract images of page %d", pageNr), err)
	}

	objNrs := make([]int, 0, len(images))
	for objNr := range images {
		objNrs = append(objNrs, objNr)
	}
	sort.Ints(objNrs)

	refs := make([]domain.PageImage, 0, len(objNrs))
	for i, objNr := range objNrs {
		img := images[objNr]

		data, err := io.ReadAll(img)
		if err != nil {
			return nil, domain.IOError(fmt.Sprintf("failed to read image stream %d on page %d", objNr, pageNr), err)
		}

		r.log.Debug().
			Int("page", pageNr).
			Int("obj", objNr).
			Str("type", img.FileType).
			Int("bytes", len(data)).
			Msg("resolved embedded image")

		refs = append(refs, domain.PageImage{
			PageNr:   pageNr,
			Index:    i + 1,
			ObjNr:    objNr,
			Name:     img.Name,
			FileType: img.FileType,
			Data:     data,
		})
	}

	return refs, nil
}

// Close releases the underlying document.
func (r *Reader) Close() error {
	r.ctx = nil
	return r.file.Close()
}
