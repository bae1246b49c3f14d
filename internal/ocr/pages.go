package ocr

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func init() {
	// pdfcpu would otherwise install a config dir under the user's home.
	api.DisableConfigDir()
}

func relaxedConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// CountPages returns the page count of the PDF stored at path.
func CountPages(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return pageCount(f)
}

// CountPagesBytes returns the page count of an in-memory PDF.
func CountPagesBytes(data []byte) (int, error) {
	return pageCount(bytes.NewReader(data))
}

func pageCount(rs io.ReadSeeker) (n int, err error) {
	// pdfcpu panics on some malformed input.
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("count pages: %v", r)
		}
	}()
	n, err = api.PageCount(rs, relaxedConfig())
	if err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}
	return n, nil
}
