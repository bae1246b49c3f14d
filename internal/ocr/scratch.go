package ocr

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Scratch is the input/output file pair owned by a single OCR job.
type Scratch struct {
	ID         string
	InputPath  string
	OutputPath string

	log zerolog.Logger
}

// NewScratch reserves a fresh pair of paths under dir and writes data to the
// input path. Names carry a random UUID and the input file is created with
// O_EXCL, so two jobs can never share a file.
func NewScratch(dir string, data []byte, log zerolog.Logger) (*Scratch, error) {
	id := uuid.NewString()
	s := &Scratch{
		ID:         id,
		InputPath:  filepath.Join(dir, "input-"+id+".pdf"),
		OutputPath: filepath.Join(dir, "output-"+id+".pdf"),
		log:        log.With().Str("scratch_id", id).Logger(),
	}

	f, err := os.OpenFile(s.InputPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", ErrScratch, s.InputPath, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		s.Close()
		return nil, fmt.Errorf("%w: write %s: %v", ErrScratch, s.InputPath, err)
	}
	if err := f.Close(); err != nil {
		s.Close()
		return nil, fmt.Errorf("%w: close %s: %v", ErrScratch, s.InputPath, err)
	}
	return s, nil
}

// Close removes both scratch files. Failures are logged and swallowed.
func (s *Scratch) Close() {
	for _, path := range []string{s.InputPath, s.OutputPath} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn().Err(err).Str("path", path).Msg("Failed to remove scratch file")
		}
	}
}
