package ocr

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestScratch(t *testing.T) {
	dir := t.TempDir()

	a, err := NewScratch(dir, samplePDF, zerolog.Nop())
	require.NoError(t, err)
	b, err := NewScratch(dir, samplePDF, zerolog.Nop())
	require.NoError(t, err)

	require.NotEqual(t, a.InputPath, b.InputPath)
	require.NotEqual(t, a.OutputPath, b.OutputPath)
	require.Equal(t, dir, filepath.Dir(a.InputPath))

	data, err := os.ReadFile(a.InputPath)
	require.NoError(t, err)
	require.Equal(t, samplePDF, data)

	require.NoError(t, os.WriteFile(a.OutputPath, []byte("out"), 0o600))
	a.Close()
	require.NoFileExists(t, a.InputPath)
	require.NoFileExists(t, a.OutputPath)

	// Removing twice is harmless.
	a.Close()
	b.Close()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestScratch_MissingDir(t *testing.T) {
	_, err := NewScratch(filepath.Join(t.TempDir(), "gone"), samplePDF, zerolog.Nop())
	require.ErrorIs(t, err, ErrScratch)
}

func TestOCRError(t *testing.T) {
	err := NewOCRError("recognize", ErrRecognitionTimeout, "ocrmypdf did not finish within 2m0s")
	require.ErrorIs(t, err, ErrRecognitionTimeout)
	require.Equal(t, "ocr: recognize failed: OCR recognition timeout: ocrmypdf did not finish within 2m0s", err.Error())

	// Already typed errors keep their original operation.
	require.Same(t, err, WrapOCRError("Recognize", err, "ignored"))
	require.NoError(t, WrapOCRError("Recognize", nil, ""))
}
