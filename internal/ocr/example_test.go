package ocr_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"ocrrelay/internal/ocr"
)

// Example demonstrates running the local ocrmypdf + pdftotext engine.
func Example() {
	engine := ocr.NewPipeline(ocr.PipelineConfig{
		Language:           "pol",
		Optimize:           1,
		RecognitionTimeout: 2 * time.Minute,
	})
	if err := engine.CheckTools(); err != nil {
		log.Fatalf("OCR tools missing: %v", err)
	}

	pdf, err := os.ReadFile("scan.pdf")
	if err != nil {
		log.Fatalf("Failed to read PDF: %v", err)
	}

	result, err := engine.Recognize(context.Background(), pdf)
	if err != nil {
		log.Fatalf("Failed to process PDF: %v", err)
	}

	fmt.Printf("Extracted text (%d bytes, %d pages):\n%s\n", result.Length, result.PageCount, result.Text)
}

// Example_errorHandling demonstrates classifying pipeline failures.
func Example_errorHandling() {
	engine := ocr.NewPipeline(ocr.PipelineConfig{})

	_, err := engine.Recognize(context.Background(), []byte("<html>not a pdf</html>"))
	switch {
	case err == nil:
		fmt.Println("ok")
	case errors.Is(err, ocr.ErrInvalidPDF):
		fmt.Println("not a PDF")
	case ocr.IsTimeout(err):
		fmt.Println("took too long")
	case errors.Is(err, ocr.ErrRecognitionFailed), errors.Is(err, ocr.ErrExtractionFailed):
		fmt.Println("tool failed")
	default:
		fmt.Println("other failure")
	}
	// Output: not a PDF
}

// ExampleLimit demonstrates bounding concurrent OCR jobs.
func ExampleLimit() {
	engine := ocr.Limit(ocr.NewPipeline(ocr.PipelineConfig{}), 4)
	defer engine.Close()

	fmt.Println(engine.Name())
	// Output: ocrmypdf
}
