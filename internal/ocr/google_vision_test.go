package ocr

import (
	"testing"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/status"
)

func page(text string) *visionpb.AnnotateImageResponse {
	return &visionpb.AnnotateImageResponse{FullTextAnnotation: &visionpb.TextAnnotation{Text: text}}
}

func TestVisionText(t *testing.T) {
	text, err := visionText(&visionpb.AnnotateFileResponse{
		Responses: []*visionpb.AnnotateImageResponse{page("  Strona pierwsza\n"), {}, page("Strona trzecia  ")},
	})
	require.NoError(t, err)
	require.Equal(t, "Strona pierwsza\n\n\f\n\fStrona trzecia", text)

	_, err = visionText(&visionpb.AnnotateFileResponse{})
	require.ErrorIs(t, err, ErrEmptyDocument)

	_, err = visionText(&visionpb.AnnotateFileResponse{
		Responses: []*visionpb.AnnotateImageResponse{page(" \n "), {}},
	})
	require.ErrorIs(t, err, ErrEmptyDocument)

	_, err = visionText(&visionpb.AnnotateFileResponse{
		Responses: []*visionpb.AnnotateImageResponse{
			page("ok"),
			{Error: &status.Status{Code: 3, Message: "Bad image data"}},
		},
	})
	require.ErrorContains(t, err, "page 2")
	require.ErrorContains(t, err, "Bad image data")
}
