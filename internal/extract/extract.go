// Package extract turns uploaded files into plain text suitable for
// embedding and indexing. Images and PDFs go through a multimodal model,
// text formats are decoded or normalized to markdown.
package extract

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/echo-labs/support-platform/internal/apperr"
	"github.com/echo-labs/support-platform/pkg/metrics"
)

const (
	imagePrompt = "You turn images into text. If it is a photo of a document, transcribe it. If it is not a document, describe it."
	pdfPrompt   = "You transform PDF files into text."
	htmlPrompt  = "You transform content into markdown."

	pdfInstruction = "Extract the text from PDF and print it without explaining you'll do so."
)

// allowedTypes are MIME type prefixes accepted for extraction.
var allowedTypes = []string{
	"image/jpeg",
	"image/png",
	"image/webp",
	"image/gif",
	"application/pdf",
	"text/plain",
	"text/html",
	"text/markdown",
}

var supportedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// Describer is a multimodal model that can read documents and generate text.
// *llm.GeminiClient satisfies it.
type Describer interface {
	DescribeBlob(ctx context.Context, system, mimeType string, data []byte, prompt string) (string, error)
	GenerateText(ctx context.Context, system, prompt string) (string, error)
}

// Extractor converts uploaded file content into text.
type Extractor struct {
	describer Describer
}

// New creates an Extractor backed by the given multimodal model.
func New(describer Describer) *Extractor {
	return &Extractor{describer: describer}
}

// Allowed reports whether the MIME type is accepted for extraction.
func Allowed(mimeType string) bool {
	lower := strings.ToLower(mimeType)
	for _, t := range allowedTypes {
		if strings.HasPrefix(lower, t) {
			return true
		}
	}
	return false
}

// GuessMimeType resolves a MIME type for a file, preferring the filename
// extension, then content sniffing, then the generic binary type.
func GuessMimeType(filename string, data []byte) string {
	if ext := filepath.Ext(filename); ext != "" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			if i := strings.IndexByte(byExt, ';'); i >= 0 {
				byExt = byExt[:i]
			}
			return byExt
		}
	}
	if len(data) > 0 {
		detected := http.DetectContentType(data)
		if i := strings.IndexByte(detected, ';'); i >= 0 {
			detected = detected[:i]
		}
		if detected != "application/octet-stream" {
			return detected
		}
	}
	return "application/octet-stream"
}

// Text extracts readable text from the file content. The MIME type decides
// the strategy: images and PDFs are read by the model, plain text is decoded
// directly, and other text formats are normalized to markdown.
func (e *Extractor) Text(ctx context.Context, filename, mimeType string, data []byte) (string, error) {
	if !Allowed(mimeType) {
		return "", apperr.New(apperr.CodeUnsupportedType, fmt.Sprintf("MIME type not allowed: %s", mimeType))
	}

	lower := strings.ToLower(mimeType)

	switch {
	case supportedImageTypes[lower]:
		return e.describe(ctx, "image", imagePrompt, lower, data, "")

	case strings.Contains(lower, "pdf"):
		return e.describe(ctx, "pdf", pdfPrompt, lower, data, pdfInstruction)

	case strings.Contains(lower, "text"):
		if lower == "text/plain" {
			metrics.ExtractionsTotal.WithLabelValues("text", "success").Inc()
			return string(data), nil
		}
		text, err := e.describer.GenerateText(ctx, htmlPrompt, string(data))
		if err != nil {
			metrics.ExtractionsTotal.WithLabelValues("text", "error").Inc()
			return "", apperr.Wrap(apperr.CodeExtractionFailed, "text normalization failed", err)
		}
		metrics.ExtractionsTotal.WithLabelValues("text", "success").Inc()
		return text, nil
	}

	return "", apperr.New(apperr.CodeUnsupportedType, fmt.Sprintf("unsupported MIME type: %s", mimeType))
}

func (e *Extractor) describe(ctx context.Context, kind, system, mimeType string, data []byte, prompt string) (string, error) {
	text, err := e.describer.DescribeBlob(ctx, system, mimeType, data, prompt)
	if err != nil {
		metrics.ExtractionsTotal.WithLabelValues(kind, "error").Inc()
		return "", apperr.Wrap(apperr.CodeExtractionFailed, fmt.Sprintf("%s extraction failed", kind), err)
	}
	metrics.ExtractionsTotal.WithLabelValues(kind, "success").Inc()
	return text, nil
}
