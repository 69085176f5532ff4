package service

import (
	"bytes"
	"fmt"
	"image/png"
	"strings"

	"masarif/internal/dto"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// DefaultRasterDPI is the resolution used when rasterizing a PDF page
// for vision parsing.
const DefaultRasterDPI = 200

type PDFService struct {
	logger *zap.Logger
}

func NewPDFService(logger *zap.Logger) *PDFService {
	return &PDFService{logger: logger}
}

// ExtractText pulls the embedded text out of every page. Pages without
// text are skipped; each remaining page becomes a "--- Page N ---"
// block.
func (s *PDFService) ExtractText(data []byte) (string, error) {
	doc, err := s.open(data)
	if err != nil {
		return "", err
	}
	defer doc.Close()

	var blocks []string
	for i := 0; i < doc.NumPage(); i++ {
		pageText, err := doc.Text(i)
		if err != nil {
			s.logger.Warn("failed to read pdf page",
				zap.Int("page", i+1),
				zap.Error(err),
			)
			continue
		}
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("--- Page %d ---\n%s", i+1, pageText))
	}

	text := strings.Join(blocks, "\n\n")
	s.logger.Info("pdf text extracted",
		zap.Int("pages", doc.NumPage()),
		zap.Int("text_length", len(text)),
	)
	return text, nil
}

// PageToPNG rasterizes one page to PNG bytes for the vision model.
// An out-of-range page falls back to the first page.
func (s *PDFService) PageToPNG(data []byte, page int, dpi float64) ([]byte, error) {
	doc, err := s.open(data)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	if page < 0 || page >= doc.NumPage() {
		page = 0
	}
	if dpi <= 0 {
		dpi = DefaultRasterDPI
	}

	img, err := doc.ImageDPI(page, dpi)
	if err != nil {
		return nil, fmt.Errorf("rasterize page %d: %v: %w", page+1, err, ErrEncoding)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode page image: %v: %w", err, ErrEncoding)
	}

	s.logger.Debug("pdf page rasterized",
		zap.Int("page", page+1),
		zap.Float64("dpi", dpi),
		zap.Int("png_bytes", buf.Len()),
	)
	return buf.Bytes(), nil
}

// Info reports page count, document metadata and whether any page
// carries embedded text.
func (s *PDFService) Info(data []byte) (*dto.PDFInfoResponse, error) {
	doc, err := s.open(data)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	info := &dto.PDFInfoResponse{
		Success:   true,
		PageCount: doc.NumPage(),
		Metadata:  doc.Metadata(),
	}
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) != "" {
			info.HasText = true
			break
		}
	}
	return info, nil
}

func (s *PDFService) open(data []byte) (*fitz.Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty pdf upload: %w", ErrInvalidInput)
	}
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %v: %w", err, ErrInvalidInput)
	}
	return doc, nil
}
