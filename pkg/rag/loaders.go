package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/xuri/excelize/v2"
)

// Document is loader output: one logical unit of text to be chunked.
type Document struct {
	Content  string
	Metadata map[string]any
}

// Source produces documents for ingestion.
type Source interface {
	// Name identifies the source in chunk metadata, e.g. a file name.
	Name() string

	Load(ctx context.Context) ([]Document, error)
}

// TextSource ingests an in-memory string, e.g. an uploaded snippet.
type TextSource struct {
	SourceName string
	Content    string
}

func (s *TextSource) Name() string { return s.SourceName }

func (s *TextSource) Load(ctx context.Context) ([]Document, error) {
	if strings.TrimSpace(s.Content) == "" {
		return nil, fmt.Errorf("text source '%s' is empty", s.SourceName)
	}
	return []Document{{
		Content:  s.Content,
		Metadata: map[string]any{"source": s.SourceName},
	}}, nil
}

// FileSource ingests a file, dispatching on extension. Plain text and
// markdown load as one document, PDFs load per page, DOCX as one document
// and XLSX per sheet.
type FileSource struct {
	Path string
}

func (s *FileSource) Name() string { return filepath.Base(s.Path) }

func (s *FileSource) Load(ctx context.Context) ([]Document, error) {
	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".pdf":
		return s.loadPDF(ctx)
	case ".docx":
		return s.loadDOCX()
	case ".xlsx":
		return s.loadXLSX(ctx)
	default:
		return s.loadText()
	}
}

func (s *FileSource) loadText() ([]Document, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.Path, err)
	}
	return []Document{{
		Content:  string(data),
		Metadata: map[string]any{"source": s.Name()},
	}}, nil
}

func (s *FileSource) loadPDF(ctx context.Context) ([]Document, error) {
	file, reader, err := pdf.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PDF %s: %w", s.Path, err)
	}
	defer file.Close()

	var docs []Document
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// One bad page does not sink the document.
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		docs = append(docs, Document{
			Content:  text,
			Metadata: map[string]any{"source": s.Name(), "page": pageNum},
		})
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no extractable text in PDF %s", s.Path)
	}
	return docs, nil
}

func (s *FileSource) loadDOCX() ([]Document, error) {
	doc, err := docx.ReadDocxFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DOCX %s: %w", s.Path, err)
	}
	defer doc.Close()

	content := doc.Editable().GetContent()
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("no extractable text in DOCX %s", s.Path)
	}
	return []Document{{
		Content:  content,
		Metadata: map[string]any{"source": s.Name()},
	}}, nil
}

func (s *FileSource) loadXLSX(ctx context.Context) ([]Document, error) {
	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse XLSX %s: %w", s.Path, err)
	}
	defer f.Close()

	var docs []Document
	for _, sheet := range f.GetSheetList() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			if line := strings.TrimSpace(strings.Join(row, "\t")); line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) == 0 {
			continue
		}
		docs = append(docs, Document{
			Content:  strings.Join(lines, "\n"),
			Metadata: map[string]any{"source": s.Name(), "sheet": sheet},
		})
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no extractable text in XLSX %s", s.Path)
	}
	return docs, nil
}
