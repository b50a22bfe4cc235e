package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"textbook-chatbot/internal/contextutil"
)

// Loader extracts per-page text from the documents under a corpus path.
// PDF pages map directly; Markdown documents treat each top-level heading
// section as a page; plain text files are a single page.
type Loader struct {
	root     string
	markdown goldmark.Markdown
}

// NewLoader creates a loader rooted at the given corpus directory.
func NewLoader(root string) *Loader {
	return &Loader{
		root:     root,
		markdown: goldmark.New(),
	}
}

// LoadAll scans the corpus directory and extracts pages from every
// supported document. A missing or empty directory yields zero pages, not
// an error; downstream components treat zero chunks as a valid state.
func (l *Loader) LoadAll(ctx context.Context) ([]Page, error) {
	logger := contextutil.LoggerFromContext(ctx)

	info, err := os.Stat(l.root)
	if err != nil || !info.IsDir() {
		logger.WarnContext(ctx, "corpus path missing or not a directory", "path", l.root)
		return nil, nil
	}

	var pages []Page
	err = filepath.WalkDir(l.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			rel = d.Name()
		}
		rel = filepath.ToSlash(rel)

		var filePages []Page
		switch strings.ToLower(filepath.Ext(path)) {
		case ".pdf":
			filePages, err = l.loadPDF(path, rel)
		case ".md", ".markdown":
			filePages, err = l.loadMarkdown(path, rel)
		case ".txt":
			filePages, err = l.loadText(path, rel)
		default:
			return nil
		}
		if err != nil {
			logger.ErrorContext(ctx, "failed to load document", "source", rel, "error", err)
			// Skip unreadable documents rather than aborting the whole scan.
			return nil
		}

		pages = append(pages, filePages...)
		logger.InfoContext(ctx, "loaded document", "source", rel, "pages", len(filePages))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan corpus: %w", err)
	}

	return pages, nil
}

// loadPDF extracts one Page per PDF page, skipping pages with no text.
func (l *Loader) loadPDF(path, sourceID string) ([]Page, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	var pages []Page
	total := reader.NumPage()
	for num := 1; num <= total; num++ {
		page := reader.Page(num)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			// A single damaged page should not lose the rest of the document.
			continue
		}
		content = strings.TrimSpace(content)
		if content == "" {
			continue
		}
		pages = append(pages, Page{
			SourceID: sourceID,
			Number:   num - 1,
			Text:     content,
		})
	}

	return pages, nil
}

// loadMarkdown treats each level-1 heading section as a page, using the
// goldmark AST to strip formatting down to plain text.
func (l *Loader) loadMarkdown(path, sourceID string) ([]Page, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(content) == 0 {
		return nil, nil
	}

	doc := l.markdown.Parser().Parse(text.NewReader(content))

	var pages []Page
	var builder strings.Builder

	flush := func() {
		section := strings.TrimSpace(builder.String())
		builder.Reset()
		if section == "" {
			return
		}
		pages = append(pages, Page{
			SourceID: sourceID,
			Number:   len(pages),
			Text:     section,
		})
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			if node.Level == 1 {
				flush()
			}
			builder.WriteString(plainText(node, content))
			builder.WriteString("\n")
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			builder.WriteString(string(node.Segment.Value(content)))
			builder.WriteString(" ")
		case *ast.String:
			builder.WriteString(string(node.Value))
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				builder.Write(line.Value(content))
			}
		case *ast.Paragraph, *ast.ListItem:
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
		}
		return ast.WalkContinue, nil
	})
	flush()

	return pages, nil
}

// loadText reads a plain text file as a single page.
func (l *Loader) loadText(path, sourceID string) ([]Page, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return nil, nil
	}
	return []Page{{SourceID: sourceID, Number: 0, Text: trimmed}}, nil
}

// plainText collects the text content under a node.
func plainText(n ast.Node, content []byte) string {
	var builder strings.Builder
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := child.(*ast.Text); ok {
			builder.Write(t.Segment.Value(content))
		}
		return ast.WalkContinue, nil
	})
	return builder.String()
}
