package ops

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/hpungsan/bitext/internal/config"
	"github.com/hpungsan/bitext/internal/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readDocument validates path, reads it and returns its plain text without
// surrounding whitespace. Markdown files are reduced to their prose. Open and read failures come back as
// IMPORT_IO; policy violations as INVALID_REQUEST.
func readDocument(path string, cfg *config.Config) (string, error) {
	if err := ValidatePath(path, PathCheckRead, cfg); err != nil {
		return "", err
	}

	f, err := openFileNoFollowRead(path)
	if err != nil {
		if e, ok := errors.As(err); ok && e.Code != errors.ErrFileNotFound {
			return "", err
		}
		return "", errors.NewImportIO(path, err)
	}
	defer f.Close()

	limit := int64(config.DefaultMaxImportBytes)
	if cfg != nil && cfg.MaxImportBytes > 0 {
		limit = cfg.MaxImportBytes
	}
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return "", errors.NewImportIO(path, err)
	}
	if int64(len(data)) > limit {
		return "", errors.NewInvalidRequest(fmt.Sprintf("%s exceeds max_import_bytes (%d)", path, limit))
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", errors.NewImportIO(path, fmt.Errorf("not valid UTF-8"))
	}
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))

	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return markdownText(data), nil
	default:
		return strings.TrimSpace(string(data)), nil
	}
}

// markdownText returns the prose of a markdown document. Block elements end
// with a blank line so paragraph rules still apply; soft line breaks become
// spaces. Code, HTML and images are dropped.
func markdownText(src []byte) string {
	doc := goldmark.DefaultParser().Parse(text.NewReader(src))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch n := n.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock, *ast.RawHTML, *ast.Image:
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			if entering {
				b.Write(n.Segment.Value(src))
				switch {
				case n.HardLineBreak():
					b.WriteByte('\n')
				case n.SoftLineBreak():
					b.WriteByte(' ')
				}
			}
		case *ast.String:
			if entering {
				b.Write(n.Value)
			}
		case *ast.AutoLink:
			if entering {
				b.Write(n.Label(src))
			}
		case *ast.Paragraph, *ast.Heading, *ast.TextBlock:
			if !entering {
				b.WriteString("\n\n")
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
