package application

import (
	"bytes"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	"gopkg.in/yaml.v3"
)

const (
	maxLength        = 200
	untitledPost     = "Untitled Post"
	frontmatterDelim = "---"
)

var errUnterminatedFrontmatter = errors.New("frontmatter is not terminated")

// MarkdownProcessingResult contains the results of processing a markdown file
type MarkdownProcessingResult struct {
	Title       string
	Description string
	// CreatedAt is taken from the frontmatter; zero when the document does not set it.
	CreatedAt   time.Time
	HTMLContent []byte
}

type frontmatter struct {
	Title       string    `yaml:"title"`
	Description string    `yaml:"description"`
	CreatedAt   time.Time `yaml:"created_at"`
}

type relativeLinkTransformer struct {
	baseURL string
}

func (t *relativeLinkTransformer) Transform(node *ast.Document, reader text.Reader, pc parser.Context) {
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch v := n.(type) {
		case *ast.Image:
			if dest := string(v.Destination); isRelativeLink(dest) {
				v.Destination = []byte(t.rewrite(dest, "/images/"))
			}
		case *ast.Link:
			if dest := string(v.Destination); isRelativeLink(dest) {
				v.Destination = []byte(t.rewrite(dest, "/blog/"))
			}
		}

		return ast.WalkContinue, nil
	})
}

// rewrite resolves dest against the base URL. Root-relative paths keep their path;
// anything else is taken to name a file under prefix, with .md and .html stripped so
// links between posts land on the post route.
func (t *relativeLinkTransformer) rewrite(dest, prefix string) string {
	if strings.HasPrefix(dest, "/") {
		return t.baseURL + dest
	}

	name := path.Base(dest)
	if prefix == "/blog/" {
		name = strings.TrimSuffix(name, ".md")
		name = strings.TrimSuffix(name, ".html")
	}
	return t.baseURL + prefix + name
}

func isRelativeLink(dest string) bool {
	if dest == "" || strings.HasPrefix(dest, "#") {
		return false
	}

	// Absolute path check
	if strings.HasPrefix(dest, "/") {
		return !strings.HasPrefix(dest, "//")
	}

	if strings.HasPrefix(dest, "./") || strings.HasPrefix(dest, "../") {
		return true
	}

	return !strings.Contains(dest, ":")
}

// MarkdownRenderer defines the interface for converting markdown to HTML.
type MarkdownRenderer interface {
	Render(markdown []byte) (*MarkdownProcessingResult, error)
}

type MarkdownRendererImpl struct {
	renderer goldmark.Markdown
}

// NewMarkdownRenderer builds a renderer that rewrites relative links and images
// against baseURL. An empty baseURL produces root-relative URLs.
func NewMarkdownRenderer(baseURL string) MarkdownRenderer {
	renderer := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Table,
			extension.Strikethrough,
			extension.TaskList,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(
				util.Prioritized(&relativeLinkTransformer{baseURL: strings.TrimSuffix(baseURL, "/")}, 100),
			),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
			html.WithUnsafe(),
		),
	)

	return &MarkdownRendererImpl{
		renderer: renderer,
	}
}

// Render converts a Markdown document, with optional YAML frontmatter, to HTML.
// Without a frontmatter title the leading "# " heading becomes the title and is left
// out of the body; without a description the first paragraph is used.
func (r *MarkdownRendererImpl) Render(markdown []byte) (*MarkdownProcessingResult, error) {
	front, body, err := splitFrontmatter(markdown)
	if err != nil {
		return nil, err
	}

	var fm frontmatter
	if len(bytes.TrimSpace(front)) > 0 {
		if err := yaml.Unmarshal(front, &fm); err != nil {
			return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
		}
	}

	body = bytes.TrimLeft(body, "\n")
	title := strings.TrimSpace(fm.Title)
	if title == "" {
		title = extractPostTitle(body)
		if title != untitledPost {
			body = dropFirstLine(body)
		}
	}

	description := strings.TrimSpace(fm.Description)
	if description == "" {
		description = extractSnippet(body)
	}

	var buf bytes.Buffer
	if err := r.renderer.Convert(body, &buf); err != nil {
		return nil, fmt.Errorf("failed to convert markdown to HTML: %w", err)
	}

	return &MarkdownProcessingResult{
		Title:       title,
		Description: description,
		CreatedAt:   fm.CreatedAt,
		HTMLContent: buf.Bytes(),
	}, nil
}

// splitFrontmatter separates a leading "---" delimited YAML block from the body.
// Documents that do not open with the delimiter have no frontmatter.
func splitFrontmatter(src []byte) (front, body []byte, err error) {
	src = bytes.ReplaceAll(src, []byte("\r\n"), []byte("\n"))

	opening := []byte(frontmatterDelim + "\n")
	if !bytes.HasPrefix(src, opening) {
		return nil, src, nil
	}

	rest := src[len(opening):]
	for off := 0; off < len(rest); {
		line, next := rest[off:], len(rest)
		if nl := bytes.IndexByte(rest[off:], '\n'); nl >= 0 {
			line, next = rest[off:off+nl], off+nl+1
		}
		if string(bytes.TrimRight(line, " \t")) == frontmatterDelim {
			return rest[:off], rest[next:], nil
		}
		off = next
	}

	return nil, nil, errUnterminatedFrontmatter
}

func dropFirstLine(markdown []byte) []byte {
	if nl := bytes.IndexByte(markdown, '\n'); nl >= 0 {
		return markdown[nl+1:]
	}
	return nil
}

func extractPostTitle(markdown []byte) string {
	lines := strings.SplitN(string(markdown), "\n", 2)
	if len(lines) == 0 {
		return untitledPost
	}

	firstLine := strings.TrimSpace(lines[0])
	title, found := strings.CutPrefix(firstLine, "# ")
	if !found {
		return untitledPost
	}

	return strings.TrimSpace(title)
}

func extractSnippet(markdown []byte) string {
	lines := strings.Split(string(markdown), "\n")
	var paragraphLines []string

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		// Skip headings before we find content
		if strings.HasPrefix(trimmed, "#") {
			if len(paragraphLines) > 0 {
				break
			}
			continue
		}

		if trimmed == "" {
			if len(paragraphLines) > 0 {
				break // End of first paragraph
			}
			continue
		}

		// Stop at code blocks, horizontal rules, lists, tables
		if strings.HasPrefix(trimmed, "```") ||
			strings.HasPrefix(trimmed, "---") ||
			strings.HasPrefix(trimmed, "***") ||
			strings.HasPrefix(trimmed, "- ") ||
			strings.HasPrefix(trimmed, "* ") ||
			strings.HasPrefix(trimmed, "+ ") ||
			strings.HasPrefix(trimmed, "|") {
			if len(paragraphLines) > 0 {
				break
			}
			continue
		}

		paragraphLines = append(paragraphLines, trimmed)
	}

	if len(paragraphLines) == 0 {
		return ""
	}

	snippet := strings.Join(paragraphLines, " ")

	if utf8.RuneCountInString(snippet) > maxLength {
		snippet = string([]rune(snippet)[:maxLength])
		if lastSpace := strings.LastIndexAny(snippet, " \t"); lastSpace > 0 {
			snippet = snippet[:lastSpace]
		}
		snippet += "..."
	}

	return snippet
}
