package application

import (
	"strings"
	"testing"
	"time"
)

func TestExtractPostTitle(t *testing.T) {
	tests := []struct {
		name     string
		markdown []byte
		expected string
	}{
		{
			name:     "Valid title",
			markdown: []byte("# My Blog Post\nSome content"),
			expected: "My Blog Post",
		},
		{
			name:     "Title with extra spaces",
			markdown: []byte("#   Title with spaces   \nContent"),
			expected: "Title with spaces",
		},
		{
			name:     "No title",
			markdown: []byte("Some content without title"),
			expected: "Untitled Post",
		},
		{
			name:     "Empty markdown",
			markdown: []byte(""),
			expected: "Untitled Post",
		},
		{
			name:     "Just newlines",
			markdown: []byte("\n\n"),
			expected: "Untitled Post",
		},
		{
			name:     "Missing hash symbol",
			markdown: []byte("Not a title\nContent"),
			expected: "Untitled Post",
		},
		{
			name:     "Hash without space",
			markdown: []byte("#NoSpace\nContent"),
			expected: "Untitled Post",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractPostTitle(tt.markdown)
			if result != tt.expected {
				t.Errorf("extractPostTitle() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestExtractSnippet(t *testing.T) {
	tests := []struct {
		name     string
		markdown []byte
		expected string
	}{
		{
			name:     "First paragraph after title",
			markdown: []byte("# Title\nThis is the first paragraph\n\nMore content"),
			expected: "This is the first paragraph",
		},
		{
			name:     "Multi-line first paragraph",
			markdown: []byte("# Title\nFirst line of paragraph.\nSecond line of paragraph.\n\nSecond paragraph"),
			expected: "First line of paragraph. Second line of paragraph.",
		},
		{
			name:     "Skip empty lines after title",
			markdown: []byte("# Title\n\n\nThis is the content after blank lines"),
			expected: "This is the content after blank lines",
		},
		{
			name:     "Multiple headings",
			markdown: []byte("# Title\n## Subtitle\nFirst paragraph content"),
			expected: "First paragraph content",
		},
		{
			name:     "Stop at code block",
			markdown: []byte("# Title\nFirst paragraph\n```\ncode\n```"),
			expected: "First paragraph",
		},
		{
			name:     "Stop at list",
			markdown: []byte("# Title\nIntro text\n- List item"),
			expected: "Intro text",
		},
		{
			name:     "Stop at horizontal rule",
			markdown: []byte("# Title\nContent before rule\n---\nAfter"),
			expected: "Content before rule",
		},
		{
			name:     "Stop at table",
			markdown: []byte("# Title\nIntro\n| Col1 | Col2 |"),
			expected: "Intro",
		},
		{
			name:     "Truncate long paragraph",
			markdown: []byte("# Title\nThis is a very long paragraph that exceeds the maximum length limit and should be truncated at a word boundary to ensure that the snippet looks clean and professional without cutting words in the middle which would look unprofessional."),
			expected: "This is a very long paragraph that exceeds the maximum length limit and should be truncated at a word boundary to ensure that the snippet looks clean and professional without cutting words in the...",
		},
		{
			name:     "Only title, no content",
			markdown: []byte("# Title"),
			expected: "",
		},
		{
			name:     "Empty markdown",
			markdown: []byte(""),
			expected: "",
		},
		{
			name:     "No title, direct content",
			markdown: []byte("This is content without a title.\nSecond line."),
			expected: "This is content without a title. Second line.",
		},
		{
			name:     "Paragraph with inline formatting",
			markdown: []byte("# Title\nThis has **bold** and *italic* text."),
			expected: "This has **bold** and *italic* text.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractSnippet(tt.markdown)
			if result != tt.expected {
				t.Errorf("extractSnippet() = %q, want %q", result, tt.expected)
			}
		})
	}
}

const testBaseURL = "https://blog.example.com"

func TestMarkdownRendererImpl_Render(t *testing.T) {
	renderer := NewMarkdownRenderer(testBaseURL)

	tests := []struct {
		name            string
		markdown        []byte
		expectedTitle   string
		expectedDesc    string
		expectedCreated time.Time
		notInHTML       string
	}{
		{
			name:          "Basic markdown rendering",
			markdown:      []byte("# Hello World\nThis is a test paragraph.\n\nSome **bold** text"),
			expectedTitle: "Hello World",
			expectedDesc:  "This is a test paragraph.",
			notInHTML:     "Hello World",
		},
		{
			name:          "Markdown without title",
			markdown:      []byte("Just some content here.\nMore content on line two."),
			expectedTitle: "Untitled Post",
			expectedDesc:  "Just some content here. More content on line two.",
		},
		{
			name:          "Complex markdown with GFM features",
			markdown:      []byte("# Complex Post\nThis is my introduction paragraph.\n\n- [ ] Task 1\n- [x] Task 2\n\n| Col1 | Col2 |\n|------|------|\n| A    | B    |"),
			expectedTitle: "Complex Post",
			expectedDesc:  "This is my introduction paragraph.",
		},
		{
			name:          "Markdown with only title",
			markdown:      []byte("# Only a Title"),
			expectedTitle: "Only a Title",
			expectedDesc:  "",
		},
		{
			name: "Frontmatter",
			markdown: []byte(`---
title: From Frontmatter
description: A short summary
created_at: 2024-01-05T12:00:00Z
---
# Heading Stays
Body text.`),
			expectedTitle:   "From Frontmatter",
			expectedDesc:    "A short summary",
			expectedCreated: time.Date(2024, time.January, 5, 12, 0, 0, 0, time.UTC),
		},
		{
			name: "Frontmatter without title falls back to heading",
			markdown: []byte(`---
created_at: 2023-11-02
---

# Fallback Title
First paragraph.`),
			expectedTitle:   "Fallback Title",
			expectedDesc:    "First paragraph.",
			expectedCreated: time.Date(2023, time.November, 2, 0, 0, 0, 0, time.UTC),
			notInHTML:       "Fallback Title",
		},
		{
			name:          "Windows line endings",
			markdown:      []byte("---\r\ntitle: CRLF\r\n---\r\nBody.\r\n"),
			expectedTitle: "CRLF",
			expectedDesc:  "Body.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := renderer.Render(tt.markdown)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			if result.Title != tt.expectedTitle {
				t.Errorf("Title = %q, want %q", result.Title, tt.expectedTitle)
			}

			if result.Description != tt.expectedDesc {
				t.Errorf("Description = %q, want %q", result.Description, tt.expectedDesc)
			}

			if !result.CreatedAt.Equal(tt.expectedCreated) {
				t.Errorf("CreatedAt = %v, want %v", result.CreatedAt, tt.expectedCreated)
			}

			if tt.notInHTML != "" && strings.Contains(string(result.HTMLContent), tt.notInHTML) {
				t.Errorf("HTML contains %q\nHTML:\n%s", tt.notInHTML, result.HTMLContent)
			}
		})
	}
}

func TestMarkdownRendererImpl_Render_FrontmatterKeepsHeading(t *testing.T) {
	renderer := NewMarkdownRenderer("")

	result, err := renderer.Render([]byte("---\ntitle: T\n---\n# Heading Stays\n"))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(string(result.HTMLContent), "Heading Stays</h1>") {
		t.Errorf("Expected heading in body, got:\n%s", result.HTMLContent)
	}
}

func TestMarkdownRendererImpl_Render_Errors(t *testing.T) {
	renderer := NewMarkdownRenderer(testBaseURL)

	tests := []struct {
		name     string
		markdown string
	}{
		{name: "Unterminated frontmatter", markdown: "---\ntitle: Oops\nno closing delimiter"},
		{name: "Malformed YAML", markdown: "---\ntitle: [unclosed\n---\nbody"},
		{name: "Bad created_at", markdown: "---\ncreated_at: not a date\n---\nbody"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := renderer.Render([]byte(tt.markdown)); err == nil {
				t.Error("Expected error but got none")
			}
		})
	}
}

func TestSplitFrontmatter(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		wantFront string
		wantBody  string
	}{
		{name: "No frontmatter", src: "# Title\nbody", wantFront: "", wantBody: "# Title\nbody"},
		{name: "Empty frontmatter", src: "---\n---\nbody", wantFront: "", wantBody: "body"},
		{name: "Fields", src: "---\ntitle: x\n---\nbody", wantFront: "title: x\n", wantBody: "body"},
		{name: "Closing delimiter at end", src: "---\ntitle: x\n---", wantFront: "title: x\n", wantBody: ""},
		{name: "Delimiter not at start", src: "intro\n---\nmore", wantFront: "", wantBody: "intro\n---\nmore"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			front, body, err := splitFrontmatter([]byte(tt.src))
			if err != nil {
				t.Fatalf("splitFrontmatter() error = %v", err)
			}
			if string(front) != tt.wantFront {
				t.Errorf("front = %q, want %q", front, tt.wantFront)
			}
			if string(body) != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
		})
	}
}

func TestIsRelativeLink(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected bool
	}{
		{
			name:     "Absolute HTTP URL",
			url:      "http://example.com/page",
			expected: false,
		},
		{
			name:     "Absolute HTTPS URL",
			url:      "https://example.com/page",
			expected: false,
		},
		{
			name:     "Protocol-relative URL",
			url:      "//example.com/page",
			expected: false,
		},
		{
			name:     "Mailto link",
			url:      "mailto:user@example.com",
			expected: false,
		},
		{
			name:     "Data URI",
			url:      "data:image/png;base64,iVBOR...",
			expected: false,
		},
		{
			name:     "Fragment",
			url:      "#section",
			expected: false,
		},
		{
			name:     "Absolute path",
			url:      "/about/contact",
			expected: true,
		},
		{
			name:     "Relative path with ./",
			url:      "./images/photo.jpg",
			expected: true,
		},
		{
			name:     "Relative path with ../",
			url:      "../docs/readme.md",
			expected: true,
		},
		{
			name:     "Simple filename",
			url:      "image.png",
			expected: true,
		},
		{
			name:     "Empty string",
			url:      "",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isRelativeLink(tt.url)
			if result != tt.expected {
				t.Errorf("isRelativeLink(%q) = %v, want %v", tt.url, result, tt.expected)
			}
		})
	}
}

func TestRelativeLinkTransformer(t *testing.T) {
	renderer := NewMarkdownRenderer(testBaseURL + "/")

	tests := []struct {
		name           string
		markdown       string
		expectedInHTML []string
		notInHTML      []string
	}{
		{
			name:           "Root-relative link keeps its path",
			markdown:       "Intro\n\n[Link to about](/about)",
			expectedInHTML: []string{`href="https://blog.example.com/about"`},
		},
		{
			name:           "Relative image goes to images",
			markdown:       "Intro\n\n![Alt text](photo.jpg)",
			expectedInHTML: []string{`src="https://blog.example.com/images/photo.jpg"`},
		},
		{
			name:           "Link to another post",
			markdown:       "Intro\n\n[Next](./second-post.md)",
			expectedInHTML: []string{`href="https://blog.example.com/blog/second-post"`},
		},
		{
			name:           "Link with parent directory",
			markdown:       "Intro\n\n[Link](../other/page.html)",
			expectedInHTML: []string{`href="https://blog.example.com/blog/page"`},
		},
		{
			name:           "Absolute link unchanged",
			markdown:       "Intro\n\n[External](https://example.com/page)",
			expectedInHTML: []string{`href="https://example.com/page"`},
			notInHTML:      []string{"blog.example.com"},
		},
		{
			name:           "Fragment unchanged",
			markdown:       "Intro\n\n[Jump](#usage)",
			expectedInHTML: []string{`href="#usage"`},
		},
		{
			name:           "Mailto unchanged",
			markdown:       "Intro\n\n[Email](mailto:test@example.com)",
			expectedInHTML: []string{`href="mailto:test@example.com"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := renderer.Render([]byte(tt.markdown))
			if err != nil {
				t.Fatalf("Render failed: %v", err)
			}

			html := string(result.HTMLContent)
			for _, expected := range tt.expectedInHTML {
				if !strings.Contains(html, expected) {
					t.Errorf("HTML does not contain expected string %q\nHTML:\n%s", expected, html)
				}
			}
			for _, notExpected := range tt.notInHTML {
				if strings.Contains(html, notExpected) {
					t.Errorf("HTML contains unexpected string %q\nHTML:\n%s", notExpected, html)
				}
			}
		})
	}
}

func TestMarkdownRendererImpl_Render_HTMLOutput(t *testing.T) {
	renderer := NewMarkdownRenderer(testBaseURL)

	tests := []struct {
		name           string
		markdown       []byte
		expectedInHTML []string
	}{
		{
			name:           "Bold text conversion",
			markdown:       []byte("# Test\nTest\n\n**bold text**"),
			expectedInHTML: []string{"<strong>bold text</strong>"},
		},
		{
			name:           "Link conversion",
			markdown:       []byte("# Test\nSnippet\n\n[Link](https://example.com)"),
			expectedInHTML: []string{"<a href=\"https://example.com\">Link</a>"},
		},
		{
			name:           "Code block conversion",
			markdown:       []byte("# Test\nSnippet\n\n```go\nfunc main() {}\n```"),
			expectedInHTML: []string{"<code"},
		},
		{
			name:           "Strikethrough (GFM extension)",
			markdown:       []byte("# Test\nSnippet\n\n~~strikethrough~~"),
			expectedInHTML: []string{"<del>strikethrough</del>"},
		},
		{
			name: "Table (GFM extension)",
			markdown: []byte(`# Test
Snippet

| Header1 | Header2 |
|---------|---------|
| Cell1   | Cell2   |`),
			expectedInHTML: []string{"<table>", "<thead>", "<tbody>"},
		},
		{
			name:           "Heading ids",
			markdown:       []byte("# Test\nSnippet\n\n## Getting Started"),
			expectedInHTML: []string{`<h2 id="getting-started">`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := renderer.Render(tt.markdown)
			if err != nil {
				t.Fatalf("Render failed: %v", err)
			}

			htmlStr := string(result.HTMLContent)
			for _, expected := range tt.expectedInHTML {
				if !strings.Contains(htmlStr, expected) {
					t.Errorf("HTML does not contain expected string %q", expected)
				}
			}
		})
	}
}
