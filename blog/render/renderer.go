package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/dfryer1193/postpage/blog/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	dateLayout  = "Jan _2, 2006"
	contentType = "text/html; charset=utf-8"
)

// Metadata keys placed in a Page for the host to put in the document head.
const (
	MetaTitle         = "title"
	MetaDescription   = "description"
	MetaContentType   = "content-type"
	MetaOGType        = "og:type"
	MetaPublishedTime = "article:published_time"
)

// Page is a rendered body fragment plus the document metadata that goes with it.
type Page struct {
	State string            `json:"state"`
	Body  template.HTML     `json:"html"`
	Meta  map[string]string `json:"meta"`
}

// MetaTag is a single head entry.
type MetaTag struct {
	Name    string
	Content string
}

// Property reports whether the tag belongs in a property attribute (Open Graph and
// article tags) rather than a name attribute.
func (t MetaTag) Property() bool {
	return strings.Contains(t.Name, ":")
}

// Tags returns the metadata other than the title as name/content pairs, sorted by
// name.
func (p Page) Tags() []MetaTag {
	tags := make([]MetaTag, 0, len(p.Meta))
	for k, v := range p.Meta {
		if k == MetaTitle {
			continue
		}
		tags = append(tags, MetaTag{Name: k, Content: v})
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags
}

// Title returns the document title.
func (p Page) Title() string {
	return p.Meta[MetaTitle]
}

// Renderer turns a State into a Page.
type Renderer struct {
	tmpl     *template.Template
	siteName string
}

// NewRenderer parses the fragment templates. siteName is appended to post titles.
func NewRenderer(siteName string) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl, siteName: siteName}, nil
}

type failedView struct {
	Message string
}

type readyView struct {
	Title       string
	Date        string
	Published   string
	Words       string
	ReadingTime string
	Content     template.HTML
}

// Render produces the fragment for s.
func (r *Renderer) Render(s State) (Page, error) {
	page := Page{
		State: s.Name(),
		Meta: map[string]string{
			MetaTitle:       r.siteName,
			MetaContentType: contentType,
		},
	}

	var (
		name string
		data any
	)
	switch st := s.(type) {
	case Loading:
		name = "loading"
	case Failed:
		name = "failed"
		data = failedView{Message: st.Err.Message()}
	case Ready:
		name = "ready"
		data = r.readyView(st)
		r.addPostMeta(page.Meta, st.Post)
	default:
		return Page{}, fmt.Errorf("unknown render state %T", s)
	}

	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return Page{}, fmt.Errorf("failed to render %s fragment: %w", name, err)
	}
	// Content has been escaped by the template, except the post body which the data
	// source provides as trusted HTML.
	page.Body = template.HTML(buf.String())
	return page, nil
}

func (r *Renderer) readyView(st Ready) readyView {
	created := st.Post.Metadata.CreatedAt
	return readyView{
		Title:       st.Post.Metadata.Title,
		Date:        created.Format(dateLayout),
		Published:   created.Format(time.RFC3339),
		Words:       st.Metrics.WordCountLabel,
		ReadingTime: st.Metrics.ReadingTimeLabel,
		Content:     template.HTML(st.Post.Content),
	}
}

func (r *Renderer) addPostMeta(meta map[string]string, p *domain.Post) {
	title := p.Metadata.Title
	if r.siteName != "" {
		title = fmt.Sprintf("%s - %s", title, r.siteName)
	}
	meta[MetaTitle] = title
	meta[MetaDescription] = p.Metadata.Description
	meta[MetaOGType] = "article"
	meta[MetaPublishedTime] = p.Metadata.CreatedAt.Format(time.RFC3339)
}
