package presentation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/Caia-Tech/ff6-dataset/pkg/dataset"
)

// Renderer formats pages for the browse API
type Renderer struct {
	config *RendererConfig
}

// RendererConfig configures the renderer
type RendererConfig struct {
	DefaultFormat OutputFormat `json:"default_format"`
	// MaxSectionLength truncates section content; 0 renders it whole
	MaxSectionLength int `json:"max_section_length"`
}

// NewRenderer creates a new page renderer
func NewRenderer(config *RendererConfig) *Renderer {
	if config == nil {
		config = &RendererConfig{
			DefaultFormat: FormatJSON,
		}
	}
	return &Renderer{config: config}
}

// ContentType returns the response content type for format
func ContentType(format OutputFormat) string {
	switch format {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatPlain:
		return "text/plain; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "application/json"
	}
}

// RenderPage renders page in format. An empty format uses the default.
func (r *Renderer) RenderPage(page *dataset.Page, format OutputFormat) ([]byte, error) {
	if page == nil {
		return nil, fmt.Errorf("page is nil")
	}
	if format == "" {
		format = r.config.DefaultFormat
	}

	switch format {
	case FormatJSON:
		return json.MarshalIndent(page, "", "  ")
	case FormatMarkdown:
		return r.renderMarkdown(page), nil
	case FormatPlain:
		return r.renderPlain(page), nil
	case FormatHTML:
		return r.renderHTML(page)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// Summarize builds the listing entry for page
func (r *Renderer) Summarize(page *dataset.Page) PageSummary {
	return PageSummary{
		Title:         page.Title,
		URL:           page.URL,
		Sections:      len(page.Sections),
		ContentLength: page.TotalContentLength(),
	}
}

func (r *Renderer) renderMarkdown(page *dataset.Page) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", displayTitle(page.Title))
	if page.URL != "" {
		fmt.Fprintf(&buf, "Source: <%s>\n\n", page.URL)
	}

	for _, s := range page.Sections {
		fmt.Fprintf(&buf, "## %s\n\n", s.Heading)
		if !s.AllVersions() {
			fmt.Fprintf(&buf, "_Versions: %s_\n\n", versionNames(s.Versions))
		}
		buf.WriteString(r.truncate(s.Content))
		buf.WriteString("\n\n")
	}

	return bytes.TrimRight(buf.Bytes(), "\n")
}

func (r *Renderer) renderPlain(page *dataset.Page) []byte {
	var buf bytes.Buffer

	title := displayTitle(page.Title)
	buf.WriteString(title + "\n")
	buf.WriteString(strings.Repeat("=", len(title)) + "\n\n")

	for _, s := range page.Sections {
		buf.WriteString(strings.ToUpper(s.Heading) + "\n")
		buf.WriteString(r.truncate(s.Content))
		buf.WriteString("\n\n")
	}

	return bytes.TrimRight(buf.Bytes(), "\n")
}

// renderHTML builds a document tree so that section text is always escaped
func (r *Renderer) renderHTML(page *dataset.Page) ([]byte, error) {
	title := displayTitle(page.Title)

	body := element(atom.Body)
	body.AppendChild(textElement(atom.H1, title))
	if page.URL != "" {
		link := element(atom.A)
		link.Attr = []html.Attribute{{Key: "href", Val: page.URL}}
		link.AppendChild(&html.Node{Type: html.TextNode, Data: page.URL})
		source := element(atom.P)
		source.AppendChild(link)
		body.AppendChild(source)
	}

	for _, s := range page.Sections {
		section := element(atom.Section)
		section.AppendChild(textElement(atom.H2, s.Heading))
		if !s.AllVersions() {
			section.AppendChild(textElement(atom.Em, "Versions: "+versionNames(s.Versions)))
		}
		for _, para := range strings.Split(r.truncate(s.Content), "\n\n") {
			if strings.TrimSpace(para) != "" {
				section.AppendChild(textElement(atom.P, para))
			}
		}
		body.AppendChild(section)
	}

	head := element(atom.Head)
	head.AppendChild(textElement(atom.Title, title))
	doc := element(atom.Html)
	doc.AppendChild(head)
	doc.AppendChild(body)

	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>")
	if err := html.Render(&buf, doc); err != nil {
		return nil, fmt.Errorf("failed to render page html: %w", err)
	}
	return buf.Bytes(), nil
}

func element(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
}

func textElement(a atom.Atom, text string) *html.Node {
	n := element(a)
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return n
}

func (r *Renderer) truncate(content string) string {
	limit := r.config.MaxSectionLength
	if limit <= 0 {
		return content
	}
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	return string(runes[:limit]) + "..."
}

func displayTitle(title string) string {
	return strings.ReplaceAll(title, "_", " ")
}

func versionNames(tags []dataset.VersionTag) string {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.DisplayName()
	}
	return strings.Join(names, ", ")
}
