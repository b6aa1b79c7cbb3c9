// Package story loads a scroll-driven story from markdown chapters:
// front matter, rendered HTML, and the embed placeholders the loader
// will hydrate.
package story

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
	"gopkg.in/yaml.v3"
)

// Chapter is one rendered section of the story.
type Chapter struct {
	Slug   string
	Title  string
	Anchor string
	HTML   template.HTML
	Path   string
}

// Story is the assembled page: ordered chapters plus the embed
// placeholders found across all of them.
type Story struct {
	Title        string
	Chapters     []Chapter
	Placeholders []Placeholder
}

// frontMatter is the YAML header accepted at the top of a chapter file.
type frontMatter struct {
	Title  string `yaml:"title"`
	Anchor string `yaml:"anchor"`
}

// markdown is the shared goldmark instance. WithUnsafe lets chapters
// carry raw placeholder HTML through to the page.
var markdown = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		highlighting.NewHighlighting(
			highlighting.WithStyle("github"),
		),
	),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithUnsafe(),
	),
)

// Load assembles the story from the content directory. Chapter order
// follows sorted file names, so numeric prefixes (01-intro.md) define
// the reading sequence. Embed directives are expanded into placeholder
// markup with document-unique node IDs before rendering.
func Load(dir, title string, include, exclude []string) (*Story, error) {
	paths, err := FindChapterFiles(dir, include, exclude)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no chapter markdown found in %s", dir)
	}

	s := &Story{Title: title}
	embedSeq := 0
	for _, rel := range paths {
		ch, err := loadChapter(filepath.Join(dir, filepath.FromSlash(rel)), rel, &embedSeq)
		if err != nil {
			return nil, err
		}
		s.Chapters = append(s.Chapters, ch)
		s.Placeholders = append(s.Placeholders, ScanPlaceholders(string(ch.HTML))...)
	}
	return s, nil
}

// loadChapter reads one markdown file, splits its front matter, expands
// embed directives, and renders the body.
func loadChapter(path, rel string, embedSeq *int) (Chapter, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Chapter{}, fmt.Errorf("reading chapter %s: %w", rel, err)
	}

	fm, body, err := splitFrontMatter(raw)
	if err != nil {
		return Chapter{}, fmt.Errorf("parsing front matter of %s: %w", rel, err)
	}

	slug := chapterSlug(rel)
	if fm.Title == "" {
		fm.Title = titleFromSlug(slug)
	}
	if fm.Anchor == "" {
		fm.Anchor = slug
	}

	expanded := ExpandEmbedDirectives(string(body), embedSeq)

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(expanded), &buf); err != nil {
		return Chapter{}, fmt.Errorf("rendering chapter %s: %w", rel, err)
	}

	return Chapter{
		Slug:   slug,
		Title:  fm.Title,
		Anchor: fm.Anchor,
		HTML:   template.HTML(buf.String()),
		Path:   rel,
	}, nil
}

// splitFrontMatter separates an optional leading YAML block delimited
// by --- lines from the markdown body.
func splitFrontMatter(raw []byte) (frontMatter, []byte, error) {
	var fm frontMatter
	if !bytes.HasPrefix(raw, []byte("---\n")) && !bytes.HasPrefix(raw, []byte("---\r\n")) {
		return fm, raw, nil
	}

	rest := raw[bytes.IndexByte(raw, '\n')+1:]
	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return fm, raw, nil
	}

	header := rest[:end]
	body := rest[end+len("\n---"):]
	if i := bytes.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	}

	if err := yaml.Unmarshal(header, &fm); err != nil {
		return fm, nil, err
	}
	return fm, body, nil
}

// chapterSlug derives a stable slug from the relative path, dropping a
// numeric ordering prefix: "02-the-storm.md" -> "the-storm".
func chapterSlug(rel string) string {
	base := strings.TrimSuffix(filepath.Base(rel), ".md")
	if i := strings.IndexByte(base, '-'); i > 0 {
		if _, err := fmt.Sscanf(base[:i], "%d", new(int)); err == nil {
			base = base[i+1:]
		}
	}
	return strings.ToLower(base)
}

func titleFromSlug(slug string) string {
	words := strings.Split(slug, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
