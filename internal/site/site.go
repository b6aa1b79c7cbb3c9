// Package site assembles the story page and builds the static site.
package site

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/longformhq/longform/internal/progress"
	"github.com/longformhq/longform/internal/story"
)

// PageOptions selects how the story page is assembled.
type PageOptions struct {
	Title string
	// Live enables the websocket embed channel; static builds leave it
	// off and fall back to eager client-side embed loading.
	Live          bool
	EmbedsEnabled bool
	Version       string
	// ScriptURL is the provider script for static builds, where no
	// server proxies it. Ignored in live mode.
	ScriptURL string
}

// pageData is the data passed to the page template.
type pageData struct {
	Title    string
	Chapters []story.Chapter
	Live     bool
	Embeds   bool
	Version  string
	Script   string
}

var pageTmpl = template.Must(template.New("story-page").Parse(pageTemplate))

// RenderPage assembles the full story page.
func RenderPage(st *story.Story, opts PageOptions) ([]byte, error) {
	title := opts.Title
	if title == "" {
		title = st.Title
	}

	var buf bytes.Buffer
	err := pageTmpl.Execute(&buf, pageData{
		Title:    title,
		Chapters: st.Chapters,
		Live:     opts.Live,
		Embeds:   opts.EmbedsEnabled,
		Version:  opts.Version,
		Script:   opts.ScriptURL,
	})
	if err != nil {
		return nil, fmt.Errorf("executing page template: %w", err)
	}
	return buf.Bytes(), nil
}

// Build writes the static site: index.html plus the shared assets.
// Returns the number of files written.
func Build(st *story.Story, outputDir string, opts PageOptions, rep progress.Reporter) (int, error) {
	opts.Live = false

	page, err := RenderPage(st, opts)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Join(outputDir, "assets"), 0o755); err != nil {
		return 0, fmt.Errorf("creating output dir: %w", err)
	}

	files := []struct {
		name string
		body []byte
	}{
		{"index.html", page},
		{"assets/style.css", []byte(StyleCSS)},
		{"assets/story.js", []byte(StoryJS)},
	}

	if rep != nil {
		rep.Start(len(files))
		defer rep.Finish()
	}

	written := 0
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(outputDir, filepath.FromSlash(f.name)), f.body, 0o644); err != nil {
			return written, fmt.Errorf("writing %s: %w", f.name, err)
		}
		written++
		if rep != nil {
			rep.Update(written, "Wrote "+f.name)
		}
	}
	return written, nil
}
