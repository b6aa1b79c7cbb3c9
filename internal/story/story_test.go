package story

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeChapter(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestLoadOrdersChaptersAndNumbersEmbeds(t *testing.T) {
	dir := t.TempDir()
	writeChapter(t, dir, "02-the-storm.md", `---
title: The Storm
---
Wind rose over the harbor.

::embed https://example.com/status/222
`)
	writeChapter(t, dir, "01-departure.md", `---
title: Departure
anchor: leaving
---
# Leaving port

::embed https://example.com/status/111
`)

	s, err := Load(dir, "Voyage", []string{"**/*.md"}, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(s.Chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(s.Chapters))
	}
	if s.Chapters[0].Title != "Departure" || s.Chapters[1].Title != "The Storm" {
		t.Errorf("chapter order wrong: %q, %q", s.Chapters[0].Title, s.Chapters[1].Title)
	}
	if s.Chapters[0].Anchor != "leaving" {
		t.Errorf("anchor: got %q, want %q", s.Chapters[0].Anchor, "leaving")
	}
	if s.Chapters[1].Anchor != "the-storm" {
		t.Errorf("derived anchor: got %q, want %q", s.Chapters[1].Anchor, "the-storm")
	}

	if len(s.Placeholders) != 2 {
		t.Fatalf("expected 2 placeholders, got %d", len(s.Placeholders))
	}
	// Node IDs number across the document in reading order.
	if s.Placeholders[0].NodeID != "embed-1" || s.Placeholders[1].NodeID != "embed-2" {
		t.Errorf("node ids: got %q, %q", s.Placeholders[0].NodeID, s.Placeholders[1].NodeID)
	}
	if s.Placeholders[0].Permalink != "https://example.com/status/111" {
		t.Errorf("first placeholder permalink: got %q", s.Placeholders[0].Permalink)
	}
	for _, p := range s.Placeholders {
		if !p.HasInner {
			t.Errorf("%s: generated placeholder should carry its inner element", p.NodeID)
		}
	}
}

func TestLoadRespectsExcludes(t *testing.T) {
	dir := t.TempDir()
	writeChapter(t, dir, "01-keep.md", "kept\n")
	writeChapter(t, dir, "_notes.md", "ignored\n")
	if err := os.MkdirAll(filepath.Join(dir, "drafts"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeChapter(t, dir, filepath.Join("drafts", "02-wip.md"), "ignored\n")

	s, err := Load(dir, "T", []string{"**/*.md"}, []string{"drafts/**", "**/_*.md"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(s.Chapters) != 1 {
		t.Fatalf("expected 1 chapter, got %d", len(s.Chapters))
	}
	if s.Chapters[0].Slug != "keep" {
		t.Errorf("slug: got %q, want %q", s.Chapters[0].Slug, "keep")
	}
}

func TestLoadEmptyContentDirErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(dir, "T", nil, nil); err == nil {
		t.Error("expected error for content dir without chapters")
	}
}

func TestChapterWithoutFrontMatter(t *testing.T) {
	dir := t.TempDir()
	writeChapter(t, dir, "03-into-the-deep.md", "No header here.\n")

	s, err := Load(dir, "T", nil, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	ch := s.Chapters[0]
	if ch.Title != "Into The Deep" {
		t.Errorf("derived title: got %q", ch.Title)
	}
	if !strings.Contains(string(ch.HTML), "No header here.") {
		t.Errorf("body lost: %q", ch.HTML)
	}
}

func TestExpandEmbedDirectives(t *testing.T) {
	seq := 0
	out := ExpandEmbedDirectives("before\n::embed https://example.com/a\nafter\n", &seq)

	if !strings.Contains(out, `data-permalink="https://example.com/a"`) {
		t.Errorf("permalink missing from expansion:\n%s", out)
	}
	if !strings.Contains(out, `id="embed-1"`) {
		t.Errorf("node id missing from expansion:\n%s", out)
	}
	if !strings.Contains(out, "embed-load-now") {
		t.Errorf("manual trigger control missing:\n%s", out)
	}
	if !strings.Contains(out, "before\n") || !strings.Contains(out, "\nafter") {
		t.Errorf("surrounding lines damaged:\n%s", out)
	}

	// Directives without a permalink are left alone.
	seq = 0
	out = ExpandEmbedDirectives("::embed   \n", &seq)
	if seq != 0 {
		t.Errorf("empty directive must not consume a node id")
	}
}

func TestScanPlaceholders(t *testing.T) {
	rendered := `
<figure id="embed-1" data-permalink="https://example.com/1">
  <div class="embed-placeholder">loading</div>
</figure>
<div id="embed-2" data-permalink="https://example.com/2"></div>
<p>plain text</p>`

	got := ScanPlaceholders(rendered)
	if len(got) != 2 {
		t.Fatalf("expected 2 placeholders, got %d", len(got))
	}

	if got[0].NodeID != "embed-1" || !got[0].HasInner {
		t.Errorf("first placeholder: %+v", got[0])
	}
	// Missing inner placeholder element is reported, not dropped: the
	// loader logs and skips it.
	if got[1].NodeID != "embed-2" || got[1].HasInner {
		t.Errorf("second placeholder should be flagged malformed: %+v", got[1])
	}
}

func TestScanPlaceholdersRejectsDoubleInner(t *testing.T) {
	rendered := `<div data-permalink="https://example.com/1">
  <div class="embed-placeholder">a</div>
  <div class="embed-placeholder">b</div>
</div>`

	got := ScanPlaceholders(rendered)
	if len(got) != 1 {
		t.Fatalf("expected 1 placeholder, got %d", len(got))
	}
	if got[0].HasInner {
		t.Error("two inner placeholder elements must flag the container malformed")
	}
}
