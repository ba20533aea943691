package markdown

import (
	"strings"
	"testing"
	"time"
)

// TestParse_BasicHeaders tests sectioning with H1 and multiple H2s.
func TestParse_BasicHeaders(t *testing.T) {
	input := `# Getting Started

Introduction text here.

## Installation

Install steps here.

## Configuration

Config details here.
`

	page, err := NewParser().Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	sections := page.Sections

	// Expect 3 sections: H1, H1>H2 Installation, H1>H2 Configuration
	if len(sections) != 3 {
		t.Fatalf("Expected 3 sections, got %d", len(sections))
	}

	if page.Title != "Getting Started" {
		t.Errorf("Title: expected 'Getting Started', got %q", page.Title)
	}

	if sections[0].HeaderPath != "# Getting Started" {
		t.Errorf("Section 0 HeaderPath: expected '# Getting Started', got %q", sections[0].HeaderPath)
	}
	if sections[0].Text != "Introduction text here." {
		t.Errorf("Section 0 Text: got %q", sections[0].Text)
	}

	expectedPath := "# Getting Started > ## Installation"
	if sections[1].HeaderPath != expectedPath {
		t.Errorf("Section 1 HeaderPath: expected %q, got %q", expectedPath, sections[1].HeaderPath)
	}
	if sections[1].Title != "Installation" || sections[1].Level != 2 {
		t.Errorf("Section 1: got title %q level %d", sections[1].Title, sections[1].Level)
	}
	if sections[1].Anchor != "installation" {
		t.Errorf("Section 1 Anchor: expected 'installation', got %q", sections[1].Anchor)
	}
	if sections[1].Text != "Install steps here." {
		t.Errorf("Section 1 Text: got %q", sections[1].Text)
	}

	if sections[2].Index != 2 || sections[2].Text != "Config details here." {
		t.Errorf("Section 2: got index %d text %q", sections[2].Index, sections[2].Text)
	}
}

// TestParse_NestedContent tests that H3 content and code stay in their H2 section.
func TestParse_NestedContent(t *testing.T) {
	input := `# API Reference

Overview of the API.

## Methods

Available **methods**:

` + "```go" + `
func DoSomething() error {
    return nil
}
` + "```" + `

### Details

Some [details](https://example.com) here.

- List item 1
- List item 2
`

	page, err := NewParser().Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	// Should have 2 sections (H1 and H2) - H3 is not a split boundary
	if len(page.Sections) != 2 {
		t.Fatalf("Expected 2 sections, got %d", len(page.Sections))
	}

	methods := page.Sections[1].Text
	for _, want := range []string{"Available methods:", "func DoSomething()", "Details", "Some details here.", "List item 2"} {
		if !strings.Contains(methods, want) {
			t.Errorf("Methods section missing %q: %q", want, methods)
		}
	}
	if strings.Contains(methods, "**") || strings.Contains(methods, "https://") {
		t.Errorf("Methods section should be plain text: %q", methods)
	}
	if strings.Contains(page.Sections[0].Text, "Available") {
		t.Errorf("H1 section should stop at the first H2: %q", page.Sections[0].Text)
	}
}

// TestParse_MultipleH1s tests multiple top-level sections.
func TestParse_MultipleH1s(t *testing.T) {
	input := `# First Section

First content.

## First Subsection

First subsection content.

# Second Section

Second content.

## Second Subsection

Second subsection content.
`

	page, err := NewParser().Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	expectedPaths := []string{
		"# First Section",
		"# First Section > ## First Subsection",
		"# Second Section",
		"# Second Section > ## Second Subsection",
	}
	if len(page.Sections) != len(expectedPaths) {
		t.Fatalf("Expected %d sections, got %d", len(expectedPaths), len(page.Sections))
	}
	for i, expectedPath := range expectedPaths {
		if page.Sections[i].HeaderPath != expectedPath {
			t.Errorf("Section %d: expected path %q, got %q", i, expectedPath, page.Sections[i].HeaderPath)
		}
	}
	if page.Sections[2].Text != "Second content." {
		t.Errorf("Section 2 Text: got %q", page.Sections[2].Text)
	}
}

// TestParse_NoHeaders tests document with no headers.
func TestParse_NoHeaders(t *testing.T) {
	input := `This is a document with no headers.

Just plain text content.
`

	page, err := NewParser().Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(page.Sections) != 0 {
		t.Errorf("Expected no sections, got %d", len(page.Sections))
	}
	if page.Intro != "This is a document with no headers. Just plain text content." {
		t.Errorf("Intro: got %q", page.Intro)
	}
}

// TestParse_FrontMatter tests YAML front matter handling.
func TestParse_FrontMatter(t *testing.T) {
	input := `---
title: Becas y apoyos
description: Convocatorias vigentes
date: 2025-08-01
lastmod: 2026-01-15
weight: 5
category: servicios
requiresAuth: true
---
Texto introductorio.

## Requisitos

Promedio mínimo de 8.
`

	page, err := NewParser().Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	fm := page.FrontMatter
	if page.Title != "Becas y apoyos" {
		t.Errorf("Title: got %q", page.Title)
	}
	if fm.Description != "Convocatorias vigentes" || fm.Weight != 5 || fm.Category != "servicios" || !fm.RequiresAuth {
		t.Errorf("Unexpected front matter: %+v", fm)
	}
	if want := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC); !fm.Updated().Equal(want) {
		t.Errorf("Updated: expected %v, got %v", want, fm.Updated())
	}
	if page.Intro != "Texto introductorio." {
		t.Errorf("Intro: got %q", page.Intro)
	}
	if len(page.Sections) != 1 || page.Sections[0].Text != "Promedio mínimo de 8." {
		t.Errorf("Sections: got %+v", page.Sections)
	}
}

// TestSplitFrontMatter_Errors tests malformed front matter.
func TestSplitFrontMatter_Errors(t *testing.T) {
	if _, _, err := SplitFrontMatter([]byte("---\ntitle: x\n")); err == nil {
		t.Error("Expected error for unterminated front matter")
	}
	if _, _, err := SplitFrontMatter([]byte("---\ntitle: [x\n---\n")); err == nil {
		t.Error("Expected error for invalid YAML")
	}

	fm, body, err := SplitFrontMatter([]byte("# Plain\n"))
	if err != nil || fm.Title != "" || string(body) != "# Plain\n" {
		t.Errorf("Plain source should pass through, got %q, %v", body, err)
	}
}
