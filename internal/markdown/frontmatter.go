package markdown

import (
	"bytes"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

var fmDelimiter = []byte("---")

// FrontMatter holds the YAML header fields the indexer understands.
type FrontMatter struct {
	Title        string    `yaml:"title"`
	Description  string    `yaml:"description"`
	Date         time.Time `yaml:"date"`
	LastMod      time.Time `yaml:"lastmod"`
	Weight       int       `yaml:"weight"`
	Category     string    `yaml:"category"`
	RequiresAuth bool      `yaml:"requiresAuth"`
	Draft        bool      `yaml:"draft"`
}

// Updated returns the most recent of LastMod and Date.
func (fm FrontMatter) Updated() time.Time {
	if fm.LastMod.After(fm.Date) {
		return fm.LastMod
	}
	return fm.Date
}

// SplitFrontMatter separates a leading "---" delimited YAML block from the
// markdown body. Sources without front matter are returned unchanged.
func SplitFrontMatter(source []byte) (FrontMatter, []byte, error) {
	var fm FrontMatter

	first, rest, _ := bytes.Cut(source, []byte("\n"))
	if !bytes.Equal(bytes.TrimSpace(first), fmDelimiter) {
		return fm, source, nil
	}

	// Read frontmatter until closing ---
	var header bytes.Buffer
	for len(rest) > 0 {
		var line []byte
		line, rest, _ = bytes.Cut(rest, []byte("\n"))
		if bytes.Equal(bytes.TrimSpace(line), fmDelimiter) {
			if err := yaml.Unmarshal(header.Bytes(), &fm); err != nil {
				return FrontMatter{}, nil, fmt.Errorf("invalid frontmatter: %w", err)
			}
			return fm, rest, nil
		}
		header.Write(line)
		header.WriteByte('\n')
	}
	return FrontMatter{}, nil, fmt.Errorf("unterminated frontmatter")
}
