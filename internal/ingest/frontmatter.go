package ingest

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// FrontMatter is the recognized YAML front-matter of a runbook document.
type FrontMatter struct {
	Title            string   `yaml:"title"`
	Tags             []string `yaml:"tags"`
	ApplicableShapes []string `yaml:"applicable_shapes"`
}

// splitFrontMatter separates an optional front-matter block (delimited by
// lines containing exactly "---" at document start) from the body. Documents
// without front matter return a zero FrontMatter and the full body.
func splitFrontMatter(doc string) (FrontMatter, string, error) {
	var fm FrontMatter

	lines := strings.SplitAfter(doc, "\n")
	if len(lines) == 0 || strings.TrimRight(lines[0], "\r\n") != "---" {
		return fm, doc, nil
	}

	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], "\r\n") != "---" {
			continue
		}
		raw := strings.Join(lines[1:i], "")
		if err := yaml.Unmarshal([]byte(raw), &fm); err != nil {
			return FrontMatter{}, "", fmt.Errorf("invalid front matter: %w", err)
		}
		return fm, strings.Join(lines[i+1:], ""), nil
	}

	// Opening fence without a closing one: treat the document as plain body.
	return FrontMatter{}, doc, nil
}
