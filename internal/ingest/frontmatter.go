package ingest

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// DocumentMeta is the metadata carried by a document's YAML front matter.
type DocumentMeta struct {
	Title    string `yaml:"title"`
	Author   string `yaml:"author"`
	Date     string `yaml:"date"`
	Category string `yaml:"category"`
	Source   string `yaml:"source"`
}

const frontMatterDelimiter = "---"

// splitFrontMatter separates a leading YAML front matter block from the
// document body. Documents without front matter come back with empty metadata
// and the full content as body.
func splitFrontMatter(content string) (DocumentMeta, string, error) {
	var meta DocumentMeta

	if !strings.HasPrefix(content, frontMatterDelimiter+"\n") &&
		content != frontMatterDelimiter {
		return meta, content, nil
	}

	rest := content[len(frontMatterDelimiter)+1:]
	end := strings.Index(rest, "\n"+frontMatterDelimiter)
	if end < 0 {
		return meta, content, nil
	}

	block := rest[:end]
	body := rest[end+len(frontMatterDelimiter)+1:]
	body = strings.TrimPrefix(body, "\n")

	if err := yaml.Unmarshal([]byte(block), &meta); err != nil {
		return DocumentMeta{}, "", fmt.Errorf("invalid front matter: %w", err)
	}
	return meta, body, nil
}

// titleFromFilename derives a readable title from a file name: extension
// stripped, separators spaced, words capitalized.
func titleFromFilename(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)

	words := strings.Fields(name)
	for i, word := range words {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
