// Package skills discovers SKILL.md documents. Each immediate subdirectory
// of the skills directory that contains a SKILL.md file contributes one
// skill document to the system prompt.
package skills

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const manifestName = "SKILL.md"

// Document is one discovered skill.
type Document struct {
	Name    string
	Content string
}

// LoadDocuments scans dir for skill manifests. A missing or empty skills
// directory yields no documents and no error. Results are sorted by name so
// prompt assembly is deterministic.
func LoadDocuments(dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading skills dir: %w", err)
	}

	var docs []Document
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name(), manifestName)
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading skill %s: %w", e.Name(), err)
		}
		docs = append(docs, Document{Name: e.Name(), Content: string(data)})
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}
