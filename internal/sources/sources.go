// Package sources manages the ingestion source list: a YAML file of URLs
// that can be edited while the server runs.
package sources

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// List is the on-disk source list format.
type List struct {
	URLs []string `yaml:"urls"`
}

// LoadList reads a YAML source list from path. Blank entries are dropped.
func LoadList(path string) (*List, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read source list: %w", err)
	}

	var list List
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse source list: %w", err)
	}

	urls := list.URLs[:0]
	for _, url := range list.URLs {
		if url != "" {
			urls = append(urls, url)
		}
	}
	list.URLs = urls
	return &list, nil
}
