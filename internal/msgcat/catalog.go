// Package msgcat holds the user-facing message strings embedded at build
// time, keyed by flattened dot paths ("error.game_not_found").
package msgcat

import (
	"embed"
	"fmt"
	"io/fs"
	"sync"

	yaml "gopkg.in/yaml.v3"
)

//go:embed messages.en.yaml
var defaultFiles embed.FS

type Catalog struct {
	data map[string]string
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the catalog built from the embedded messages. The embedded
// file is compiled in, so a parse failure is a programming error.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := New()
		if err != nil {
			panic(err)
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

func New() (*Catalog, error) {
	raw, err := fs.ReadFile(defaultFiles, "messages.en.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded messages: %w", err)
	}
	var root map[string]any
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("parse embedded messages: %w", err)
	}
	c := &Catalog{data: make(map[string]string)}
	flatten("", root, c.data)
	return c, nil
}

// Get returns the message for key, or the key itself when missing so a
// broken lookup is visible instead of silent.
func (c *Catalog) Get(key string) string {
	if v, ok := c.data[key]; ok {
		return v
	}
	return key
}

func (c *Catalog) Has(key string) bool {
	_, ok := c.data[key]
	return ok
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch t := v.(type) {
		case string:
			out[key] = t
		case map[string]any:
			flatten(key, t, out)
		}
	}
}

// Get is a shorthand for Default().Get.
func Get(key string) string { return Default().Get(key) }
