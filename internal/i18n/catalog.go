package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
)

//go:embed locales/*.json
var embedded embed.FS

// Catalog is the key→template table of one locale. A Catalog is never
// mutated after construction.
type Catalog struct {
	locale   string
	messages map[string]string
}

// NewCatalog copies messages into a catalog for locale.
func NewCatalog(locale string, messages map[string]string) *Catalog {
	cp := make(map[string]string, len(messages))
	for k, v := range messages {
		cp[k] = v
	}
	return &Catalog{locale: locale, messages: cp}
}

// Locale returns the locale identifier of the catalog.
func (c *Catalog) Locale() string { return c.locale }

// Len returns the number of keys.
func (c *Catalog) Len() int { return len(c.messages) }

func (c *Catalog) lookup(key string) (string, bool) {
	t, ok := c.messages[key]
	return t, ok
}

// Loader fetches the raw key→string table of a locale.
type Loader interface {
	Load(ctx context.Context, locale string) (map[string]string, error)
}

// LoaderFunc adapts a function to a Loader.
type LoaderFunc func(ctx context.Context, locale string) (map[string]string, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, locale string) (map[string]string, error) {
	return f(ctx, locale)
}

// CatalogFile returns the resource name of the catalog for locale, as served
// under /i18n/ and stored in the embedded defaults.
func CatalogFile(locale string) string {
	return "messages_" + locale + ".json"
}

// FSLoader reads catalogs from a filesystem holding messages_<locale>.json
// files.
type FSLoader struct {
	FS fs.FS
}

// Load reads and decodes the catalog file for locale.
func (l FSLoader) Load(_ context.Context, locale string) (map[string]string, error) {
	data, err := fs.ReadFile(l.FS, CatalogFile(locale))
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", locale, err)
	}
	var out map[string]string
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", locale, err)
	}
	return out, nil
}

// Embedded returns a loader over the catalogs compiled into the binary.
func Embedded() FSLoader {
	// fs.Sub only fails on an invalid path name.
	sub, _ := fs.Sub(embedded, "locales")
	return FSLoader{FS: sub}
}

// FirstOf returns a loader that tries each loader in order and returns the
// first successful result.
func FirstOf(loaders ...Loader) Loader {
	return LoaderFunc(func(ctx context.Context, locale string) (map[string]string, error) {
		var errs []error
		for _, l := range loaders {
			m, err := l.Load(ctx, locale)
			if err == nil {
				return m, nil
			}
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
		}
		return nil, errors.Join(errs...)
	})
}
