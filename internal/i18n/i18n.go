package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

//go:embed locales
var bundleFS embed.FS

// Catalog holds every locale's messages flattened into one dot-path keyed
// lookup table per locale.
type Catalog struct {
	defaultLocale string
	tables        map[string]map[string]string
	tags          []language.Tag
	matcher       language.Matcher
	locales       []string
}

// Load parses the embedded per-locale, per-namespace JSON bundles. Namespace
// files merge into a single table; keys are addressed as
// "namespace.section.key".
func Load(defaultLocale string) (*Catalog, error) {
	entries, err := bundleFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read locales dir: %w", err)
	}

	c := &Catalog{
		defaultLocale: defaultLocale,
		tables:        make(map[string]map[string]string),
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		locale := entry.Name()
		table, err := loadLocale(bundleFS, path.Join("locales", locale))
		if err != nil {
			return nil, fmt.Errorf("load locale %s: %w", locale, err)
		}
		c.tables[locale] = table
		c.locales = append(c.locales, locale)
	}
	sort.Strings(c.locales)

	if _, ok := c.tables[defaultLocale]; !ok {
		return nil, fmt.Errorf("default locale %q has no bundle", defaultLocale)
	}

	// Default locale first so the matcher falls back to it
	c.tags = append(c.tags, language.Make(defaultLocale))
	for _, loc := range c.locales {
		if loc != defaultLocale {
			c.tags = append(c.tags, language.Make(loc))
		}
	}
	c.matcher = language.NewMatcher(c.tags)

	return c, nil
}

func loadLocale(fsys fs.FS, dir string) (map[string]string, error) {
	files, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	table := make(map[string]string)
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		raw, err := fs.ReadFile(fsys, path.Join(dir, f.Name()))
		if err != nil {
			return nil, err
		}
		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", f.Name(), err)
		}
		namespace := strings.TrimSuffix(f.Name(), ".json")
		flatten(namespace, doc, table)
	}
	return table, nil
}

func flatten(prefix string, doc map[string]any, out map[string]string) {
	for key, value := range doc {
		full := prefix + "." + key
		switch v := value.(type) {
		case string:
			out[full] = v
		case map[string]any:
			flatten(full, v, out)
		}
	}
}

// Locales lists the available locale codes.
func (c *Catalog) Locales() []string {
	return c.locales
}

// Has reports whether the locale has a bundle.
func (c *Catalog) Has(locale string) bool {
	_, ok := c.tables[locale]
	return ok
}

// Match negotiates the best available locale from Accept-Language style
// preferences, falling back to the default locale.
func (c *Catalog) Match(prefs string) string {
	if prefs == "" {
		return c.defaultLocale
	}
	tags, _, err := language.ParseAcceptLanguage(prefs)
	if err != nil || len(tags) == 0 {
		return c.defaultLocale
	}
	_, idx, _ := c.matcher.Match(tags...)
	if idx == 0 {
		return c.defaultLocale
	}
	base, _ := c.tags[idx].Base()
	loc := base.String()
	if c.Has(loc) {
		return loc
	}
	return c.defaultLocale
}

// T resolves a dot-path key for the locale, interpolating {placeholder}
// arguments. Missing keys fall back to the default locale, then to the key
// itself.
func (c *Catalog) T(locale, key string, args map[string]string) string {
	msg, ok := c.tables[locale][key]
	if !ok {
		msg, ok = c.tables[c.defaultLocale][key]
	}
	if !ok {
		return key
	}
	for name, value := range args {
		msg = strings.ReplaceAll(msg, "{"+name+"}", value)
	}
	return msg
}
