// Package i18n provides localized message catalogs for user-facing errors
// and session status messages.
package i18n

import (
	"bytes"
	"text/template"

	"golang.org/x/text/language"
)

// Code mirrors the error codes defined in internal/errors/codes.go.
// These are duplicated as strings to avoid an import cycle.
type Code = string

// Catalog maps error codes to localized message templates.
type Catalog struct {
	locale   string
	tag      language.Tag
	messages map[Code]string
}

// Locale returns the catalog's BCP 47 locale string.
func (c *Catalog) Locale() string {
	if c == nil {
		return ""
	}
	return c.locale
}

// Format renders the message for the given code, interpolating metadata
// with {{.Key}} placeholders. Unknown codes fall back to the code itself.
func (c *Catalog) Format(code Code, metadata map[string]string) string {
	if c == nil {
		return code
	}
	raw, ok := c.messages[code]
	if !ok {
		return code
	}
	if len(metadata) == 0 {
		return raw
	}

	tmpl, err := template.New(code).Parse(raw)
	if err != nil {
		return raw
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, metadata); err != nil {
		return raw
	}
	return buf.String()
}

var catalogs = []*Catalog{enUSCatalog, koKRCatalog}

var matcher = func() language.Matcher {
	tags := make([]language.Tag, 0, len(catalogs))
	for _, catalog := range catalogs {
		tags = append(tags, catalog.tag)
	}
	return language.NewMatcher(tags)
}()

// GetCatalog returns the catalog best matching the requested locale,
// defaulting to en-US when nothing matches.
func GetCatalog(locale string) *Catalog {
	tag, err := language.Parse(locale)
	if err != nil {
		return enUSCatalog
	}
	_, index, confidence := matcher.Match(tag)
	if confidence == language.No {
		return enUSCatalog
	}
	return catalogs[index]
}
