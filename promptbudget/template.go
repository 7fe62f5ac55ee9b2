package promptbudget

import (
	"fmt"
	"strings"
)

// DefaultPlaceholder marks where document context is inserted.
const DefaultPlaceholder = "{{context}}"

// Template is a prompt with exactly one placeholder. It is split once at
// parse time so substitution never rescans the inserted context.
type Template struct {
	raw         string
	placeholder string
	prefix      string
	suffix      string
}

// ParseTemplate validates that text contains placeholder exactly once.
// An empty placeholder selects DefaultPlaceholder.
func ParseTemplate(text, placeholder string) (*Template, error) {
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}
	switch n := strings.Count(text, placeholder); n {
	case 1:
	case 0:
		return nil, &ConfigurationError{
			Reason: fmt.Sprintf("prompt template does not contain the placeholder %q", placeholder),
		}
	default:
		return nil, &ConfigurationError{
			Reason: fmt.Sprintf("prompt template contains the placeholder %q %d times, expected once", placeholder, n),
		}
	}

	i := strings.Index(text, placeholder)
	return &Template{
		raw:         text,
		placeholder: placeholder,
		prefix:      text[:i],
		suffix:      text[i+len(placeholder):],
	}, nil
}

// MustParseTemplate panics on error. Intended for compiled-in templates.
func MustParseTemplate(text, placeholder string) *Template {
	t, err := ParseTemplate(text, placeholder)
	if err != nil {
		panic(err)
	}
	return t
}

// Raw returns the template text including the placeholder.
func (t *Template) Raw() string { return t.raw }

// Placeholder returns the marker this template was parsed with.
func (t *Template) Placeholder() string { return t.placeholder }

// Skeleton is the template with the placeholder removed. Its token count is
// the fixed overhead of every assembled prompt.
func (t *Template) Skeleton() string { return t.prefix + t.suffix }

// Fill substitutes context for the placeholder. The context is inserted
// verbatim, so placeholder-like text inside it is left alone.
func (t *Template) Fill(context string) string {
	var b strings.Builder
	b.Grow(len(t.prefix) + len(context) + len(t.suffix))
	b.WriteString(t.prefix)
	b.WriteString(context)
	b.WriteString(t.suffix)
	return b.String()
}
