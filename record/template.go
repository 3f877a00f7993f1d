package record

import (
	"fmt"
	"strings"
)

// scanTemplate walks template once, calling literal for plain text and
// placeholder for each {name}. "{{" and "}}" are literal braces and a
// format suffix such as {channel:d} is stripped from the name.
func scanTemplate(template string, literal func(byte), placeholder func(name string) error) error {
	for i := 0; i < len(template); i++ {
		c := template[i]
		switch c {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				literal('{')
				i++
				continue
			}
			end := strings.IndexByte(template[i+1:], '}')
			if end < 0 {
				return fmt.Errorf("%w: unclosed '{' in %q", ErrMalformedTemplate, template)
			}
			name := template[i+1 : i+1+end]
			if idx := strings.IndexByte(name, ':'); idx >= 0 {
				name = name[:idx]
			}
			if name == "" || strings.ContainsRune(name, '{') {
				return fmt.Errorf("%w: bad placeholder in %q", ErrMalformedTemplate, template)
			}
			if err := placeholder(name); err != nil {
				return err
			}
			i += end + 1
		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				literal('}')
				i++
				continue
			}
			return fmt.Errorf("%w: single '}' in %q", ErrMalformedTemplate, template)
		default:
			literal(c)
		}
	}
	return nil
}

// Substitute replaces {name} placeholders in template with values[name].
// "{{" and "}}" produce literal braces. A format suffix such as {channel:d}
// is accepted and the value is rendered in its default form. A placeholder
// with no entry in values fails with ErrMissingPlaceholder.
func Substitute(template string, values map[string]any) (string, error) {
	var b strings.Builder
	b.Grow(len(template))

	err := scanTemplate(template, func(c byte) { b.WriteByte(c) }, func(name string) error {
		value, ok := values[name]
		if !ok {
			return fmt.Errorf("%w: {%s} in %q", ErrMissingPlaceholder, name, template)
		}
		b.WriteString(format(value))
		return nil
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

// Placeholders returns the field names referenced by template, in order of
// first appearance.
func Placeholders(template string) ([]string, error) {
	var names []string
	seen := make(map[string]bool)
	err := scanTemplate(template, func(byte) {}, func(name string) error {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

func format(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
