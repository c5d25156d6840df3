package locator

import "strings"

// EscapeQuotes renders s as an XPath string literal. XPath 1.0 has no escape
// sequences, so a value holding both quote kinds becomes a concat() call.
func EscapeQuotes(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, `'`) {
		return `'` + s + `'`
	}

	parts := strings.Split(s, `"`)
	args := make([]string, 0, len(parts)*2)
	for i, part := range parts {
		if i > 0 {
			args = append(args, `'"'`)
		}
		if part != "" {
			args = append(args, `"`+part+`"`)
		}
	}
	return "concat(" + strings.Join(args, ",") + ")"
}

// FromClass returns an XPath predicate body matching elements whose class
// attribute holds the exact token class.
func FromClass(class string) string {
	return `contains(concat(" ", normalize-space(@class), " "), " ` + class + ` ")`
}
