// Package locator describes how to find DOM nodes without finding them.
package locator

import (
	"fmt"
	"strings"
)

// Kind is the selector strategy of a Locator.
type Kind int

const (
	CSS Kind = iota
	ID
	ClassName
	TagName
	Name
	XPath
)

var kindPrefixes = map[string]Kind{
	"css":   CSS,
	"id":    ID,
	"class": ClassName,
	"tag":   TagName,
	"name":  Name,
	"xpath": XPath,
}

func (k Kind) String() string {
	switch k {
	case CSS:
		return "css"
	case ID:
		return "id"
	case ClassName:
		return "class"
	case TagName:
		return "tag"
	case Name:
		return "name"
	case XPath:
		return "xpath"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Locator is an immutable selector description. It can be resolved against
// the document root or against a previously located element.
type Locator struct {
	Kind  Kind
	Value string
}

// Parse reads a "kind:value" string such as "xpath:.//h4" or "id:dashbrd-edit".
// A string without a known prefix is treated as CSS.
func Parse(s string) (Locator, error) {
	if s == "" {
		return Locator{}, fmt.Errorf("locator: empty selector")
	}
	if prefix, value, ok := strings.Cut(s, ":"); ok {
		if kind, known := kindPrefixes[prefix]; known {
			if value == "" {
				return Locator{}, fmt.Errorf("locator: empty %s selector", prefix)
			}
			return Locator{Kind: kind, Value: value}, nil
		}
	}
	return Locator{Kind: CSS, Value: s}, nil
}

// MustParse is like Parse but panics on error. Meant for constant selectors.
func MustParse(s string) Locator {
	l, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return l
}

func ByID(id string) Locator { return Locator{Kind: ID, Value: id} }
func ByClass(class string) Locator { return Locator{Kind: ClassName, Value: class} }
func ByTag(tag string) Locator { return Locator{Kind: TagName, Value: tag} }
func ByName(name string) Locator { return Locator{Kind: Name, Value: name} }
func ByCSS(selector string) Locator { return Locator{Kind: CSS, Value: selector} }
func ByXPath(expression string) Locator { return Locator{Kind: XPath, Value: expression} }

// Absolute reports whether the locator ignores its context element. Only
// XPath expressions rooted at "/" do.
func (l Locator) Absolute() bool {
	return l.Kind == XPath && strings.HasPrefix(l.Value, "/")
}

// String renders the locator back into the form accepted by Parse.
func (l Locator) String() string {
	return l.Kind.String() + ":" + l.Value
}

// CSSSelector translates ID, ClassName, TagName, Name and CSS locators into a
// CSS selector. XPath locators cannot be translated.
func (l Locator) CSSSelector() (string, error) {
	switch l.Kind {
	case CSS:
		return l.Value, nil
	case ID:
		return `[id=` + cssString(l.Value) + `]`, nil
	case ClassName:
		return `[class~=` + cssString(l.Value) + `]`, nil
	case TagName:
		return l.Value, nil
	case Name:
		return `[name=` + cssString(l.Value) + `]`, nil
	default:
		return "", fmt.Errorf("locator: %s has no CSS form", l)
	}
}

func cssString(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}
