package notifications

import (
	"html"
	"strings"
)

// Token is a localization placeholder of the form
// [[namespace:key, arg1, arg2]], resolved to display text by the client or a
// localization service at render time.
type Token struct {
	Namespace string
	Key       string
	Args      []string
}

// String renders the token in its wire form.
func (t Token) String() string {
	var b strings.Builder
	b.WriteString("[[")
	b.WriteString(t.Namespace)
	b.WriteString(":")
	b.WriteString(t.Key)
	for _, arg := range t.Args {
		b.WriteString(", ")
		b.WriteString(arg)
	}
	b.WriteString("]]")
	return b.String()
}

// EscapeTitle prepares a topic title for embedding as a token argument:
// entities are decoded, then the characters that collide with the token
// delimiters are substituted.
func EscapeTitle(title string) string {
	decoded := html.UnescapeString(title)
	decoded = strings.ReplaceAll(decoded, "%", "&#37;")
	return strings.ReplaceAll(decoded, ",", "&#44;")
}
