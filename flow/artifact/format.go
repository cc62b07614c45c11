package artifact

import (
	"fmt"
	"strings"
	"unicode"
)

// FormatPending renders drained links as the notification block shown to
// the user, a header plus one markdown link per artifact. Labels carry a
// leading emoji that stays outside the link text.
func FormatPending(links []Link) string {
	if len(links) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("📚 **Materials ready:**\n\n")
	for _, link := range links {
		emoji, rest := splitLabel(link.Label)
		if emoji != "" {
			b.WriteString(emoji)
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "[%s](%s)\n", rest, link.URL)
	}
	return b.String()
}

// splitLabel peels a leading emoji off a label. Labels without one pass
// through whole.
func splitLabel(label string) (emoji, rest string) {
	first, tail, found := strings.Cut(label, " ")
	if !found {
		return "", label
	}
	for _, r := range first {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return "", label
		}
	}
	return first, tail
}
