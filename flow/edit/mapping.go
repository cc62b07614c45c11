package edit

// mapOffset maps a rune offset in Normalize(original) back to a rune offset
// in original. It walks the original text, accumulating the number of
// normalized runes each original rune contributes: an HTML entity counts as
// one, the CR of a CRLF pair counts as zero, an intra-line whitespace run
// counts as one, and a trailing whitespace run counts as zero.
//
// The walk is a best-effort heuristic. When a transformation is not
// one-to-one (for example a multi-rune entity collapsing mid-span), the
// returned offset can drift by a few runes; callers treat it as
// approximate rather than exact.
func mapOffset(original string, normPos int) int {
	if normPos <= 0 {
		return 0
	}

	runes := []rune(original)
	norm := 0
	i := 0
	for i < len(runes) {
		if norm >= normPos {
			return i
		}
		r := runes[i]
		switch {
		case r == '&':
			if j := entityEnd(runes, i); j > 0 {
				norm++
				i = j
				continue
			}
			norm++
			i++
		case r == '\r':
			if i+1 < len(runes) && runes[i+1] == '\n' {
				i++
				continue
			}
			norm++
			i++
		case r == ' ' || r == '\t':
			j := i
			for j < len(runes) && (runes[j] == ' ' || runes[j] == '\t') {
				j++
			}
			if j < len(runes) && runes[j] != '\n' && runes[j] != '\r' {
				norm++
			}
			i = j
		default:
			norm++
			i++
		}
	}
	return len(runes)
}

// entityEnd returns the index just past a well-formed HTML entity starting
// at start, or -1 when the ampersand does not open one. Entities longer
// than 10 runes are not recognized, matching the common named and numeric
// forms.
func entityEnd(runes []rune, start int) int {
	limit := start + 10
	if limit > len(runes) {
		limit = len(runes)
	}
	for j := start + 1; j < limit; j++ {
		r := runes[j]
		if r == ';' {
			if j == start+1 {
				return -1
			}
			return j + 1
		}
		if !isEntityRune(r) {
			return -1
		}
	}
	return -1
}

func isEntityRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '#':
		return true
	}
	return false
}
