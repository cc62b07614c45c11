// Package edit implements normalization and bounded approximate
// search-and-replace over working documents.
//
// Matching runs against normalized text (HTML entities decoded, line
// endings unified, whitespace collapsed) so that edits supplied by a model
// or a human still land when the document carries entity escapes or ragged
// spacing. Replacement happens in the original document, with normalized
// offsets mapped back through a best-effort linear walk.
package edit

import (
	"html"
	"regexp"
	"strings"
)

// DefaultThreshold is the minimum similarity required for an approximate
// match to be accepted.
const DefaultThreshold = 0.85

// exactOnlyBelow is the target length under which only exact matches are
// accepted. Approximate matching on very short targets produces false
// positives almost everywhere in a document.
const exactOnlyBelow = 10

// maxUnescapePasses bounds entity decoding; real documents settle in one
// or two passes.
const maxUnescapePasses = 10

var intraLineWS = regexp.MustCompile(`[ \t]+`)

// Normalize canonicalizes text for comparison: HTML entities are decoded,
// CRLF and lone CR become LF, runs of intra-line spaces and tabs collapse
// to a single space, and trailing whitespace is stripped per line.
//
// Normalize is idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(text string) string {
	if text == "" {
		return text
	}

	// Entity references may themselves be escaped ("&amp;amp;"), so
	// decoding repeats until it settles.
	s := text
	for i := 0; i < maxUnescapePasses; i++ {
		u := html.UnescapeString(s)
		if u == s {
			break
		}
		s = u
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		line = intraLineWS.ReplaceAllString(line, " ")
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}

// FindReplace locates target in document within DefaultThreshold similarity
// and splices in replacement. See FindReplaceThreshold.
func FindReplace(document, target, replacement string) (string, bool, string, float64) {
	return FindReplaceThreshold(document, target, replacement, DefaultThreshold)
}

// FindReplaceThreshold performs a bounded fuzzy search-and-replace.
//
// It returns the updated document, whether a match was found, the matched
// span from the original document, and the similarity of the match
// (1 - distance/len(target), floored at 0).
//
// Rules:
//   - Empty document or target fails immediately with similarity 0.
//   - The replacement is normalized before insertion so the document never
//     gains stray entities or CRLF line endings.
//   - Targets shorter than 10 characters match exactly or not at all,
//     trying the normalized forms first and the raw forms second.
//   - Longer targets match within a maximum edit distance of
//     max(1, round(len*(1-threshold))), capped at 100 for targets over
//     1000 characters and at min(1% of length, 50) for targets over 100.
//     The search runs against normalized text first and retries once
//     against the raw text when normalization hides a viable match.
func FindReplaceThreshold(document, target, replacement string, threshold float64) (string, bool, string, float64) {
	if document == "" || target == "" {
		return document, false, "", 0
	}

	normRepl := Normalize(replacement)
	normDoc := Normalize(document)
	normTarget := Normalize(target)

	targetRunes := []rune(target)
	docRunes := []rune(document)

	if len(targetRunes) < exactOnlyBelow {
		ndr := []rune(normDoc)
		ntr := []rune(normTarget)
		if idx := runeIndex(ndr, ntr); idx >= 0 {
			orig := mapOffset(document, idx)
			if orig >= 0 && orig+len(targetRunes) <= len(docRunes) {
				out := string(docRunes[:orig]) + normRepl + string(docRunes[orig+len(targetRunes):])
				return out, true, target, 1.0
			}
		}
		if idx := strings.Index(document, target); idx >= 0 {
			out := document[:idx] + normRepl + document[idx+len(target):]
			return out, true, target, 1.0
		}
		return document, false, "", 0
	}

	ntr := []rune(normTarget)
	maxDist := maxEditDistance(len(ntr), threshold)

	if m, ok := search([]rune(normDoc), ntr, maxDist); ok {
		sim := similarity(m.dist, len(ntr))
		start := mapOffset(document, m.start)
		end := mapOffset(document, m.end)
		if start >= 0 && end >= start && end <= len(docRunes) {
			matched := string(docRunes[start:end])
			out := string(docRunes[:start]) + normRepl + string(docRunes[end:])
			return out, true, matched, sim
		}
		// Offset mapping failed; fall back to normalized positions clamped
		// into the original. Less accurate but still a usable splice.
		s, e := clamp(m.start, len(docRunes)), clamp(m.end, len(docRunes))
		matched := string(docRunes[s:e])
		out := string(docRunes[:s]) + normRepl + string(docRunes[e:])
		return out, true, matched, sim
	}

	// Normalization itself may have obscured the match. One retry on the
	// raw text with the same distance bound.
	if m, ok := search(docRunes, targetRunes, maxDist); ok {
		sim := similarity(m.dist, len(targetRunes))
		matched := string(docRunes[m.start:m.end])
		out := string(docRunes[:m.start]) + normRepl + string(docRunes[m.end:])
		return out, true, matched, sim
	}

	return document, false, "", 0
}

// Remove deletes the closest occurrence of target from document, for use by
// content-safety scrubbing. It is stricter than FindReplace: targets under
// 10 characters must match exactly, and targets over 100 characters are
// bounded at edit distance 15. The second return reports whether anything
// was removed; on any failure the caller keeps the original text.
func Remove(document, target string) (string, bool) {
	if document == "" || target == "" {
		return document, false
	}

	targetRunes := []rune(target)
	if len(targetRunes) < exactOnlyBelow {
		if strings.Contains(document, target) {
			out := strings.TrimSpace(strings.Replace(document, target, "", 1))
			if out == "" {
				return document, false
			}
			return out, true
		}
		return document, false
	}

	maxDist := len(targetRunes) * 15 / 100
	if maxDist < 1 {
		maxDist = 1
	}
	if len(targetRunes) > 100 && maxDist > 15 {
		maxDist = 15
	}

	docRunes := []rune(document)
	m, ok := search(docRunes, targetRunes, maxDist)
	if !ok {
		return document, false
	}
	out := strings.TrimSpace(string(docRunes[:m.start]) + string(docRunes[m.end:]))
	if out == "" {
		return document, false
	}
	return out, true
}

// maxEditDistance computes the distance bound for a normalized target of n
// runes. The proportional bound is capped for long targets to keep the
// search cheap.
func maxEditDistance(n int, threshold float64) int {
	d := int(float64(n)*(1-threshold) + 0.5)
	if d < 1 {
		d = 1
	}
	switch {
	case n > 1000:
		if d > 100 {
			d = 100
		}
	case n > 100:
		limit := n / 100
		if limit > 50 {
			limit = 50
		}
		if limit < 1 {
			limit = 1
		}
		if d > limit {
			d = limit
		}
	}
	return d
}

func similarity(dist, targetLen int) float64 {
	if targetLen == 0 {
		if dist == 0 {
			return 1
		}
		return 0
	}
	s := 1 - float64(dist)/float64(targetLen)
	if s < 0 {
		return 0
	}
	return s
}

// match is an approximate occurrence of a pattern: rune offsets into the
// searched text plus the edit distance of the occurrence.
type match struct {
	start, end, dist int
}

// search finds the leftmost occurrence of pattern in text within maxDist
// Levenshtein distance, using the Sellers variant of the edit-distance DP
// (first row zeroed so a match may start anywhere). It settles on the local
// distance minimum of the leftmost hit, then recovers the start offset by
// probing candidate window lengths.
func search(text, pattern []rune, maxDist int) (match, bool) {
	n, m := len(text), len(pattern)
	if n == 0 || m == 0 {
		return match{}, false
	}

	prev := make([]int, m+1)
	curr := make([]int, m+1)
	for i := 0; i <= m; i++ {
		prev[i] = i
	}

	bestDist := maxDist + 1
	bestEnd := -1
	for j := 1; j <= n; j++ {
		curr[0] = 0
		for i := 1; i <= m; i++ {
			cost := 1
			if pattern[i-1] == text[j-1] {
				cost = 0
			}
			d := prev[i-1] + cost
			if v := prev[i] + 1; v < d {
				d = v
			}
			if v := curr[i-1] + 1; v < d {
				d = v
			}
			curr[i] = d
		}

		d := curr[m]
		if bestEnd >= 0 {
			if d < bestDist {
				bestDist, bestEnd = d, j
			} else if d > bestDist {
				break
			}
		} else if d <= maxDist {
			bestDist, bestEnd = d, j
		}
		prev, curr = curr, prev
	}

	if bestEnd < 0 {
		return match{}, false
	}

	start := recoverStart(text, pattern, bestEnd, maxDist)
	return match{start: start, end: bestEnd, dist: bestDist}, true
}

// recoverStart probes window lengths around len(pattern) ending at end and
// picks the one whose content is closest to the pattern.
func recoverStart(text, pattern []rune, end, maxDist int) int {
	m := len(pattern)
	bestStart := end - m
	if bestStart < 0 {
		bestStart = 0
	}
	bestDist := levenshtein(pattern, text[bestStart:end])

	for l := m - maxDist; l <= m+maxDist; l++ {
		if l < 1 || l == m {
			continue
		}
		s := end - l
		if s < 0 {
			continue
		}
		if d := levenshtein(pattern, text[s:end]); d < bestDist {
			bestDist, bestStart = d, s
		}
	}
	return bestStart
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			d := prev[j-1] + cost
			if v := prev[j] + 1; v < d {
				d = v
			}
			if v := curr[j-1] + 1; v < d {
				d = v
			}
			curr[j] = d
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func runeIndex(haystack, needle []rune) int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1
	}
	idx := strings.Index(string(haystack), string(needle))
	if idx < 0 {
		return -1
	}
	return len([]rune(string(haystack)[:idx]))
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
