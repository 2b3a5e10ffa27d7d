package fuzzy

import (
	"strings"
)

// LevenshteinDistance calculates the edit distance between two strings:
// how many single-character insertions, deletions or substitutions are
// required to change one into the other
func LevenshteinDistance(s1, s2 string) int {
	s1 = normalizeString(s1)
	s2 = normalizeString(s2)

	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	r1 := []rune(s1)
	r2 := []rune(s2)
	m := len(r1)
	n := len(r2)

	d := make([][]int, m+1)
	for i := range d {
		d[i] = make([]int, n+1)
	}

	for i := 0; i <= m; i++ {
		d[i][0] = i
	}
	for j := 0; j <= n; j++ {
		d[0][j] = j
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			d[i][j] = min3(
				d[i-1][j]+1,      // deletion
				d[i][j-1]+1,      // insertion
				d[i-1][j-1]+cost, // substitution
			)
		}
	}

	return d[m][n]
}

// Match checks if query fuzzy-matches text within a given edit distance
func Match(query, text string, threshold int) bool {
	query = normalizeString(query)
	text = normalizeString(text)

	if strings.Contains(text, query) {
		return true
	}

	for _, word := range strings.Fields(text) {
		if LevenshteinDistance(query, word) <= threshold {
			return true
		}
		if strings.HasPrefix(word, query) {
			return true
		}
	}

	return false
}

// ScoreMessage scores how relevant a mailing-list message is to a query.
// Subject carries the most weight, then author, then body. Higher is more
// relevant; zero means no match.
func ScoreMessage(query, subject, author, body string) float64 {
	query = normalizeString(query)
	score := 0.0

	subjectNorm := normalizeString(subject)
	if strings.Contains(subjectNorm, query) {
		score += 100.0
		if containsWord(subjectNorm, query) {
			score += 50.0
		}
	} else {
		for _, word := range strings.Fields(subjectNorm) {
			dist := LevenshteinDistance(query, word)
			if dist <= 2 {
				score += 50.0 - float64(dist)*15
			}
			if strings.HasPrefix(word, query) {
				score += 40.0
			}
		}
	}

	authorNorm := normalizeString(author)
	if strings.Contains(authorNorm, query) {
		score += 80.0
		if containsWord(authorNorm, query) {
			score += 30.0
		}
	} else {
		for _, word := range strings.Fields(authorNorm) {
			dist := LevenshteinDistance(query, word)
			if dist <= 2 {
				score += 40.0 - float64(dist)*12
			}
			if strings.HasPrefix(word, query) {
				score += 35.0
			}
		}
	}

	// Body only contributes containment matches; edit distance over whole
	// messages is noise
	bodyNorm := normalizeString(body)
	if len(bodyNorm) > 500 {
		bodyNorm = bodyNorm[:500]
	}
	if strings.Contains(bodyNorm, query) {
		score += 30.0
	}

	return score
}

// MatchMessage checks if a message matches the query, with typo tolerance
// scaled to query length
func MatchMessage(query, subject, author, body string) bool {
	threshold := 2
	if len(query) <= 3 {
		threshold = 1
	} else if len(query) >= 8 {
		threshold = 3
	}

	if Match(query, subject, threshold) {
		return true
	}
	if Match(query, author, threshold) {
		return true
	}

	if len(body) > 0 {
		snippet := body
		if len(snippet) > 500 {
			snippet = snippet[:500]
		}
		if Match(query, snippet, threshold) {
			return true
		}
	}

	return false
}

func min3(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}

// normalizeString lowercases and collapses whitespace
func normalizeString(s string) string {
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), " ")
}

// containsWord checks if text contains query as a whole word
func containsWord(text, query string) bool {
	for _, word := range strings.Fields(text) {
		if word == query {
			return true
		}
	}
	return false
}
