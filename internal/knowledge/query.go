package knowledge

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// stopWords are dropped from conversational queries before keyword search so
// "what did I say about goroutines?" matches on "goroutines" alone.
var stopWords = map[string]bool{
	"a": true, "about": true, "all": true, "an": true, "and": true, "any": true, "are": true,
	"as": true, "at": true, "be": true, "been": true, "but": true, "by": true, "can": true,
	"could": true, "did": true, "do": true, "does": true, "explain": true, "for": true,
	"from": true, "give": true, "had": true, "has": true, "have": true, "he": true, "her": true,
	"his": true, "how": true, "i": true, "if": true, "in": true, "into": true, "is": true,
	"it": true, "its": true, "me": true, "my": true, "not": true, "of": true, "on": true,
	"or": true, "our": true, "please": true, "she": true, "should": true, "so": true,
	"tell": true, "that": true, "the": true, "their": true, "them": true, "there": true,
	"these": true, "they": true, "this": true, "those": true, "to": true, "was": true,
	"we": true, "were": true, "what": true, "when": true, "where": true, "which": true,
	"who": true, "why": true, "will": true, "with": true, "would": true, "you": true, "your": true,
}

var phraseRegex = regexp.MustCompile(`"([^"]+)"`)

// analyzedQuery holds the searchable parts of a query.
type analyzedQuery struct {
	Original string
	// Terms are lowercased, edge punctuation trimmed, stop words removed, unique.
	Terms []string
	// Phrases are double-quoted parts of the query, lowercased.
	Phrases []string
}

func analyzeQuery(query string) *analyzedQuery {
	aq := &analyzedQuery{Original: query}
	seen := make(map[string]bool)
	addTerms := func(s string) {
		for _, w := range strings.Fields(s) {
			t := normalizeToken(w)
			if t == "" || stopWords[t] || seen[t] {
				continue
			}
			seen[t] = true
			aq.Terms = append(aq.Terms, t)
		}
	}
	for _, m := range phraseRegex.FindAllStringSubmatch(query, -1) {
		if p := strings.ToLower(strings.TrimSpace(m[1])); p != "" {
			aq.Phrases = append(aq.Phrases, p)
			addTerms(p)
		}
	}
	addTerms(phraseRegex.ReplaceAllString(query, " "))
	return aq
}

// normalizeToken lowercases and strips leading/trailing punctuation, keeping
// internal hyphens and underscores.
func normalizeToken(token string) string {
	token = strings.ToLower(token)
	return strings.TrimFunc(token, func(r rune) bool {
		return (unicode.IsPunct(r) || unicode.IsSymbol(r)) && r != '-' && r != '_'
	})
}

// keywordText is the text sent to the keyword index. Queries made only of
// stop words are searched as written.
func (aq *analyzedQuery) keywordText() string {
	if len(aq.Terms) == 0 {
		return aq.Original
	}
	return strings.Join(aq.Terms, " ")
}

// snippet returns at most maxLen runes of content, choosing the word window
// that contains the most distinct query terms. Phrase matches count double.
func snippet(content string, aq *analyzedQuery, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(content) <= maxLen {
		return content
	}
	words := strings.Fields(content)
	bestStart, bestEnd, bestScore := 0, 0, -1
	for start := range words {
		end, runes := start, 0
		for end < len(words) {
			n := utf8.RuneCountInString(words[end])
			if end > start {
				n++
			}
			if runes+n > maxLen {
				break
			}
			runes += n
			end++
		}
		if end == start {
			continue
		}
		score := windowScore(strings.ToLower(strings.Join(words[start:end], " ")), aq)
		if score > bestScore {
			bestStart, bestEnd, bestScore = start, end, score
		}
		if end == len(words) {
			break
		}
	}
	if bestEnd == 0 {
		r := []rune(content)
		return string(r[:maxLen]) + "..."
	}
	out := strings.Join(words[bestStart:bestEnd], " ")
	if bestStart > 0 {
		out = "..." + out
	}
	if bestEnd < len(words) {
		out += "..."
	}
	return out
}

func windowScore(window string, aq *analyzedQuery) int {
	score := 0
	for _, t := range aq.Terms {
		if strings.Contains(window, t) {
			score++
		}
	}
	for _, p := range aq.Phrases {
		if strings.Contains(window, p) {
			score += 2
		}
	}
	return score
}
