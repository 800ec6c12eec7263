package detector

import (
	"strings"
)

// modifiedSimilarity is the token-overlap score above which a
// removed/added sentence pair counts as one modification instead of two
// separate changes
const modifiedSimilarity = 0.5

// SplitSentences breaks text into trimmed sentences on ., ! and ?
// terminators. Fragments shorter than a few characters are dropped so
// stray punctuation does not inflate diff counts.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	flush := func() {
		sentence := strings.TrimSpace(current.String())
		current.Reset()
		if len(sentence) >= 3 {
			sentences = append(sentences, sentence)
		}
	}

	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			flush()
		}
	}
	flush()

	return sentences
}

// DiffSentences compares the sentence sets of two texts and returns the
// sentences only in the new text, the sentences only in the old text, and
// the number of pairs similar enough to count as modifications of one
// another. Modified pairs are excluded from the added/removed lists.
func DiffSentences(oldText, newText string) (added, removed []string, modified int) {
	oldSentences := SplitSentences(oldText)
	newSentences := SplitSentences(newText)

	oldSet := make(map[string]bool, len(oldSentences))
	for _, sentence := range oldSentences {
		oldSet[sentence] = true
	}
	newSet := make(map[string]bool, len(newSentences))
	for _, sentence := range newSentences {
		newSet[sentence] = true
	}

	var onlyNew, onlyOld []string
	for _, sentence := range newSentences {
		if !oldSet[sentence] {
			onlyNew = append(onlyNew, sentence)
		}
	}
	for _, sentence := range oldSentences {
		if !newSet[sentence] {
			onlyOld = append(onlyOld, sentence)
		}
	}

	// Pair up similar removed/added sentences as modifications
	usedNew := make([]bool, len(onlyNew))
	for _, oldSentence := range onlyOld {
		matched := false
		for i, newSentence := range onlyNew {
			if usedNew[i] {
				continue
			}
			if tokenSimilarity(oldSentence, newSentence) >= modifiedSimilarity {
				usedNew[i] = true
				modified++
				matched = true
				break
			}
		}
		if !matched {
			removed = append(removed, oldSentence)
		}
	}
	for i, sentence := range onlyNew {
		if !usedNew[i] {
			added = append(added, sentence)
		}
	}

	return added, removed, modified
}

// tokenSimilarity is the Jaccard similarity of the lowercased word sets
// of two sentences
func tokenSimilarity(a, b string) float64 {
	tokensA := tokenSet(a)
	tokensB := tokenSet(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	intersection := 0
	for token := range tokensA {
		if tokensB[token] {
			intersection++
		}
	}
	union := len(tokensA) + len(tokensB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, field := range strings.Fields(strings.ToLower(s)) {
		set[strings.Trim(field, ".,!?;:\"'()")] = true
	}
	delete(set, "")
	return set
}
