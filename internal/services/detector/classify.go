package detector

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/ternarybob/lustro/internal/models"
)

// Change ratio thresholds: below minorThreshold a change is Minor, below
// majorThreshold Moderate, at or above it Major.
const (
	minorThreshold = 0.10
	majorThreshold = 0.35
)

// structureTolerance is how far an element count may drift before a shape
// shift counts as structural
const structureTolerance = 0.25

// structureTextSimilarity is the whole-text token similarity above which
// a shape shift is classified as Structure rather than a content change
const structureTextSimilarity = 0.8

// Classify derives the change type between two versions whose hashes
// already differ
func Classify(previous, current models.PageVersion) models.ChangeType {
	oldText := strings.TrimSpace(previous.Text)
	newText := strings.TrimSpace(current.Text)

	if newText == "" && oldText != "" {
		return models.ChangeTypeRemoved
	}

	// Same words, different raw bytes: formatting only
	if collapse(oldText) == collapse(newText) {
		return models.ChangeTypeFormat
	}

	if structureShifted(previous.Fingerprint, current.Fingerprint) &&
		tokenSimilarity(oldText, newText) >= structureTextSimilarity {
		return models.ChangeTypeStructure
	}

	ratio := changedSentenceRatio(oldText, newText)

	switch {
	case ratio < minorThreshold:
		return models.ChangeTypeMinor
	case ratio < majorThreshold:
		return models.ChangeTypeModerate
	default:
		return models.ChangeTypeMajor
	}
}

// changedSentenceRatio is the share of sentences that moved between the
// two texts, measured against the larger sentence count
func changedSentenceRatio(oldText, newText string) float64 {
	added, removed, modified := DiffSentences(oldText, newText)

	oldCount := len(SplitSentences(oldText))
	newCount := len(SplitSentences(newText))
	total := oldCount
	if newCount > total {
		total = newCount
	}
	if total == 0 {
		return 0
	}

	changed := len(added) + len(removed) + modified
	ratio := float64(changed) / float64(total)
	if ratio > 1 {
		ratio = 1
	}
	return ratio
}

// structureShifted reports whether any element count drifted beyond the
// tolerance between fingerprints
func structureShifted(old, new models.StructureFingerprint) bool {
	if old.IsZero() && new.IsZero() {
		return false
	}
	return countShifted(old.Headings, new.Headings) ||
		countShifted(old.Paragraphs, new.Paragraphs) ||
		countShifted(old.ListItems, new.ListItems) ||
		countShifted(old.TableCells, new.TableCells)
}

func countShifted(old, new int) bool {
	if old == new {
		return false
	}
	larger := old
	if new > larger {
		larger = new
	}
	diff := old - new
	if diff < 0 {
		diff = -diff
	}
	return float64(diff)/float64(larger) > structureTolerance
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// HashText returns the hex-encoded SHA-256 of a text body
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
