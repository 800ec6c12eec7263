package detector

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/lustro/internal/common"
	"github.com/ternarybob/lustro/internal/models"
)

func newTestService(config *common.Config) *Service {
	if config == nil {
		config = common.NewDefaultConfig()
	}
	svc := NewService(common.GetLogger(), config)
	svc.RegisterScraper("test",
		config.Detection.MaxVersionsToKeep,
		config.Detection.TrackContentVersions,
		config.Detection.NotifyOnChanges,
		config.Detection.NotificationEmail)
	return svc
}

func item(url, text string) *models.ContentItem {
	return &models.ContentItem{
		URL:           url,
		NormalizedURL: url,
		TextContent:   text,
		Hash:          HashText(text),
	}
}

func TestFirstSightingIsInitial(t *testing.T) {
	svc := newTestService(nil)

	change, report, err := svc.TrackPageVersion(context.Background(), item("http://a.test/", "hello world."), nil)
	require.NoError(t, err)
	assert.Equal(t, models.ChangeTypeInitial, change)
	assert.Nil(t, report)

	history := svc.History("http://a.test/")
	require.Len(t, history, 1)
	assert.Equal(t, models.ChangeTypeInitial, history[0].ChangeType)
	assert.Equal(t, HashText("hello world."), history[0].Hash)
}

func TestUnchangedContentIsNone(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	_, _, err := svc.TrackPageVersion(ctx, item("http://a.test/", "hello world."), nil)
	require.NoError(t, err)

	change, report, err := svc.TrackPageVersion(ctx, item("http://a.test/", "hello world."), nil)
	require.NoError(t, err)
	assert.Equal(t, models.ChangeTypeNone, change)
	assert.Nil(t, report)

	// Every sighting lands in history, identical refetches included
	history := svc.History("http://a.test/")
	require.Len(t, history, 2)
	assert.Equal(t, models.ChangeTypeInitial, history[0].ChangeType)
	assert.Equal(t, models.ChangeTypeNone, history[1].ChangeType)
	assert.Equal(t, history[0].Hash, history[1].Hash)
}

func TestUnchangedRefetchesHonorVersionCap(t *testing.T) {
	config := common.NewDefaultConfig()
	config.Detection.MaxVersionsToKeep = 3
	svc := newTestService(config)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _, err := svc.TrackPageVersion(ctx, item("http://a.test/", "same text every time."), nil)
		require.NoError(t, err)
	}

	assert.Len(t, svc.History("http://a.test/"), 3)
}

func TestVersionCapTrimsOldest(t *testing.T) {
	config := common.NewDefaultConfig()
	config.Detection.MaxVersionsToKeep = 3
	svc := newTestService(config)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		text := fmt.Sprintf("version %d content goes here.", i)
		_, _, err := svc.TrackPageVersion(ctx, item("http://a.test/", text), nil)
		require.NoError(t, err)
	}

	history := svc.History("http://a.test/")
	require.Len(t, history, 3)
	// Oldest trimmed first; newest survives at the tail
	assert.Equal(t, HashText("version 5 content goes here."), history[2].Hash)
}

func TestTrackVersionsDisabledKeepsLatestOnly(t *testing.T) {
	config := common.NewDefaultConfig()
	config.Detection.TrackContentVersions = false
	svc := newTestService(config)
	ctx := context.Background()

	_, _, err := svc.TrackPageVersion(ctx, item("http://a.test/", "first text."), nil)
	require.NoError(t, err)

	change, _, err := svc.TrackPageVersion(ctx, item("http://a.test/", "completely different content now."), nil)
	require.NoError(t, err)
	// Classification still runs against the last seen hash
	assert.True(t, change.IsChange())
	assert.Len(t, svc.History("http://a.test/"), 1)
}

func TestSignificantChangeReport(t *testing.T) {
	config := common.NewDefaultConfig()
	config.Detection.SignificantChangeThreshold = 3
	config.Detection.KeywordAlertList = []string{"regulation"}
	svc := newTestService(config)
	ctx := context.Background()

	_, _, err := svc.TrackPageVersion(ctx, item("http://a.test/", "Old first sentence. Old second sentence."), nil)
	require.NoError(t, err)

	newText := "Entirely new opening line. The regulation takes effect today. Compliance is now mandatory everywhere. Penalties apply to late filings. Appeals must follow official channels."
	change, report, err := svc.TrackPageVersion(ctx, item("http://a.test/", newText), nil)
	require.NoError(t, err)

	assert.Equal(t, models.ChangeTypeMajor, change)
	require.NotNil(t, report)
	assert.True(t, report.Critical)
	assert.Contains(t, report.MatchedKeywords, "regulation")
	assert.Greater(t, report.ChangedCount, config.Detection.SignificantChangeThreshold)
	assert.NotEmpty(t, report.AddedSentences)
}

func TestSmallChangeYieldsNoReport(t *testing.T) {
	config := common.NewDefaultConfig()
	config.Detection.SignificantChangeThreshold = 3
	svc := newTestService(config)
	ctx := context.Background()

	base := "First sentence stays. Second sentence stays. Third sentence stays. Fourth sentence stays. Fifth sentence stays. Sixth sentence stays. Seventh sentence stays. Eighth sentence stays. Ninth sentence stays. Tenth sentence stays. Eleventh sentence stays."
	_, _, err := svc.TrackPageVersion(ctx, item("http://a.test/", base), nil)
	require.NoError(t, err)

	changed := base + " One brand new closing sentence appears."
	change, report, err := svc.TrackPageVersion(ctx, item("http://a.test/", changed), nil)
	require.NoError(t, err)
	assert.Equal(t, models.ChangeTypeMinor, change)
	assert.Nil(t, report)
}

func TestRemovedContent(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	_, _, err := svc.TrackPageVersion(ctx, item("http://a.test/", "some content here."), nil)
	require.NoError(t, err)

	change, _, err := svc.TrackPageVersion(ctx, item("http://a.test/", ""), nil)
	require.NoError(t, err)
	assert.Equal(t, models.ChangeTypeRemoved, change)
}

// pageItem carries a raw body; the detector derives the hash from it
func pageItem(url, body, text string) *models.ContentItem {
	return &models.ContentItem{
		URL:           url,
		NormalizedURL: url,
		Body:          body,
		TextContent:   text,
	}
}

func TestVersionHashCoversRawBody(t *testing.T) {
	svc := newTestService(nil)

	body := `<html><head><script src="v1.js"></script></head><body><p>Hi there friend.</p></body></html>`
	_, _, err := svc.TrackPageVersion(context.Background(), pageItem("http://a.test/", body, "Hi there friend."), nil)
	require.NoError(t, err)

	history := svc.History("http://a.test/")
	require.Len(t, history, 1)
	assert.Equal(t, HashText(body), history[0].Hash)
}

func TestMarkupChangeWithSameTextIsFormat(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	v1 := pageItem("http://a.test/",
		`<html><head><script src="v1.js"></script></head><body><p>Hi there friend.</p></body></html>`,
		"Hi there friend.")
	_, _, err := svc.TrackPageVersion(ctx, v1, nil)
	require.NoError(t, err)

	// Same extracted text behind reshuffled markup still registers
	v2 := pageItem("http://a.test/",
		`<html><head><script src="v2.js"></script></head><body><div>Hi there friend.</div></body></html>`,
		"Hi there friend.")
	change, _, err := svc.TrackPageVersion(ctx, v2, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ChangeTypeFormat, change)
	assert.Len(t, svc.History("http://a.test/"), 2)
}

func TestFormatOnlyChange(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	_, _, err := svc.TrackPageVersion(ctx, item("http://a.test/", "spaced   out    text here."), nil)
	require.NoError(t, err)

	change, _, err := svc.TrackPageVersion(ctx, item("http://a.test/", "spaced out text here."), nil)
	require.NoError(t, err)
	assert.Equal(t, models.ChangeTypeFormat, change)
}

func TestStructureChange(t *testing.T) {
	previous := models.PageVersion{
		Text:        "The same exact sentence lives here.",
		Fingerprint: models.StructureFingerprint{Headings: 2, Paragraphs: 10},
	}
	current := models.PageVersion{
		Text:        "The same exact sentence lives here now.",
		Fingerprint: models.StructureFingerprint{Headings: 6, Paragraphs: 10},
	}
	assert.Equal(t, models.ChangeTypeStructure, Classify(previous, current))
}

func TestSplitSentences(t *testing.T) {
	sentences := SplitSentences("First one. Second one! Third one? Trailing fragment")
	assert.Equal(t, []string{"First one.", "Second one!", "Third one?", "Trailing fragment"}, sentences)
}

func TestSplitSentencesEmpty(t *testing.T) {
	assert.Empty(t, SplitSentences(""))
	assert.Empty(t, SplitSentences("  . ! ?  "))
}

func TestDiffSentencesCountsModifications(t *testing.T) {
	oldText := "The quick brown fox jumps over the dog. Totally unrelated old sentence."
	newText := "The quick brown fox jumps over the lazy dog. Fresh new material entirely different."

	added, removed, modified := DiffSentences(oldText, newText)
	assert.Equal(t, 1, modified, "near-identical sentences pair as a modification")
	assert.Len(t, added, 1)
	assert.Len(t, removed, 1)
}

func TestHashTextMatchesSHA256(t *testing.T) {
	assert.Equal(t,
		"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		HashText("hello"))
}
