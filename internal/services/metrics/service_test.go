package metrics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/lustro/internal/common"
	"github.com/ternarybob/lustro/internal/interfaces"
	"github.com/ternarybob/lustro/internal/models"
)

func TestRequestCounters(t *testing.T) {
	svc := NewService(common.GetLogger())

	svc.StartURLRequest("https://example.com/a")
	svc.StartURLRequest("https://example.com/b")
	svc.StartURLRequest("https://other.example.com/c")

	svc.CompleteURLRequest("https://example.com/a", 200, 120*time.Millisecond, 2048)
	svc.CompleteURLRequest("https://example.com/b", 404, 80*time.Millisecond, 512)
	svc.RecordFailedRequest("https://other.example.com/c", models.FailureKindTimeout)

	snap := svc.Snapshot()

	assert.Equal(t, int64(3), snap.RequestsStarted)
	assert.Equal(t, int64(2), snap.RequestsCompleted)
	assert.Equal(t, int64(1), snap.RequestsFailed)
	assert.Equal(t, int64(2560), snap.BytesFetched)
	assert.Equal(t, int64(1), snap.ByStatusClass["2xx"])
	assert.Equal(t, int64(1), snap.ByStatusClass["4xx"])
	assert.Equal(t, int64(1), snap.FailuresByKind[string(models.FailureKindTimeout)])

	assert.Equal(t, int64(2), snap.PerDomain["example.com"].Requests)
	assert.Equal(t, int64(2560), snap.PerDomain["example.com"].BytesFetched)
	assert.Equal(t, int64(1), snap.PerDomain["other.example.com"].Requests)
	assert.Equal(t, int64(1), snap.PerDomain["other.example.com"].Failures)
}

func TestStatusClassBuckets(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{200, "2xx"},
		{204, "2xx"},
		{301, "3xx"},
		{404, "4xx"},
		{429, "429"},
		{500, "5xx"},
		{503, "5xx"},
		{0, "other"},
	}

	for _, tt := range tests {
		if got := statusClass(tt.status); got != tt.want {
			t.Errorf("statusClass(%d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestSessionTiming(t *testing.T) {
	svc := NewService(common.GetLogger())
	ctx := context.Background()

	require.NoError(t, svc.OnLifecycle(ctx, interfaces.LifecycleScrapingStarted))

	snap := svc.Snapshot()
	assert.False(t, snap.SessionStart.IsZero())
	assert.Nil(t, snap.SessionEnd)

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, svc.OnLifecycle(ctx, interfaces.LifecycleScrapingCompleted))

	snap = svc.Snapshot()
	require.NotNil(t, snap.SessionEnd)
	assert.Greater(t, snap.TotalDuration, time.Duration(0))

	// A second terminal event must not move the end time
	end := *snap.SessionEnd
	require.NoError(t, svc.OnLifecycle(ctx, interfaces.LifecycleScrapingStopped))
	snap = svc.Snapshot()
	assert.Equal(t, end, *snap.SessionEnd)
}

func TestConcurrentRecording(t *testing.T) {
	svc := NewService(common.GetLogger())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				svc.StartURLRequest("https://example.com/page")
				svc.CompleteURLRequest("https://example.com/page", 200, time.Millisecond, 100)
			}
		}()
	}
	wg.Wait()

	snap := svc.Snapshot()
	assert.Equal(t, int64(1000), snap.RequestsStarted)
	assert.Equal(t, int64(1000), snap.RequestsCompleted)
	assert.Equal(t, int64(1000), snap.ByStatusClass["2xx"])
	assert.Equal(t, int64(1000), snap.PerDomain["example.com"].Requests)
}

func TestSnapshotIsACopy(t *testing.T) {
	svc := NewService(common.GetLogger())

	svc.CompleteURLRequest("https://example.com/a", 200, time.Millisecond, 10)
	snap := svc.Snapshot()
	snap.ByStatusClass["2xx"] = 999

	fresh := svc.Snapshot()
	assert.Equal(t, int64(1), fresh.ByStatusClass["2xx"])
}
