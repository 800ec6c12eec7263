package kernel

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/lustro/internal/common"
	"github.com/ternarybob/lustro/internal/interfaces"
	"github.com/ternarybob/lustro/internal/models"
	"github.com/ternarybob/lustro/internal/services/events"
)

type fakeComponent struct {
	name      string
	initErr   error
	initPanic bool
	mu        sync.Mutex
	events    []interfaces.LifecycleEvent
	closed    bool
}

func (f *fakeComponent) Name() string { return f.name }

func (f *fakeComponent) Initialize(ctx context.Context, kernel interfaces.Kernel) error {
	if f.initPanic {
		panic("init blew up")
	}
	return f.initErr
}

func (f *fakeComponent) OnLifecycle(ctx context.Context, event interfaces.LifecycleEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeComponent) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeComponent) seen() []interfaces.LifecycleEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]interfaces.LifecycleEvent, len(f.events))
	copy(out, f.events)
	return out
}

// fakeProcessor advertises the URLProcessor capability
type fakeProcessor struct {
	fakeComponent
	run func(ctx context.Context, seeds []string) error
}

func (f *fakeProcessor) Run(ctx context.Context, seeds []string) error {
	if f.run != nil {
		return f.run(ctx, seeds)
	}
	return nil
}

func (f *fakeProcessor) ProcessURL(ctx context.Context, url string, depth int) error { return nil }
func (f *fakeProcessor) ProcessURLBatch(ctx context.Context, urls []string, depth int) error {
	return nil
}
func (f *fakeProcessor) InFlight() int { return 0 }

func newTestKernel(t *testing.T) *Kernel {
	t.Helper()
	logger := common.GetLogger()
	return New(common.NewDefaultConfig(), events.NewService(logger), logger)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	k := newTestKernel(t)

	require.NoError(t, k.Register(&fakeComponent{name: "a"}))
	err := k.Register(&fakeComponent{name: "a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegisterRejectsNil(t *testing.T) {
	k := newTestKernel(t)
	require.Error(t, k.Register(nil))
}

func TestLookupResolvesByCapability(t *testing.T) {
	k := newTestKernel(t)
	plain := &fakeComponent{name: "plain"}
	processor := &fakeProcessor{fakeComponent: fakeComponent{name: "processor"}}

	require.NoError(t, k.Register(plain))
	require.NoError(t, k.Register(processor))

	found, ok := Lookup[interfaces.URLProcessor](k)
	require.True(t, ok)
	assert.Equal(t, "processor", found.(interfaces.Component).Name())

	_, ok = Lookup[interfaces.StateManager](k)
	assert.False(t, ok)
}

func TestStartWithoutProcessorFails(t *testing.T) {
	k := newTestKernel(t)
	require.NoError(t, k.Register(&fakeComponent{name: "bystander"}))

	err := k.Start(context.Background(), []string{"http://example.test/"})
	require.Error(t, err)
	assert.Equal(t, models.ScraperStatusFailed, k.Status())
}

func TestStartCompletesOnDrain(t *testing.T) {
	k := newTestKernel(t)
	observer := &fakeComponent{name: "observer"}
	processor := &fakeProcessor{fakeComponent: fakeComponent{name: "processor"}}

	require.NoError(t, k.Register(observer))
	require.NoError(t, k.Register(processor))

	require.NoError(t, k.Start(context.Background(), []string{"http://example.test/"}))

	assert.Equal(t, models.ScraperStatusCompleted, k.Status())
	assert.Equal(t, []interfaces.LifecycleEvent{
		interfaces.LifecycleInitialized,
		interfaces.LifecycleScrapingStarted,
		interfaces.LifecycleScrapingCompleted,
	}, observer.seen())
	assert.True(t, observer.closed)
	assert.NotEmpty(t, k.RunID())
}

func TestInitFailureAbortsRun(t *testing.T) {
	k := newTestKernel(t)
	broken := &fakeComponent{name: "broken", initErr: fmt.Errorf("no disk")}
	processor := &fakeProcessor{fakeComponent: fakeComponent{name: "processor"}}

	require.NoError(t, k.Register(broken))
	require.NoError(t, k.Register(processor))

	err := k.Start(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.Equal(t, models.ScraperStatusFailed, k.Status())
}

func TestInitPanicIsRecovered(t *testing.T) {
	k := newTestKernel(t)
	require.NoError(t, k.Register(&fakeComponent{name: "bomb", initPanic: true}))
	require.NoError(t, k.Register(&fakeProcessor{fakeComponent: fakeComponent{name: "processor"}}))

	err := k.Start(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, models.ScraperStatusFailed, k.Status())
}

func TestStopProducesExactlyOneTerminalEvent(t *testing.T) {
	k := newTestKernel(t)
	observer := &fakeComponent{name: "observer"}
	started := make(chan struct{})
	processor := &fakeProcessor{
		fakeComponent: fakeComponent{name: "processor"},
		run: func(ctx context.Context, seeds []string) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		},
	}

	require.NoError(t, k.Register(observer))
	require.NoError(t, k.Register(processor))

	done := make(chan error, 1)
	go func() { done <- k.Start(context.Background(), []string{"http://example.test/"}) }()

	<-started
	require.NoError(t, k.Stop(context.Background()))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after Stop")
	}

	assert.Equal(t, models.ScraperStatusStopped, k.Status())

	terminal := 0
	for _, event := range observer.seen() {
		if event == interfaces.LifecycleScrapingCompleted || event == interfaces.LifecycleScrapingStopped {
			terminal++
		}
	}
	assert.Equal(t, 1, terminal, "exactly one terminal event must fire")
}

func TestRegisterAfterStartRejected(t *testing.T) {
	k := newTestKernel(t)
	require.NoError(t, k.Register(&fakeProcessor{fakeComponent: fakeComponent{name: "processor"}}))
	require.NoError(t, k.Start(context.Background(), nil))

	err := k.Register(&fakeComponent{name: "late"})
	require.Error(t, err)
}

func TestErrorRingIsBounded(t *testing.T) {
	k := newTestKernel(t)

	for i := 0; i < errorRingCap+25; i++ {
		k.AddError(fmt.Sprintf("http://example.test/%d", i), "boom")
	}

	errs := k.Errors()
	require.Len(t, errs, errorRingCap)
	// Oldest entries were evicted; the ring starts at entry 25
	assert.Equal(t, "http://example.test/25", errs[0].URL)
}

func TestPagesProcessedCounter(t *testing.T) {
	k := newTestKernel(t)

	assert.Equal(t, 1, k.AddPagesProcessed(1))
	assert.Equal(t, 3, k.AddPagesProcessed(2))
	assert.Equal(t, 3, k.PagesProcessed())
}
