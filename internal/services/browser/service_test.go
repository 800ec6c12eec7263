package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/lustro/internal/common"
)

func TestPoolAcquireBeforeInit(t *testing.T) {
	p := newPool(common.GetLogger())

	_, err := p.acquire()
	assert.Error(t, err)
}

func TestPoolRejectsZeroSize(t *testing.T) {
	p := newPool(common.GetLogger())

	config := common.NewDefaultConfig().Browser
	config.PoolSize = 0
	err := p.init(&config, "test-agent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pool size")
}

func TestCloseWithoutLaunchIsSafe(t *testing.T) {
	svc := NewService(common.GetLogger(), common.NewDefaultConfig())
	assert.NoError(t, svc.Close())
	assert.NoError(t, svc.Close())
}
