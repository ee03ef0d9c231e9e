package gossip

import (
	"context"
	"testing"
	"time"

	"github.com/Marwakhot/chronicles/pkg/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerGeneratesUntilShutdown(t *testing.T) {
	p := newPipeline(t)
	mgr := lifecycle.NewManager(nil)

	require.NoError(t, mgr.Run("gossip-scheduler", NewScheduler(p.svc, 10*time.Millisecond)))

	assert.Eventually(t, func() bool {
		n, err := p.store.Count(context.Background())
		return err == nil && n > 0
	}, 2*time.Second, 10*time.Millisecond)

	mgr.Shutdown()
	assert.Empty(t, mgr.WaitWithTimeout(time.Second))
}
