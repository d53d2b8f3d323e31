package schema

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/graphqa/core"
	"github.com/poiesic/graphqa/graph/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCache_RequiresReader(t *testing.T) {
	_, err := NewCache(nil)
	assert.ErrorIs(t, err, ErrSchemaReaderRequired)

	_, err = NewCache(mock.NewMockDatabase(), WithRefreshInterval(-time.Second))
	assert.Error(t, err)
}

func TestCache_ServesCachedSchemaWithinInterval(t *testing.T) {
	db := mock.NewMockDatabase()
	db.Schema = filingsSchema()

	c, err := NewCache(db, WithRefreshInterval(time.Minute))
	require.NoError(t, err)
	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }

	ctx := context.Background()
	first, err := c.Get(ctx)
	require.NoError(t, err)
	second, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, db.RefreshCount())

	now = now.Add(2 * time.Minute)
	_, err = c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, db.RefreshCount())
}

func TestCache_Invalidate(t *testing.T) {
	db := mock.NewMockDatabase()
	c, err := NewCache(db, WithRefreshInterval(0))
	require.NoError(t, err)

	ctx := context.Background()
	_, err = c.Get(ctx)
	require.NoError(t, err)
	_, err = c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, db.RefreshCount())

	c.Invalidate()
	_, err = c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, db.RefreshCount())
}

func TestCache_WatchInvalidatesOnSignal(t *testing.T) {
	db := mock.NewMockDatabase()
	c, err := NewCache(db, WithRefreshInterval(0))
	require.NoError(t, err)

	ctx := context.Background()
	_, err = c.Get(ctx)
	require.NoError(t, err)

	signal := make(chan struct{})
	done := make(chan struct{})
	go func() {
		c.Watch(ctx, signal)
		close(done)
	}()
	signal <- struct{}{}
	close(signal)
	<-done

	_, err = c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, db.RefreshCount())
}

func TestCache_ConcurrentGet(t *testing.T) {
	db := mock.NewMockDatabase()
	db.Schema = filingsSchema()
	c, err := NewCache(db)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := c.Get(context.Background())
			assert.NoError(t, err)
			assert.True(t, s.HasLabel("Company"))
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, db.RefreshCount(), 16)
	assert.NotNil(t, c.Peek())
}

func TestCache_RefreshError(t *testing.T) {
	db := mock.NewMockDatabase()
	db.SchemaErr = core.NewError(core.KindDatabaseConnection, "", "refresh schema", errors.Join(core.ErrServiceUnavailable, errors.New("down")))

	c, err := NewCache(db)
	require.NoError(t, err)

	_, err = c.Get(context.Background())
	assert.ErrorIs(t, err, core.ErrDatabaseConnection)
	assert.ErrorIs(t, err, core.ErrServiceUnavailable)
	assert.Equal(t, core.PipelineStructured, core.PipelineOf(err))
	assert.Nil(t, c.Peek())
}
