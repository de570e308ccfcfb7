package mredis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferPoolGrowsLazilyUpToCap(t *testing.T) {
	p := NewBufferPool(2)

	b1, err := p.Acquire(context.Background(), time.Second)
	require.NoError(t, err)
	b2, err := p.Acquire(context.Background(), time.Second)
	require.NoError(t, err)

	assert.Equal(t, 2, p.Live())

	_, err = p.Acquire(context.Background(), 20*time.Millisecond)
	assert.True(t, errors.Is(err, ErrTimeout))

	b1.Release()
	b2.Release()
}

func TestBufferPoolReusesReleased(t *testing.T) {
	p := NewBufferPool(1)
	b1, err := p.Acquire(context.Background(), time.Second)
	require.NoError(t, err)
	b1.Release()

	b2, err := p.Acquire(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Same(t, b1, b2)
	assert.Equal(t, 1, p.Live())
	b2.Release()
}

func TestBufferPoolNeverExceedsCap(t *testing.T) {
	const cap = 4
	p := NewBufferPool(cap)

	var wg sync.WaitGroup
	var mu sync.Mutex
	max := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := p.Acquire(context.Background(), time.Second)
			if err != nil {
				return
			}
			mu.Lock()
			if live := p.Live(); live > max {
				max = live
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			b.Release()
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, max, cap)
}
