package download

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregator(t *testing.T) {
	log := &progressLog{}
	agg := NewAggregator(600, log.observe)

	agg.Start()
	assert.Equal(t, uint64(100), agg.Add(100))
	assert.Equal(t, uint64(300), agg.Add(200))
	assert.Equal(t, uint64(600), agg.Add(300))

	assert.Equal(t, [][2]uint64{{0, 600}, {100, 600}, {300, 600}, {600, 600}}, log.snapshot())
	assert.Equal(t, uint64(600), agg.Received())
	assert.Equal(t, uint64(600), agg.Total())
}

func TestAggregator_NilObserver(t *testing.T) {
	agg := NewAggregator(10, nil)
	assert.NotPanics(t, func() {
		agg.Start()
		agg.Add(10)
	})
	assert.Equal(t, uint64(10), agg.Received())
}

func TestAggregator_ConcurrentAddsAreMonotonic(t *testing.T) {
	const (
		workers = 8
		chunks  = 500
	)
	log := &progressLog{}
	agg := NewAggregator(workers*chunks*3, log.observe)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range chunks {
				agg.Add(3)
			}
		}()
	}
	wg.Wait()

	calls := log.snapshot()
	require.Len(t, calls, workers*chunks)
	for i := 1; i < len(calls); i++ {
		assert.GreaterOrEqual(t, calls[i][0], calls[i-1][0])
	}
	assert.Equal(t, uint64(workers*chunks*3), calls[len(calls)-1][0])
}
