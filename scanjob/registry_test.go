package scanjob

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_Lifecycle(t *testing.T) {
	r := NewRegistry()

	r.Register(1)
	assert.False(t, r.IsStopped(1))

	assert.True(t, r.Stop(1))
	assert.True(t, r.IsStopped(1))

	r.Unregister(1)
	assert.False(t, r.IsStopped(1))
	assert.False(t, r.Stop(1))
}

func TestRegistry_UnknownScan(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Stop(99))
	assert.False(t, r.IsStopped(99))
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for id := 1; id <= 50; id++ {
		r.Register(id)
		wg.Add(2)
		go func(id int) {
			defer wg.Done()
			r.Stop(id)
		}(id)
		go func(id int) {
			defer wg.Done()
			r.IsStopped(id)
		}(id)
	}
	wg.Wait()

	for id := 1; id <= 50; id++ {
		assert.True(t, r.IsStopped(id))
	}
}
