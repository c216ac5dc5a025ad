package debounce

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebounce_Coalesces(t *testing.T) {
	d := New(30 * time.Millisecond)
	var calls atomic.Int32
	var last atomic.Int32

	for i := 1; i <= 5; i++ {
		v := int32(i)
		d.Debounce("k", func() {
			calls.Add(1)
			last.Store(v)
		})
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int32(5), last.Load())
}

func TestDebounce_KeysAreIndependent(t *testing.T) {
	d := New(20 * time.Millisecond)
	var a, b atomic.Int32

	d.Debounce("a", func() { a.Add(1) })
	d.Debounce("b", func() { b.Add(1) })

	require.Eventually(t, func() bool { return a.Load() == 1 && b.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, d.Len())
}

func TestCancel(t *testing.T) {
	d := New(20 * time.Millisecond)
	var calls atomic.Int32

	d.Debounce("k", func() { calls.Add(1) })
	assert.True(t, d.Pending("k"))
	assert.True(t, d.Cancel("k"))
	assert.False(t, d.Cancel("k"))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestStopAndWait(t *testing.T) {
	d := New(5 * time.Millisecond)
	started := make(chan struct{})
	release := make(chan struct{})

	d.Debounce("slow", func() {
		close(started)
		<-release
	})
	<-started

	assert.False(t, d.StopAndWait(20*time.Millisecond), "running callback must hold the wait")
	assert.False(t, d.Debounce("late", func() {}), "stopped debouncer refuses new callbacks")

	close(release)
	assert.True(t, d.StopAndWait(time.Second))
}
