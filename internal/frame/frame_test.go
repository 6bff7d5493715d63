package frame

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petems/wavescope/internal/audio"
)

func TestReceiveLatestEmpty(t *testing.T) {
	_, c := New()

	block, ok := c.ReceiveLatest()
	assert.False(t, ok)
	assert.Nil(t, block)
}

func TestSendThenReceiveReturnsSameBlock(t *testing.T) {
	p, c := New()

	want := audio.SampleBlock{0.1, -0.2, 0.3}
	p.Send(want)

	got, ok := c.ReceiveLatest()
	require.True(t, ok)
	assert.Equal(t, want, got)

	_, ok = c.ReceiveLatest()
	assert.False(t, ok, "a block is received at most once")
}

func TestReceiveLatestDiscardsOlderBlocks(t *testing.T) {
	p, c := New()

	p.Send(audio.SampleBlock{1})
	p.Send(audio.SampleBlock{2})
	p.Send(audio.SampleBlock{3})

	got, ok := c.ReceiveLatest()
	require.True(t, ok)
	assert.Equal(t, audio.SampleBlock{3}, got)

	_, ok = c.ReceiveLatest()
	assert.False(t, ok)

	assert.Equal(t, Stats{Sent: 3, Dropped: 2, Received: 1}, c.Stats())
}

func TestSendNeverBlocksWithoutConsumer(t *testing.T) {
	p, c := New()

	const n = 1_000_000
	block := audio.SampleBlock{0, 0.5, -0.5}

	done := make(chan struct{})
	go func() {
		for i := 0; i < n; i++ {
			p.Send(block)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("flooding sends without a consumer did not complete")
	}

	stats := p.Stats()
	assert.Equal(t, uint64(n), stats.Sent)
	assert.Equal(t, uint64(n-1), stats.Dropped)

	_, ok := c.ReceiveLatest()
	assert.True(t, ok)
}

func TestSendAfterCloseIsDropped(t *testing.T) {
	p, c := New()

	p.Send(audio.SampleBlock{1})
	p.Close()
	p.Send(audio.SampleBlock{2})

	assert.True(t, c.Closed())
	got, ok := c.ReceiveLatest()
	require.True(t, ok)
	assert.Equal(t, audio.SampleBlock{1}, got)

	_, ok = c.ReceiveLatest()
	assert.False(t, ok)
}

func TestConcurrentProducerConsumer(t *testing.T) {
	p, c := New()

	const n = 10_000
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			p.Send(audio.SampleBlock{float32(i)})
		}
		p.Close()
	}()

	last := float32(-1)
	for !c.Closed() {
		if block, ok := c.ReceiveLatest(); ok {
			require.Len(t, block, 1)
			require.Greater(t, block[0], last, "blocks must arrive in send order")
			last = block[0]
		}
	}
	wg.Wait()
	if block, ok := c.ReceiveLatest(); ok {
		require.Greater(t, block[0], last)
	}

	stats := c.Stats()
	assert.Equal(t, uint64(n), stats.Sent)
	assert.Equal(t, stats.Sent, stats.Dropped+stats.Received)
}
