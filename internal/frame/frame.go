// Package frame hands sample blocks from a capture callback to a renderer.
//
// The channel holds a single slot. The producer overwrites it on every send
// and the consumer empties it on every receive, so the producer never waits
// and the consumer always sees the newest block. Blocks that were replaced
// before being read are counted as dropped.
package frame

import (
	"sync/atomic"

	"github.com/petems/wavescope/internal/audio"
)

type channel struct {
	slot   atomic.Pointer[audio.SampleBlock]
	closed atomic.Bool

	sent     atomic.Uint64
	dropped  atomic.Uint64
	received atomic.Uint64
}

// Producer is the sending end. It must only be used from one goroutine or
// audio thread at a time.
type Producer struct {
	ch *channel
}

// Consumer is the receiving end. It must only be used from the render loop.
type Consumer struct {
	ch *channel
}

// Stats are cumulative counters for one channel.
type Stats struct {
	Sent     uint64
	Dropped  uint64
	Received uint64
}

// New creates a connected producer/consumer pair.
func New() (*Producer, *Consumer) {
	ch := &channel{}
	return &Producer{ch: ch}, &Consumer{ch: ch}
}

// Send publishes block as the latest one. It never blocks. Ownership of block
// passes to the channel.
func (p *Producer) Send(block audio.SampleBlock) {
	if p.ch.closed.Load() {
		p.ch.dropped.Add(1)
		return
	}
	p.ch.sent.Add(1)
	if old := p.ch.slot.Swap(&block); old != nil {
		p.ch.dropped.Add(1)
	}
}

// Close makes later sends no-ops. A block already in the slot can still be
// received.
func (p *Producer) Close() {
	p.ch.closed.Store(true)
}

func (p *Producer) Stats() Stats {
	return p.ch.stats()
}

// ReceiveLatest takes the newest unread block. It returns false immediately
// when nothing arrived since the previous call.
func (c *Consumer) ReceiveLatest() (audio.SampleBlock, bool) {
	b := c.ch.slot.Swap(nil)
	if b == nil {
		return nil, false
	}
	c.ch.received.Add(1)
	return *b, true
}

// Closed reports whether the producer side has been closed.
func (c *Consumer) Closed() bool {
	return c.ch.closed.Load()
}

func (c *Consumer) Stats() Stats {
	return c.ch.stats()
}

func (ch *channel) stats() Stats {
	return Stats{
		Sent:     ch.sent.Load(),
		Dropped:  ch.dropped.Load(),
		Received: ch.received.Load(),
	}
}
