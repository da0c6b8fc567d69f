package stream_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkotrev/piejam-engine-go/internal/stream"
)

func TestRingBuffer_ReadReturnsWhatWasWritten(t *testing.T) {
	rb := stream.NewRingBuffer(8)
	rb.Write([]float32{1, 2, 3})

	out := make([]float32, 3)
	n := rb.Read(out)

	require.Equal(t, 3, n)
	assert.Equal(t, []float32{1, 2, 3}, out)
	assert.Equal(t, 0, rb.Available())
}

func TestRingBuffer_PartialReadLeavesRemainderAvailable(t *testing.T) {
	rb := stream.NewRingBuffer(8)
	rb.Write([]float32{1, 2, 3, 4})

	out := make([]float32, 2)
	rb.Read(out)

	assert.Equal(t, 2, rb.Available())

	rest := make([]float32, 2)
	n := rb.Read(rest)
	require.Equal(t, 2, n)
	assert.Equal(t, []float32{3, 4}, rest)
}

func TestRingBuffer_OverflowOverwritesOldestSamples(t *testing.T) {
	rb := stream.NewRingBuffer(4)
	rb.Write([]float32{1, 2, 3, 4, 5, 6})

	out := make([]float32, 4)
	n := rb.Read(out)

	require.Equal(t, 4, n)
	assert.Equal(t, []float32{3, 4, 5, 6}, out, "the producer must win; stale unread samples are discarded")
}

func TestRingBuffer_ConcurrentSPSCProducerConsumer(t *testing.T) {
	rb := stream.NewRingBuffer(64)
	const total = 10000

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < total; i += 16 {
			chunk := make([]float32, 16)
			for j := range chunk {
				chunk[j] = float32(i + j)
			}
			rb.Write(chunk)
		}
	}()

	received := 0
	go func() {
		defer wg.Done()
		buf := make([]float32, 16)
		for received < total {
			n := rb.Read(buf)
			received += n
		}
	}()

	wg.Wait()
}

func TestLevel_RMSAndPeak(t *testing.T) {
	var lvl stream.Level
	lvl.Accumulate([]float32{1, -1, 1, -1})

	assert.InDelta(t, 1.0, lvl.RMS(), 1e-6)
	assert.Equal(t, float32(1), lvl.Peak())
}

func TestLevel_ResetClearsAccumulation(t *testing.T) {
	var lvl stream.Level
	lvl.Accumulate([]float32{1, 1, 1})
	lvl.Reset()

	assert.Equal(t, float32(0), lvl.RMS())
	assert.Equal(t, float32(0), lvl.Peak())
}
