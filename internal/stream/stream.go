// Package stream implements the audio-stream identifiers and
// lock-free single-producer/single-consumer ring buffers that carry
// captured interleaved float samples from an in-band StreamProcessor
// to an asynchronous GUI meter or scope consumer.
package stream

import "github.com/dkotrev/piejam-engine-go/internal/id"

type streamTag struct{}

// ID identifies one audio stream.
type ID = id.Typed[streamTag]

// IDGenerator mints fresh stream [ID]s.
type IDGenerator = id.TypedGenerator[streamTag]
