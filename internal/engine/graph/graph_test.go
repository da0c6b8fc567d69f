package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkotrev/piejam-engine-go/internal/engine/graph"
)

// sourceProcessor publishes a fixed per-period buffer, standing in for
// an external input or a constant generator in tests.
type sourceProcessor struct {
	buf []float32
}

func (s *sourceProcessor) TypeName() string          { return "test_source" }
func (s *sourceProcessor) NumInputs() int            { return 0 }
func (s *sourceProcessor) NumOutputs() int           { return 1 }
func (s *sourceProcessor) EventInputs() []graph.EventPort  { return nil }
func (s *sourceProcessor) EventOutputs() []graph.EventPort { return nil }
func (s *sourceProcessor) Process(ctx *graph.ProcessContext) {
	copy(ctx.Outputs[0], s.buf)
	ctx.Results[0] = graph.BufferResult(ctx.Outputs[0])
}

func TestMixProcessor_SumsBuffers(t *testing.T) {
	mix := graph.NewMixProcessor(2)

	out := make([]float32, 4)
	ctx := &graph.ProcessContext{
		BufferSize: 4,
		Outputs:    [][]float32{out},
		Results: []graph.Result{
			graph.BufferResult([]float32{1, 2, 3, 4}),
			graph.BufferResult([]float32{10, 10, 10, 10}),
		},
	}

	mix.Process(ctx)

	require.False(t, ctx.Results[0].IsConstant())
	assert.Equal(t, []float32{11, 12, 13, 14}, ctx.Results[0].Buffer())
}

func TestMixProcessor_AllConstantInputs_BroadcastsConstant(t *testing.T) {
	mix := graph.NewMixProcessor(2)

	ctx := &graph.ProcessContext{
		BufferSize: 128,
		Outputs:    [][]float32{make([]float32, 128)},
		Results: []graph.Result{
			graph.ConstantResult(1),
			graph.ConstantResult(2),
		},
	}

	mix.Process(ctx)

	require.True(t, ctx.Results[0].IsConstant())
	assert.Equal(t, float32(3), ctx.Results[0].Constant())
}

func TestClipProcessor_ClampsToUnitRange(t *testing.T) {
	clip := graph.NewClipProcessor()

	ctx := &graph.ProcessContext{
		BufferSize: 4,
		Outputs:    [][]float32{make([]float32, 4)},
		Results:    []graph.Result{graph.BufferResult([]float32{-2, -1, 1, 2})},
	}

	clip.Process(ctx)

	assert.Equal(t, []float32{-1, -1, 1, 1}, ctx.Results[0].Buffer())
}

func TestGraph_Finalize_InsertsMixForMultipleProducers(t *testing.T) {
	g := graph.New()

	a := g.AddProcessor(&sourceProcessor{buf: []float32{1, 1, 1, 1}})
	b := g.AddProcessor(&sourceProcessor{buf: []float32{2, 2, 2, 2}})
	sink := g.AddProcessor(graph.NewIdentityProcessor())

	g.ConnectAudio(graph.Endpoint{Node: a, Port: 0}, graph.Endpoint{Node: sink, Port: 0})
	g.ConnectAudio(graph.Endpoint{Node: b, Port: 0}, graph.Endpoint{Node: sink, Port: 0})

	g.Finalize()

	edges := g.AudioEdges()
	// 2 edges into the inserted mix node's two input ports, plus 1
	// edge from the mix node into sink: exactly 3, never 2 edges
	// landing directly on the same sink input port.
	require.Len(t, edges, 3)

	intoSink := 0
	for _, e := range edges {
		if e.To.Node == sink {
			intoSink++
		}
	}
	assert.Equal(t, 1, intoSink, "sink's input port must have exactly one incoming edge after Finalize")
}

func TestGraph_Finalize_SingleProducerIsUntouched(t *testing.T) {
	g := graph.New()
	a := g.AddProcessor(&sourceProcessor{buf: []float32{1}})
	sink := g.AddProcessor(graph.NewIdentityProcessor())
	g.ConnectAudio(graph.Endpoint{Node: a, Port: 0}, graph.Endpoint{Node: sink, Port: 0})

	g.Finalize()

	assert.Len(t, g.AudioEdges(), 1)
}

func TestGraph_IsDescendant(t *testing.T) {
	g := graph.New()
	a := g.AddProcessor(graph.NewIdentityProcessor())
	b := g.AddProcessor(graph.NewIdentityProcessor())
	c := g.AddProcessor(graph.NewIdentityProcessor())

	g.ConnectAudio(graph.Endpoint{Node: a, Port: 0}, graph.Endpoint{Node: b, Port: 0})
	g.ConnectAudio(graph.Endpoint{Node: b, Port: 0}, graph.Endpoint{Node: c, Port: 0})

	assert.True(t, g.IsDescendant(a, c))
	assert.False(t, g.IsDescendant(c, a))
	assert.True(t, g.IsDescendant(a, a))
}

func TestEventConverterProcessor_EmitsOnEachInputEvent(t *testing.T) {
	conv := graph.NewEventConverterProcessor(
		[]graph.EventPort{{Name: "cc", Type: graph.EventFloat}},
		[]graph.EventPort{{Name: "param", Type: graph.EventFloat}},
		func(in []float64) []float64 {
			return []float64{in[0] / 127.0}
		},
	)

	in := &graph.EventBuffer{}
	in.Append(graph.Event{Offset: 0, Value: 127})
	in.Append(graph.Event{Offset: 10, Value: 0})

	out := &graph.EventBuffer{}

	ctx := &graph.ProcessContext{
		EventInputs:  []*graph.EventBuffer{in},
		EventOutputs: []*graph.EventBuffer{out},
	}

	conv.Process(ctx)

	require.Len(t, out.Events(), 2)
	assert.InDelta(t, 1.0, out.Events()[0].Value, 1e-9)
	assert.InDelta(t, 0.0, out.Events()[1].Value, 1e-9)
}

func TestEventMemory_ReusesReleasedBuffers(t *testing.T) {
	mem := graph.NewEventMemory(2)

	b1 := mem.Get()
	b1.Append(graph.Event{Offset: 0, Value: 1})
	mem.Release()

	b2 := mem.Get()
	assert.Empty(t, b2.Events(), "a released buffer must come back empty")
	assert.Same(t, b1, b2, "the arena should hand back the same backing buffer rather than allocate a new one")
}
