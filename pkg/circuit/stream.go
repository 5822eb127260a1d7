package circuit

// Stream is a handle to one edge of the circuit graph: the output port of exactly one node,
// fanned out to zero or more consumers. Streams are created by Builder methods and consumed by
// passing them as inputs to later Builder calls; they carry no data themselves, only identity and
// the type tag used to reject wiring mistakes at construction time.
type Stream struct {
	id     int
	name   string
	typ    string
	source int // index of the producing node in Builder.nodes, or -1 for an unbound feedback stub
}

// Name returns the stream's display name, generally the producing operator's name or the source
// name it was declared with.
func (s *Stream) Name() string { return s.name }

// Type returns the stream's port type tag, an opaque string supplied by the caller at
// construction time (e.g. a document collection name). Two streams with different non-empty
// types cannot be wired into the same input list of a non-bilinear operator.
func (s *Stream) Type() string { return s.typ }
