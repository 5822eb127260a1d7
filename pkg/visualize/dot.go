package visualize

// DotGenerator renders a circuit Graph as a Graphviz DOT diagram.
type DotGenerator struct{}

// Generate returns the DOT source for g, ready to feed to `dot -Tpng`.
func (d *DotGenerator) Generate(g *Graph) string {
	return BuildDotGraph(g).String()
}
