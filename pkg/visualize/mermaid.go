package visualize

import (
	"fmt"

	"github.com/emicklei/dot"
)

// MermaidGenerator renders a circuit Graph as a Mermaid flowchart, embeddable directly in
// markdown (design docs, PR descriptions).
type MermaidGenerator struct{}

// Generate returns a fenced ```mermaid``` block for g, left-to-right oriented to match the
// direction data flows through a circuit's schedule.
func (m *MermaidGenerator) Generate(g *Graph) string {
	flowchart := dot.MermaidFlowchart(BuildDotGraph(g), dot.MermaidLeftToRight)
	return fmt.Sprintf("```mermaid\n%s\n```\n", flowchart)
}
