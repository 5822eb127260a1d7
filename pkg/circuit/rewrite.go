package circuit

import "go.l7mp.io/dbsp/pkg/dbsp"

// FuseLinearChain collapses adjacent selection/projection pairs in a straight-line operator chain
// into a single FusedOp, reducing the number of nodes the scheduler fires per tick without
// changing the Z-set the chain produces. It is an optional optimization a Builder caller may apply
// to a chain before wiring it in; AddOperator never calls it implicitly.
func FuseLinearChain(ops []dbsp.Operator) []dbsp.Operator {
	if len(ops) < 2 {
		return ops
	}
	out := make([]dbsp.Operator, 0, len(ops))
	i := 0
	for i < len(ops) {
		sel, isSel := ops[i].(*dbsp.SelectionOp)
		if isSel && i+1 < len(ops) {
			if proj, isProj := ops[i+1].(*dbsp.ProjectionOp); isProj {
				fused, err := dbsp.FuseFilterProject(sel, proj)
				if err == nil {
					out = append(out, fused)
					i += 2
					continue
				}
			}
		}
		out = append(out, ops[i])
		i++
	}
	return out
}
