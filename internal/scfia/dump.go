package scfia

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cwbudde/go-scfia/internal/expr"
)

// DumpText renders the expression DAG reachable from every root in
// roots as an indented text tree, one line per node the first time it
// is visited and a back-reference thereafter (the DAG shares operands,
// so a naive recursive print would repeat large subtrees).
func DumpText(roots map[string]*expr.Node) string {
	var sb strings.Builder
	printed := map[uint64]bool{}
	names := make([]string, 0, len(roots))
	for n := range roots {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, name := range names {
		sb.WriteString(name)
		sb.WriteString(":\n")
		dumpNode(&sb, roots[name], 1, printed)
	}
	return sb.String()
}

func dumpNode(sb *strings.Builder, n *expr.Node, depth int, printed map[uint64]bool) {
	indent := strings.Repeat("  ", depth)
	if n == nil {
		sb.WriteString(indent + "<nil>\n")
		return
	}
	if printed[n.ID] {
		fmt.Fprintf(sb, "%s#%d (%s, repeated)\n", indent, n.ID, n.Op)
		return
	}
	printed[n.ID] = true
	switch {
	case n.Op == expr.OpConcreteBV:
		fmt.Fprintf(sb, "%s#%d concrete-bv 0x%x:%d\n", indent, n.ID, n.Value, n.Width)
	case n.Op == expr.OpConcreteBool:
		fmt.Fprintf(sb, "%s#%d concrete-bool %t\n", indent, n.ID, n.BoolValue)
	case n.Op == expr.OpSymbolicBV:
		fmt.Fprintf(sb, "%s#%d symbol-bv:%d\n", indent, n.ID, n.Width)
	default:
		fmt.Fprintf(sb, "%s#%d %s:%d\n", indent, n.ID, n.Op, n.Width)
		for _, op := range n.Operands {
			dumpNode(sb, op, depth+1, printed)
		}
	}
}

// DumpDot renders the same reachable set as Graphviz dot, one edge per
// operand relationship, for `scfia dump --dot`.
func DumpDot(roots map[string]*expr.Node) string {
	var sb strings.Builder
	sb.WriteString("digraph scfia {\n")
	visited := map[uint64]bool{}
	names := make([]string, 0, len(roots))
	for n := range roots {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, name := range names {
		n := roots[name]
		if n == nil {
			continue
		}
		fmt.Fprintf(&sb, "  %q -> \"n%d\";\n", name, n.ID)
		dotNode(&sb, n, visited)
	}
	sb.WriteString("}\n")
	return sb.String()
}

func dotNode(sb *strings.Builder, n *expr.Node, visited map[uint64]bool) {
	if visited[n.ID] {
		return
	}
	visited[n.ID] = true
	label := n.Op.String()
	if v, ok := n.ConcreteValue(); ok {
		label = fmt.Sprintf("%s\\n0x%x", label, v)
	}
	fmt.Fprintf(sb, "  \"n%d\" [label=%q];\n", n.ID, label)
	for _, op := range n.Operands {
		fmt.Fprintf(sb, "  \"n%d\" -> \"n%d\";\n", n.ID, op.ID)
		dotNode(sb, op, visited)
	}
}
