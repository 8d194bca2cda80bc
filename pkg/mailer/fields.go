package mailer

import (
	"slices"
	"text/template"
	"text/template/parse"
)

// TemplateFields walks the parse tree of t and returns, sorted, the first
// identifier of every field reference evaluated against the root data
// (.name or $.name). References inside range and with bodies are relative
// to a different dot and are only counted in their $. form.
func TemplateFields(t *template.Template) []string {
	seen := map[string]struct{}{}
	for _, tmpl := range t.Templates() {
		if tmpl.Tree != nil {
			collectFields(tmpl.Tree.Root, true, seen)
		}
	}

	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

func collectFields(node parse.Node, rootDot bool, seen map[string]struct{}) {
	switch n := node.(type) {
	case nil:
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, c := range n.Nodes {
			collectFields(c, rootDot, seen)
		}
	case *parse.ActionNode:
		collectFields(n.Pipe, rootDot, seen)
	case *parse.PipeNode:
		if n == nil {
			return
		}
		for _, cmd := range n.Cmds {
			collectFields(cmd, rootDot, seen)
		}
	case *parse.CommandNode:
		for _, arg := range n.Args {
			collectFields(arg, rootDot, seen)
		}
	case *parse.FieldNode:
		if rootDot && len(n.Ident) > 0 {
			seen[n.Ident[0]] = struct{}{}
		}
	case *parse.ChainNode:
		collectFields(n.Node, rootDot, seen)
	case *parse.VariableNode:
		if len(n.Ident) > 1 && n.Ident[0] == "$" {
			seen[n.Ident[1]] = struct{}{}
		}
	case *parse.IfNode:
		collectBranch(&n.BranchNode, rootDot, rootDot, seen)
	case *parse.RangeNode:
		collectBranch(&n.BranchNode, false, rootDot, seen)
	case *parse.WithNode:
		collectBranch(&n.BranchNode, false, rootDot, seen)
	case *parse.TemplateNode:
		collectFields(n.Pipe, rootDot, seen)
	}
}

// collectBranch visits the pipeline with the enclosing dot, the body with
// bodyDot and the else branch with the enclosing dot.
func collectBranch(b *parse.BranchNode, bodyDot, rootDot bool, seen map[string]struct{}) {
	collectFields(b.Pipe, rootDot, seen)
	collectFields(b.List, bodyDot, seen)
	collectFields(b.ElseList, rootDot, seen)
}
