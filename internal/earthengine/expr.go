package earthengine

import "strconv"

// node is one vertex of a lazy expression graph. Exactly one of the
// kinds is populated; serialize renders the graph in the backend's
// expression wire format (constantValue / functionInvocationValue /
// functionDefinitionValue / argumentReference nodes plus a shared
// values table for function bodies).
type node struct {
	kind nodeKind

	constant any

	fn   string
	args map[string]*node

	lambdaArgs []string
	lambdaBody *node

	argName string
}

type nodeKind int

const (
	kindConstant nodeKind = iota
	kindInvocation
	kindLambda
	kindArgRef
)

func constNode(v any) *node {
	return &node{kind: kindConstant, constant: v}
}

func invoke(fn string, args map[string]*node) *node {
	return &node{kind: kindInvocation, fn: fn, args: args}
}

func lambda(argNames []string, body *node) *node {
	return &node{kind: kindLambda, lambdaArgs: argNames, lambdaBody: body}
}

func argRef(name string) *node {
	return &node{kind: kindArgRef, argName: name}
}

// dict builds a dictionaryValue node from named sub-expressions, used
// to batch several reductions into one compute call.
func dict(values map[string]*node) *node {
	// Modeled as a constant dictionary whose values are themselves
	// nodes; render handles the nesting.
	return &node{kind: kindInvocation, fn: "", args: values}
}

// expression is the wire payload: a values table and the id of the
// result value. Function bodies always live in the table so lambdas
// can reference them by id.
type expression struct {
	Result string         `json:"result"`
	Values map[string]any `json:"values"`
}

// serialize renders the node graph into an expression payload.
func serialize(n *node) expression {
	s := &serializer{values: make(map[string]any)}
	root := s.add(s.render(n))
	return expression{Result: root, Values: s.values}
}

type serializer struct {
	values map[string]any
	next   int
}

func (s *serializer) add(v any) string {
	id := strconv.Itoa(s.next)
	s.next++
	s.values[id] = v
	return id
}

func (s *serializer) render(n *node) any {
	switch n.kind {
	case kindConstant:
		return map[string]any{"constantValue": n.constant}
	case kindArgRef:
		return map[string]any{"argumentReference": n.argName}
	case kindLambda:
		bodyID := s.add(s.render(n.lambdaBody))
		return map[string]any{
			"functionDefinitionValue": map[string]any{
				"argumentNames": n.lambdaArgs,
				"body":          bodyID,
			},
		}
	default:
		args := make(map[string]any, len(n.args))
		for name, arg := range n.args {
			args[name] = s.render(arg)
		}
		if n.fn == "" {
			// Bare dictionary of sub-expressions.
			return map[string]any{"dictionaryValue": map[string]any{"values": args}}
		}
		return map[string]any{
			"functionInvocationValue": map[string]any{
				"functionName": n.fn,
				"arguments":    args,
			},
		}
	}
}
