package scraper

import (
	"context"
	"fmt"

	"github.com/paurush33/alberta-procurement-scraper/browser"
)

// DeepQuery answers selector and exact-text queries over the composed tree:
// the document plus every transitively nested shadow tree, treated as one
// flat document.
type DeepQuery struct {
	sess browser.Session
}

func NewDeepQuery(sess browser.Session) *DeepQuery {
	return &DeepQuery{sess: sess}
}

// QueryAll returns every element in the composed tree matching selector.
// Matches from a hosting tree come before matches from the shadow trees it
// hosts; within one tree, document order. An empty result is a normal
// outcome, not an error.
func (q *DeepQuery) QueryAll(ctx context.Context, selector string) ([]browser.Element, error) {
	root, err := q.sess.Root(ctx)
	if err != nil {
		return nil, err
	}
	var out []browser.Element
	for _, tree := range ComposedTrees(root) {
		els, err := q.sess.Select(ctx, tree, selector)
		if err != nil {
			return nil, fmt.Errorf("deep query %q: %w", selector, err)
		}
		out = append(out, els...)
	}
	return out, nil
}

// FindByExactText returns every element in the composed tree whose trimmed
// rendered text equals text. No substring or fuzzy matching.
func (q *DeepQuery) FindByExactText(ctx context.Context, text string) ([]browser.Element, error) {
	root, err := q.sess.Root(ctx)
	if err != nil {
		return nil, err
	}
	var out []browser.Element
	for _, tree := range ComposedTrees(root) {
		els, err := q.sess.SelectText(ctx, tree, text)
		if err != nil {
			return nil, fmt.Errorf("deep text query %q: %w", text, err)
		}
		out = append(out, els...)
	}
	return out, nil
}

// Session exposes the underlying browser session for element-scoped scripts.
func (q *DeepQuery) Session() browser.Session {
	return q.sess
}

// ComposedTrees enumerates the tree roots making up the composed tree:
// root itself first, then every shadow root reachable from it, depth-first,
// so that a host's shadow trees are fully visited before its next sibling
// host's. The walk is iterative; nesting depth never grows the call stack.
func ComposedTrees(root browser.Node) []browser.Node {
	var roots []browser.Node
	stack := []browser.Node{root}
	for len(stack) > 0 {
		tree := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		roots = append(roots, tree)

		hosted := shadowRootsInTree(tree)
		for i := len(hosted) - 1; i >= 0; i-- {
			stack = append(stack, hosted[i])
		}
	}
	return roots
}

// shadowRootsInTree collects the shadow roots hosted by nodes of a single
// tree, in document order, without descending into them.
func shadowRootsInTree(root browser.Node) []browser.Node {
	var found []browser.Node
	stack := []browser.Node{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		found = append(found, node.ShadowRoots()...)

		children := node.Children()
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return found
}
