// Package browser defines the automation-session contract the scraper runs
// against, plus a Chrome implementation of it. Core packages depend only on
// the interfaces here, so the underlying engine can be swapped or faked.
package browser

import (
	"context"
	"errors"
)

// ErrInteractionRejected wraps failures of native element interaction
// (click, focus, type). Callers recover by falling back to synthetic,
// script-driven interaction.
var ErrInteractionRejected = errors.New("interaction rejected")

// Session is a single exclusively-owned browser tab. All methods block until
// the browser responds or ctx is done.
type Session interface {
	// Navigate loads url and waits for the page load to settle, bounded by
	// the session's page-load timeout.
	Navigate(ctx context.Context, url string) error

	// Root returns a snapshot of the full document tree, including the
	// subtree behind every shadow root at any depth.
	Root(ctx context.Context) (Node, error)

	// Select returns the elements matching a CSS selector within root's own
	// tree, in document order. It never descends into shadow roots.
	Select(ctx context.Context, root Node, selector string) ([]Element, error)

	// SelectText returns the elements within root's own tree whose trimmed
	// rendered text equals text exactly, in document order. It never
	// descends into shadow roots.
	SelectText(ctx context.Context, root Node, text string) ([]Element, error)

	// Eval runs fn, a JavaScript function literal, in the page and decodes
	// its JSON-serializable result into out when out is non-nil. Element
	// arguments are passed to fn as live DOM references.
	Eval(ctx context.Context, fn string, out any, args ...any) error

	// EvalElements runs fn like Eval but expects it to return an element, an
	// array of elements, or null, and converts the result to handles.
	EvalElements(ctx context.Context, fn string, args ...any) ([]Element, error)

	// Close tears the session down. Best-effort: it never fails.
	Close() error
}

// Node is one node of a document snapshot. Children covers the node's own
// tree; ShadowRoots covers the encapsulated trees it hosts, if any.
type Node interface {
	Children() []Node
	ShadowRoots() []Node
}

// Element is a handle to a live element in the page. Handles go stale when
// the document re-renders; methods then return errors, which callers treat
// as transient.
type Element interface {
	// Click performs a native input click at the element's center. The
	// returned error wraps ErrInteractionRejected when the element refuses
	// native interaction.
	Click(ctx context.Context) error
	Focus(ctx context.Context) error
	// Clear empties the element's value.
	Clear(ctx context.Context) error
	// Type sends keystrokes to the element. "\r" submits Enter.
	Type(ctx context.Context, text string) error
	// Text returns the element's trimmed rendered text.
	Text(ctx context.Context) (string, error)
	// Attr returns the raw attribute value, or "" when absent.
	Attr(ctx context.Context, name string) (string, error)
	// Tag returns the lower-cased tag name.
	Tag(ctx context.Context) (string, error)
	// ScrollIntoView centers the element in the viewport.
	ScrollIntoView(ctx context.Context) error
}
