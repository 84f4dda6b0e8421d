// Package mock provides hand-written fakes for the browser interfaces.
// Behaviour is injected per test through the Fn fields; calling a method
// whose Fn is unset panics, which flags interactions a test did not expect.
package mock

import (
	"context"

	"github.com/paurush33/alberta-procurement-scraper/browser"
)

var _ browser.Session = (*Session)(nil)

type Session struct {
	NavigateFn     func(ctx context.Context, url string) error
	RootFn         func(ctx context.Context) (browser.Node, error)
	SelectFn       func(ctx context.Context, root browser.Node, selector string) ([]browser.Element, error)
	SelectTextFn   func(ctx context.Context, root browser.Node, text string) ([]browser.Element, error)
	EvalFn         func(ctx context.Context, fn string, out any, args ...any) error
	EvalElementsFn func(ctx context.Context, fn string, args ...any) ([]browser.Element, error)
	CloseFn        func() error
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.NavigateFn(ctx, url)
}

func (s *Session) Root(ctx context.Context) (browser.Node, error) {
	return s.RootFn(ctx)
}

func (s *Session) Select(ctx context.Context, root browser.Node, selector string) ([]browser.Element, error) {
	return s.SelectFn(ctx, root, selector)
}

func (s *Session) SelectText(ctx context.Context, root browser.Node, text string) ([]browser.Element, error) {
	return s.SelectTextFn(ctx, root, text)
}

func (s *Session) Eval(ctx context.Context, fn string, out any, args ...any) error {
	return s.EvalFn(ctx, fn, out, args...)
}

func (s *Session) EvalElements(ctx context.Context, fn string, args ...any) ([]browser.Element, error) {
	return s.EvalElementsFn(ctx, fn, args...)
}

func (s *Session) Close() error {
	return s.CloseFn()
}

var _ browser.Node = (*Node)(nil)

// Node is a plain data node; build trees by nesting literals.
type Node struct {
	Name  string // labels nodes in test assertions, unused otherwise
	Kids  []browser.Node
	Roots []browser.Node
}

func (n *Node) Children() []browser.Node {
	return n.Kids
}

func (n *Node) ShadowRoots() []browser.Node {
	return n.Roots
}

var _ browser.Element = (*Element)(nil)

type Element struct {
	ClickFn          func(ctx context.Context) error
	FocusFn          func(ctx context.Context) error
	ClearFn          func(ctx context.Context) error
	TypeFn           func(ctx context.Context, text string) error
	TextFn           func(ctx context.Context) (string, error)
	AttrFn           func(ctx context.Context, name string) (string, error)
	TagFn            func(ctx context.Context) (string, error)
	ScrollIntoViewFn func(ctx context.Context) error
}

func (e *Element) Click(ctx context.Context) error {
	return e.ClickFn(ctx)
}

func (e *Element) Focus(ctx context.Context) error {
	return e.FocusFn(ctx)
}

func (e *Element) Clear(ctx context.Context) error {
	return e.ClearFn(ctx)
}

func (e *Element) Type(ctx context.Context, text string) error {
	return e.TypeFn(ctx, text)
}

func (e *Element) Text(ctx context.Context) (string, error) {
	return e.TextFn(ctx)
}

func (e *Element) Attr(ctx context.Context, name string) (string, error) {
	return e.AttrFn(ctx, name)
}

func (e *Element) Tag(ctx context.Context) (string, error) {
	return e.TagFn(ctx)
}

func (e *Element) ScrollIntoView(ctx context.Context) error {
	return e.ScrollIntoViewFn(ctx)
}
