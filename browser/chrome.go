package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/paurush33/alberta-procurement-scraper/config"
)

// exactTextJS runs with `this` bound to one tree root (document or a shadow
// root) and collects its elements whose trimmed rendered text equals the
// argument. Nested shadow trees are separate roots and are not entered here.
const exactTextJS = `function(text) {
	const hits = [];
	const walker = document.createTreeWalker(this, NodeFilter.SHOW_ELEMENT);
	let node;
	while ((node = walker.nextNode())) {
		let t = "";
		try { t = (node.innerText || "").trim(); } catch (e) {}
		if (t === text) hits.push(node);
	}
	return hits;
}`

// Chrome drives one Chrome tab through chromedp. It satisfies Session.
type Chrome struct {
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	tabCtx      context.Context
	cancelTab   context.CancelFunc

	pageLoadTimeout time.Duration
}

// NewChrome launches a Chrome process and opens the single tab used for the
// whole run.
func NewChrome(parent context.Context, cfg config.Config) (*Chrome, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(cfg.UserAgent),
		chromedp.WindowSize(1440, 900),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, opts...)

	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			log.Printf("[chrome] "+format, args...)
		}),
	)

	// Run with no actions so the browser starts now and startup failures
	// surface here instead of on the first navigation.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	return &Chrome{
		allocCtx:        allocCtx,
		cancelAlloc:     cancelAlloc,
		tabCtx:          tabCtx,
		cancelTab:       cancelTab,
		pageLoadTimeout: cfg.PageLoadTimeout,
	}, nil
}

// run executes actions on the tab context while honoring the caller's
// cancellation and deadline.
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(c.tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	return chromedp.Run(runCtx, actions...)
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	navCtx := ctx
	if c.pageLoadTimeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, c.pageLoadTimeout)
		defer cancel()
	}
	if err := c.run(navCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (c *Chrome) Root(ctx context.Context) (Node, error) {
	var root *cdp.Node
	err := c.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		n, err := dom.GetDocument().WithDepth(-1).WithPierce(true).Do(ctx)
		if err != nil {
			return err
		}
		root = n
		return nil
	}))
	if err != nil {
		return nil, fmt.Errorf("document snapshot: %w", err)
	}
	return &domNode{node: root}, nil
}

func (c *Chrome) Select(ctx context.Context, root Node, selector string) ([]Element, error) {
	dn, ok := root.(*domNode)
	if !ok {
		return nil, fmt.Errorf("select: foreign node type %T", root)
	}
	var ids []cdp.NodeID
	err := c.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		res, err := dom.QuerySelectorAll(dn.node.NodeID, selector).Do(ctx)
		if err != nil {
			return err
		}
		ids = res
		return nil
	}))
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	els := make([]Element, 0, len(ids))
	for _, id := range ids {
		els = append(els, &chromeElement{sess: c, nodeID: id})
	}
	return els, nil
}

func (c *Chrome) SelectText(ctx context.Context, root Node, text string) ([]Element, error) {
	dn, ok := root.(*domNode)
	if !ok {
		return nil, fmt.Errorf("select text: foreign node type %T", root)
	}
	var els []Element
	err := c.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(dn.node.NodeID).Do(ctx)
		if err != nil {
			return err
		}
		defer releaseObject(ctx, obj.ObjectID)

		arg, err := json.Marshal(text)
		if err != nil {
			return err
		}
		res, exc, err := runtime.CallFunctionOn(exactTextJS).
			WithObjectID(obj.ObjectID).
			WithArguments([]*runtime.CallArgument{{Value: arg}}).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return exc
		}
		els, err = c.collectElements(ctx, res)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("text query %q: %w", text, err)
	}
	return els, nil
}

func (c *Chrome) Eval(ctx context.Context, fn string, out any, args ...any) error {
	err := c.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		res, err := c.callFunction(ctx, fn, true, args)
		if err != nil {
			return err
		}
		if out != nil && res != nil && len(res.Value) > 0 {
			return json.Unmarshal(res.Value, out)
		}
		return nil
	}))
	if err != nil {
		return fmt.Errorf("eval: %w", err)
	}
	return nil
}

func (c *Chrome) EvalElements(ctx context.Context, fn string, args ...any) ([]Element, error) {
	var els []Element
	err := c.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		res, err := c.callFunction(ctx, fn, false, args)
		if err != nil {
			return err
		}
		els, err = c.collectElements(ctx, res)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("eval elements: %w", err)
	}
	return els, nil
}

func (c *Chrome) Close() error {
	c.cancelTab()
	c.cancelAlloc()
	return nil
}

// callFunction invokes fn with `this` bound to the document, passing args as
// call arguments. Element args are passed by object reference, everything
// else by JSON value.
func (c *Chrome) callFunction(ctx context.Context, fn string, byValue bool, args []any) (*runtime.RemoteObject, error) {
	doc, exc, err := runtime.Evaluate("document").Do(ctx)
	if err != nil {
		return nil, err
	}
	if exc != nil {
		return nil, exc
	}
	defer releaseObject(ctx, doc.ObjectID)

	callArgs := make([]*runtime.CallArgument, 0, len(args))
	for _, a := range args {
		switch v := a.(type) {
		case *chromeElement:
			id, err := v.resolve(ctx)
			if err != nil {
				return nil, err
			}
			callArgs = append(callArgs, &runtime.CallArgument{ObjectID: id})
		case Element:
			return nil, fmt.Errorf("foreign element type %T", a)
		default:
			raw, err := json.Marshal(a)
			if err != nil {
				return nil, err
			}
			callArgs = append(callArgs, &runtime.CallArgument{Value: raw})
		}
	}

	res, exc, err := runtime.CallFunctionOn(fn).
		WithObjectID(doc.ObjectID).
		WithArguments(callArgs).
		WithReturnByValue(byValue).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if exc != nil {
		return nil, exc
	}
	return res, nil
}

// collectElements turns a call result (element, element array, or null) into
// handles.
func (c *Chrome) collectElements(ctx context.Context, res *runtime.RemoteObject) ([]Element, error) {
	if res == nil || res.ObjectID == "" || res.Subtype == runtime.SubtypeNull {
		return nil, nil
	}

	if res.Subtype == runtime.SubtypeNode {
		el, err := c.elementFromObject(ctx, res.ObjectID)
		if err != nil {
			return nil, err
		}
		return []Element{el}, nil
	}

	if res.Subtype != runtime.SubtypeArray {
		return nil, nil
	}
	defer releaseObject(ctx, res.ObjectID)

	props, _, _, exc, err := runtime.GetProperties(res.ObjectID).WithOwnProperties(true).Do(ctx)
	if err != nil {
		return nil, err
	}
	if exc != nil {
		return nil, exc
	}

	type indexed struct {
		idx int
		id  runtime.RemoteObjectID
	}
	var members []indexed
	for _, p := range props {
		idx, err := strconv.Atoi(p.Name)
		if err != nil || p.Value == nil || p.Value.Subtype != runtime.SubtypeNode {
			continue
		}
		members = append(members, indexed{idx: idx, id: p.Value.ObjectID})
	}
	sort.Slice(members, func(i, j int) bool { return members[i].idx < members[j].idx })

	els := make([]Element, 0, len(members))
	for _, m := range members {
		el, err := c.elementFromObject(ctx, m.id)
		if err != nil {
			return nil, err
		}
		els = append(els, el)
	}
	return els, nil
}

func (c *Chrome) elementFromObject(ctx context.Context, id runtime.RemoteObjectID) (*chromeElement, error) {
	nodeID, err := dom.RequestNode(id).Do(ctx)
	if err != nil {
		return nil, err
	}
	return &chromeElement{sess: c, nodeID: nodeID, objectID: id}, nil
}

func releaseObject(ctx context.Context, id runtime.RemoteObjectID) {
	if id != "" {
		_ = runtime.ReleaseObject(id).Do(ctx)
	}
}

type domNode struct {
	node *cdp.Node
}

func (n *domNode) Children() []Node {
	out := make([]Node, 0, len(n.node.Children))
	for _, child := range n.node.Children {
		out = append(out, &domNode{node: child})
	}
	return out
}

func (n *domNode) ShadowRoots() []Node {
	out := make([]Node, 0, len(n.node.ShadowRoots))
	for _, root := range n.node.ShadowRoots {
		out = append(out, &domNode{node: root})
	}
	return out
}

// chromeElement is a node handle valid for the lifetime of the current
// document state.
type chromeElement struct {
	sess     *Chrome
	nodeID   cdp.NodeID
	objectID runtime.RemoteObjectID
}

// resolve returns the element's remote object id, resolving and caching it on
// first use. Must run inside an action context.
func (e *chromeElement) resolve(ctx context.Context) (runtime.RemoteObjectID, error) {
	if e.objectID != "" {
		return e.objectID, nil
	}
	obj, err := dom.ResolveNode().WithNodeID(e.nodeID).Do(ctx)
	if err != nil {
		return "", err
	}
	e.objectID = obj.ObjectID
	return e.objectID, nil
}

func (e *chromeElement) Click(ctx context.Context) error {
	err := e.sess.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := dom.ScrollIntoViewIfNeeded().WithNodeID(e.nodeID).Do(ctx); err != nil {
			return err
		}
		quads, err := dom.GetContentQuads().WithNodeID(e.nodeID).Do(ctx)
		if err != nil {
			return err
		}
		if len(quads) == 0 || len(quads[0]) < 8 {
			return errors.New("element has no visible box")
		}
		q := quads[0]
		x := (q[0] + q[2] + q[4] + q[6]) / 4
		y := (q[1] + q[3] + q[5] + q[7]) / 4

		press := input.DispatchMouseEvent(input.MousePressed, x, y).
			WithButton(input.Left).
			WithClickCount(1)
		if err := press.Do(ctx); err != nil {
			return err
		}
		release := input.DispatchMouseEvent(input.MouseReleased, x, y).
			WithButton(input.Left).
			WithClickCount(1)
		return release.Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("%w: click: %v", ErrInteractionRejected, err)
	}
	return nil
}

func (e *chromeElement) Focus(ctx context.Context) error {
	err := e.sess.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return dom.Focus().WithNodeID(e.nodeID).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("%w: focus: %v", ErrInteractionRejected, err)
	}
	return nil
}

func (e *chromeElement) Clear(ctx context.Context) error {
	err := e.evalOn(ctx, `function() {
		if ("value" in this) { this.value = ""; } else { this.textContent = ""; }
	}`, nil)
	if err != nil {
		return fmt.Errorf("%w: clear: %v", ErrInteractionRejected, err)
	}
	return nil
}

func (e *chromeElement) Type(ctx context.Context, text string) error {
	err := e.sess.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := dom.Focus().WithNodeID(e.nodeID).Do(ctx); err != nil {
			return err
		}
		return chromedp.KeyEvent(text).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("%w: type: %v", ErrInteractionRejected, err)
	}
	return nil
}

func (e *chromeElement) Text(ctx context.Context) (string, error) {
	var text string
	if err := e.evalOn(ctx, `function() { return (this.innerText || "").trim(); }`, &text); err != nil {
		return "", fmt.Errorf("element text: %w", err)
	}
	return text, nil
}

func (e *chromeElement) Attr(ctx context.Context, name string) (string, error) {
	var value string
	err := e.sess.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		attrs, err := dom.GetAttributes(e.nodeID).Do(ctx)
		if err != nil {
			return err
		}
		for i := 0; i+1 < len(attrs); i += 2 {
			if strings.EqualFold(attrs[i], name) {
				value = attrs[i+1]
				return nil
			}
		}
		return nil
	}))
	if err != nil {
		return "", fmt.Errorf("attribute %q: %w", name, err)
	}
	return value, nil
}

func (e *chromeElement) Tag(ctx context.Context) (string, error) {
	var tag string
	err := e.sess.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		node, err := dom.DescribeNode().WithNodeID(e.nodeID).Do(ctx)
		if err != nil {
			return err
		}
		tag = strings.ToLower(node.NodeName)
		return nil
	}))
	if err != nil {
		return "", fmt.Errorf("tag name: %w", err)
	}
	return tag, nil
}

func (e *chromeElement) ScrollIntoView(ctx context.Context) error {
	if err := e.evalOn(ctx, `function() { this.scrollIntoView({block:'center'}); }`, nil); err != nil {
		return fmt.Errorf("scroll into view: %w", err)
	}
	return nil
}

// evalOn runs fn with `this` bound to the element.
func (e *chromeElement) evalOn(ctx context.Context, fn string, out any) error {
	return e.sess.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		id, err := e.resolve(ctx)
		if err != nil {
			return err
		}
		res, exc, err := runtime.CallFunctionOn(fn).
			WithObjectID(id).
			WithReturnByValue(true).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return exc
		}
		if out != nil && res != nil && len(res.Value) > 0 {
			return json.Unmarshal(res.Value, out)
		}
		return nil
	}))
}
