package scraper_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paurush33/alberta-procurement-scraper/browser"
	"github.com/paurush33/alberta-procurement-scraper/mock"
	"github.com/paurush33/alberta-procurement-scraper/scraper"
)

func treeNames(trees []browser.Node) []string {
	names := make([]string, len(trees))
	for i, tree := range trees {
		names[i] = tree.(*mock.Node).Name
	}
	return names
}

func TestComposedTrees(t *testing.T) {
	t.Parallel()

	t.Run("document without shadow roots is a single tree", func(t *testing.T) {
		t.Parallel()

		doc := &mock.Node{Name: "doc", Kids: []browser.Node{
			&mock.Node{Name: "div"},
		}}

		assert.Equal(t, []string{"doc"}, treeNames(scraper.ComposedTrees(doc)))
	})

	t.Run("host subtrees are visited before later sibling hosts", func(t *testing.T) {
		t.Parallel()

		nested := &mock.Node{Name: "nested"}
		shadowA := &mock.Node{Name: "shadowA", Kids: []browser.Node{
			&mock.Node{Name: "inner", Roots: []browser.Node{nested}},
		}}
		shadowB := &mock.Node{Name: "shadowB"}
		doc := &mock.Node{Name: "doc", Kids: []browser.Node{
			&mock.Node{Name: "hostA", Roots: []browser.Node{shadowA}},
			&mock.Node{Name: "hostB", Roots: []browser.Node{shadowB}},
		}}

		got := treeNames(scraper.ComposedTrees(doc))
		assert.Equal(t, []string{"doc", "shadowA", "nested", "shadowB"}, got)
	})

	t.Run("hosts are found in document order regardless of depth", func(t *testing.T) {
		t.Parallel()

		first := &mock.Node{Name: "first"}
		second := &mock.Node{Name: "second"}
		doc := &mock.Node{Name: "doc", Kids: []browser.Node{
			&mock.Node{Name: "wrapper", Kids: []browser.Node{
				&mock.Node{Name: "deepHost", Roots: []browser.Node{first}},
			}},
			&mock.Node{Name: "lateHost", Roots: []browser.Node{second}},
		}}

		got := treeNames(scraper.ComposedTrees(doc))
		assert.Equal(t, []string{"doc", "first", "second"}, got)
	})

	t.Run("survives deeply nested chains without recursion", func(t *testing.T) {
		t.Parallel()

		// Host chains on real pages nest a handful of levels; build a chain
		// three orders deeper to make sure depth is a non-issue.
		leaf := &mock.Node{Name: "leaf"}
		root := leaf
		for i := 0; i < 5000; i++ {
			root = &mock.Node{Name: "host", Roots: []browser.Node{root}}
		}

		got := scraper.ComposedTrees(root)
		assert.Len(t, got, 5001)
		assert.Same(t, leaf, got[len(got)-1])
	})
}

func TestDeepQuery(t *testing.T) {
	t.Parallel()

	t.Run("concatenates matches host tree first", func(t *testing.T) {
		t.Parallel()

		shadow := &mock.Node{Name: "shadow"}
		doc := &mock.Node{Name: "doc", Kids: []browser.Node{
			&mock.Node{Name: "host", Roots: []browser.Node{shadow}},
		}}

		inDoc := &mock.Element{}
		inShadow := &mock.Element{}
		sess := &mock.Session{
			RootFn: func(ctx context.Context) (browser.Node, error) { return doc, nil },
			SelectFn: func(ctx context.Context, root browser.Node, selector string) ([]browser.Element, error) {
				if root == browser.Node(doc) {
					return []browser.Element{inDoc}, nil
				}
				return []browser.Element{inShadow}, nil
			},
		}

		got, err := scraper.NewDeepQuery(sess).QueryAll(context.Background(), "li.result")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Same(t, inDoc, got[0])
		assert.Same(t, inShadow, got[1])
	})

	t.Run("no matches anywhere is not an error", func(t *testing.T) {
		t.Parallel()

		sess := &mock.Session{
			RootFn: func(ctx context.Context) (browser.Node, error) {
				return &mock.Node{Name: "doc"}, nil
			},
			SelectFn: func(ctx context.Context, root browser.Node, selector string) ([]browser.Element, error) {
				return nil, nil
			},
		}

		got, err := scraper.NewDeepQuery(sess).QueryAll(context.Background(), "li.result")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("select failure is reported with the selector", func(t *testing.T) {
		t.Parallel()

		sess := &mock.Session{
			RootFn: func(ctx context.Context) (browser.Node, error) {
				return &mock.Node{Name: "doc"}, nil
			},
			SelectFn: func(ctx context.Context, root browser.Node, selector string) ([]browser.Element, error) {
				return nil, errors.New("target crashed")
			},
		}

		_, err := scraper.NewDeepQuery(sess).QueryAll(context.Background(), "li.result")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `deep query "li.result"`)
		assert.Contains(t, err.Error(), "target crashed")
	})

	t.Run("snapshot failure propagates", func(t *testing.T) {
		t.Parallel()

		rootErr := errors.New("no document")
		sess := &mock.Session{
			RootFn: func(ctx context.Context) (browser.Node, error) { return nil, rootErr },
		}

		_, err := scraper.NewDeepQuery(sess).QueryAll(context.Background(), "li.result")
		assert.ErrorIs(t, err, rootErr)
	})

	t.Run("exact text search walks every tree", func(t *testing.T) {
		t.Parallel()

		shadow := &mock.Node{Name: "shadow"}
		doc := &mock.Node{Name: "doc", Kids: []browser.Node{
			&mock.Node{Name: "host", Roots: []browser.Node{shadow}},
		}}

		hit := &mock.Element{}
		var asked []string
		sess := &mock.Session{
			RootFn: func(ctx context.Context) (browser.Node, error) { return doc, nil },
			SelectTextFn: func(ctx context.Context, root browser.Node, text string) ([]browser.Element, error) {
				asked = append(asked, root.(*mock.Node).Name)
				if root == browser.Node(shadow) {
					return []browser.Element{hit}, nil
				}
				return nil, nil
			},
		}

		got, err := scraper.NewDeepQuery(sess).FindByExactText(context.Background(), "17")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Same(t, hit, got[0])
		assert.Equal(t, []string{"doc", "shadow"}, asked)
	})
}
