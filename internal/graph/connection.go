package graph

import "github.com/ariefcatur/go-crm-graphql/internal/crm"

// connection serves the three *Connection types; wrap turns a store row into
// its node resolver.
type connection[T any, R any] struct {
	page crm.Page[T]
	wrap func(T) R
}

func (c *connection[T, R]) Edges() []*edge[R] {
	out := make([]*edge[R], 0, len(c.page.Edges))
	for _, e := range c.page.Edges {
		out = append(out, &edge[R]{cursor: e.Cursor, node: c.wrap(e.Node)})
	}
	return out
}

func (c *connection[T, R]) PageInfo() *pageInfo {
	return &pageInfo{
		next:  c.page.HasNextPage,
		prev:  c.page.HasPreviousPage,
		start: c.page.StartCursor(),
		end:   c.page.EndCursor(),
	}
}

type edge[R any] struct {
	cursor string
	node   R
}

func (e *edge[R]) Cursor() string { return e.cursor }
func (e *edge[R]) Node() R        { return e.node }

type pageInfo struct {
	next, prev bool
	start, end string
}

func (p *pageInfo) HasNextPage() bool     { return p.next }
func (p *pageInfo) HasPreviousPage() bool { return p.prev }
func (p *pageInfo) StartCursor() *string  { return optString(p.start) }
func (p *pageInfo) EndCursor() *string    { return optString(p.end) }
