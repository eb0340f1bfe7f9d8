package sidekiq

import "context"

// Chain is an ordered list of named server middleware. The first entry is
// the outermost. Build it at startup; it is not safe for concurrent
// mutation, but Then may be called concurrently once it is built.
type Chain struct {
	entries []chainEntry
}

type chainEntry struct {
	name string
	mw   ServerMiddleware
}

// NewChain returns an empty chain.
func NewChain() *Chain {
	return &Chain{}
}

// Add appends mw. An entry with the same name is replaced in place.
func (c *Chain) Add(name string, mw ServerMiddleware) *Chain {
	for i, e := range c.entries {
		if e.name == name {
			c.entries[i].mw = mw
			return c
		}
	}
	c.entries = append(c.entries, chainEntry{name: name, mw: mw})
	return c
}

// Prepend inserts mw as the outermost entry.
func (c *Chain) Prepend(name string, mw ServerMiddleware) *Chain {
	c.Remove(name)
	c.entries = append([]chainEntry{{name: name, mw: mw}}, c.entries...)
	return c
}

// Remove drops the named entry if present.
func (c *Chain) Remove(name string) *Chain {
	for i, e := range c.entries {
		if e.name == name {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			break
		}
	}
	return c
}

// Names lists the entries from outermost to innermost.
func (c *Chain) Names() []string {
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.name
	}
	return names
}

// Len is the number of entries.
func (c *Chain) Len() int {
	return len(c.entries)
}

// Then wraps handler with every entry for one message.
func (c *Chain) Then(msg Message, queue string, handler Handler) Handler {
	h := handler
	for i := len(c.entries) - 1; i >= 0; i-- {
		mw := c.entries[i].mw
		next := h
		h = func(ctx context.Context) error {
			return mw.Call(ctx, msg, queue, next)
		}
	}
	return h
}

// Invoke runs handler for msg through the chain.
func (c *Chain) Invoke(ctx context.Context, msg Message, queue string, handler Handler) error {
	return c.Then(msg, queue, handler)(ctx)
}
