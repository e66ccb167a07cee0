package classifier

import (
	"github.com/patrickmn/go-cache"
)

// Memo remembers fallback answers per descriptor for the lifetime of a run.
type Memo struct {
	c *cache.Cache
}

// NewMemo returns an empty memo whose entries never expire.
func NewMemo() *Memo {
	return &Memo{c: cache.New(cache.NoExpiration, 0)}
}

// Get returns the remembered category for descriptor.
func (m *Memo) Get(descriptor string) (string, bool) {
	v, ok := m.c.Get(descriptor)
	if !ok {
		return "", false
	}
	category, ok := v.(string)
	return category, ok
}

// Set remembers the category for descriptor.
func (m *Memo) Set(descriptor, category string) {
	m.c.Set(descriptor, category, cache.NoExpiration)
}

// Len returns the number of remembered descriptors.
func (m *Memo) Len() int {
	return m.c.ItemCount()
}

// Flush forgets every entry.
func (m *Memo) Flush() {
	m.c.Flush()
}
