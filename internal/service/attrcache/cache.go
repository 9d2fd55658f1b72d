// Package attrcache memoizes product attribute value lookups for a short
// time. Entries expire lazily on read; nothing is evicted.
package attrcache

import (
	"context"
	"slices"
	"sync"
	"time"

	"babettepos/internal/erp"
	"babettepos/internal/metrics"
)

const (
	DefaultTTL = 5 * time.Minute

	model = "product.template.attribute.value"
)

// Attribute is one resolved attribute value, e.g. {"3 jaar", "Maat"}.
type Attribute struct {
	Name          string
	AttributeName string
}

type entry struct {
	Attribute
	expires time.Time
}

type Cache struct {
	caller erp.Caller
	ttl    time.Duration
	now    func() time.Time

	mu      sync.RWMutex
	entries map[int]entry
}

func New(caller erp.Caller, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		caller:  caller,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[int]entry),
	}
}

// SetClock overrides the time source.
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

type attributeValue struct {
	ID        int          `json:"id"`
	Name      erp.Text     `json:"name"`
	Attribute erp.Many2One `json:"attribute_id"`
}

// Lookup resolves ids. The batch is served from memory only when every id is
// cached and unexpired; otherwise the whole batch is fetched in one call and
// every returned row is cached. Ids the ERP does not return are absent from
// the result and are not cached.
func (c *Cache) Lookup(ctx context.Context, cred erp.Credentials, ids []int) (map[int]Attribute, error) {
	unique := dedupe(ids)
	if len(unique) == 0 {
		return map[int]Attribute{}, nil
	}
	if hit, ok := c.cached(unique); ok {
		metrics.AttributeCacheLookup(true)
		return hit, nil
	}
	metrics.AttributeCacheLookup(false)

	var rows []attributeValue
	err := erp.NewEnv(c.caller, cred).SearchRead(ctx, model,
		[]any{[]any{"id", "in", unique}},
		erp.Query{Fields: []string{"id", "name", "attribute_id"}},
		&rows,
	)
	if err != nil {
		return nil, err
	}

	out := make(map[int]Attribute, len(rows))
	c.mu.Lock()
	expires := c.now().Add(c.ttl)
	for _, row := range rows {
		attr := Attribute{Name: row.Name.String(), AttributeName: row.Attribute.Name}
		out[row.ID] = attr
		c.entries[row.ID] = entry{Attribute: attr, expires: expires}
	}
	c.mu.Unlock()
	return out, nil
}

func (c *Cache) cached(ids []int) (map[int]Attribute, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := c.now()
	out := make(map[int]Attribute, len(ids))
	for _, id := range ids {
		e, ok := c.entries[id]
		if !ok || e.expires.Before(now) {
			return nil, false
		}
		out[id] = e.Attribute
	}
	return out, true
}

func dedupe(ids []int) []int {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
