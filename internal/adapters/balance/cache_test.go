package balance

import (
	"testing"

	gocache "github.com/patrickmn/go-cache"
)

func TestInvalidateDropsEntry(t *testing.T) {
	b := New()
	b.c.Set(key("100"), "10 XLM", gocache.DefaultExpiration)

	b.Invalidate("100")

	if _, ok := b.c.Get(key("100")); ok {
		t.Error("entry survived invalidation")
	}
}

func TestInvalidateUnknownUserIsHarmless(t *testing.T) {
	b := New()
	b.Invalidate("does-not-exist")
}
