// Package refgen mints the human-readable reference codes printed on receipts
// and read out over the counter, e.g. ORD-20260829-1042.
package refgen

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Generator produces date-stamped rolling references. The counter restarts on
// process start; true uniqueness is backed by the unique index on each
// reference column, and callers regenerate on collision.
type Generator struct {
	counter atomic.Int64
}

func New() *Generator {
	g := &Generator{}
	g.counter.Store(1000)
	return g
}

func (g *Generator) OrderRef() string {
	return g.next("ORD")
}

func (g *Generator) BookingRef() string {
	return g.next("BKG")
}

func (g *Generator) next(prefix string) string {
	n := g.counter.Add(1) % 10000
	return fmt.Sprintf("%s-%s-%04d", prefix, time.Now().Format("20060102"), n)
}
