package flow

import (
	"fmt"
	"sync"
	"time"

	"github.com/ritzau/flow-builder/pkg/model"
)

// IDGenerator hands out node ids
type IDGenerator interface {
	NextNodeID(t model.NodeType) string
}

// TimestampIDs generates ids of the form <type>_<unix millis>. The numeric part is
// strictly increasing, so two nodes created within the same millisecond still differ.
type TimestampIDs struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

// NewTimestampIDs creates a generator reading the given clock (time.Now when nil)
func NewTimestampIDs(now func() time.Time) *TimestampIDs {
	if now == nil {
		now = time.Now
	}
	return &TimestampIDs{now: now}
}

func (g *TimestampIDs) NextNodeID(t model.NodeType) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := g.now().UnixMilli()
	if n <= g.last {
		n = g.last + 1
	}
	g.last = n
	return fmt.Sprintf("%s_%d", t, n)
}
