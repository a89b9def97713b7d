package schedule

import (
	"sync"
	"time"

	"github.com/greenbugenergy/outbound-caller/internal/classify"
)

// Ledger counts provisional reservations per (date, window). Reserve must be
// atomic: many concurrent calls race to book the same window and the count
// must never exceed capacity. The in-memory implementation is best-effort
// de-duplication within one process; authoritative conflict resolution lives
// in the CRM. A multi-process deployment would swap in a shared store with
// conditional writes behind this same interface.
type Ledger interface {
	// Reserve increments the count for (date, window) if it is below
	// capacity. It returns the pre-increment count (which doubles as a slot
	// index into the day's catalog) and whether the reservation was taken.
	Reserve(date time.Time, window classify.Window) (int, bool)
}

// MemoryLedger is the single-process Ledger.
type MemoryLedger struct {
	mu       sync.Mutex
	capacity int
	counts   map[string]int
}

// NewMemoryLedger creates a ledger with the given per-(date, window) capacity.
func NewMemoryLedger(capacity int) *MemoryLedger {
	if capacity <= 0 {
		capacity = 2
	}
	return &MemoryLedger{
		capacity: capacity,
		counts:   make(map[string]int),
	}
}

func ledgerKey(date time.Time, window classify.Window) string {
	return date.Format("2006-01-02") + "|" + string(window)
}

// Reserve implements Ledger.
func (l *MemoryLedger) Reserve(date time.Time, window classify.Window) (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := ledgerKey(date, window)
	n := l.counts[key]
	if n >= l.capacity {
		return 0, false
	}
	l.counts[key] = n + 1
	return n, true
}
