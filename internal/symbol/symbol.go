// Package symbol provides process-wide interning of Scheme symbol text to a
// stable, comparable ID. Two symbols with the same text always intern to the
// same ID, which is what gives `eq?` its identity semantics for symbols.
package symbol

import "sync"

// ID identifies an interned symbol. The zero value is never produced by
// Intern and is reserved as "no symbol".
type ID uint32

// Table is a concurrent-safe symbol interner. The zero Table is not usable;
// construct one with NewTable. Readers never block each other or a
// concurrent Intern of an already-known symbol; only interning a genuinely
// new name takes the write path.
type Table struct {
	mu     sync.RWMutex
	byText map[string]ID
	byID   []string // index 0 unused, IDs start at 1
}

// NewTable creates an empty interning table.
func NewTable() *Table {
	return &Table{
		byText: make(map[string]ID, 256),
		byID:   make([]string, 1, 256), // reserve index 0
	}
}

// Intern returns the stable ID for text, allocating a new one on first use.
func (t *Table) Intern(text string) ID {
	t.mu.RLock()
	if id, ok := t.byText[text]; ok {
		t.mu.RUnlock()
		return id
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	// Re-check: another writer may have interned it while we waited for the lock.
	if id, ok := t.byText[text]; ok {
		return id
	}
	id := ID(len(t.byID))
	t.byID = append(t.byID, text)
	t.byText[text] = id
	return id
}

// Text returns the original text for an interned ID. If id is out of this
// table's range (the reserved zero ID, or an ID from another Table) it
// returns "<invalid-symbol>" instead.
func (t *Table) Text(id ID) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int(id) <= 0 || int(id) >= len(t.byID) {
		return "<invalid-symbol>"
	}
	return t.byID[id]
}

// Len reports how many distinct symbols have been interned.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byID) - 1
}

// global is the process-wide table. A single shared interner is acceptable
// for the symbol table specifically (per the ad-hoc-global-state design
// note), and it is reentrant via Table's internal RWMutex.
var global = NewTable()

// Intern interns text in the process-wide table.
func Intern(text string) ID { return global.Intern(text) }

// Text resolves an ID interned in the process-wide table.
func Text(id ID) string { return global.Text(id) }
