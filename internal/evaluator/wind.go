package evaluator

import "github.com/cwbudde/scmcore/internal/runtime"

// windFrame is one entry of the dynamic-wind stack: an immutable, shared
// linked list (same shape as Kont) so a call/cc snapshot can hold a pointer
// to the frame active at capture time without copying or risking another
// task's concurrent push from aliasing it.
type windFrame struct {
	Before, After runtime.Value
	Parent        *windFrame
	Depth         int
}

func pushWind(before, after runtime.Value, parent *windFrame) *windFrame {
	d := 0
	if parent != nil {
		d = parent.Depth + 1
	}
	return &windFrame{Before: before, After: after, Parent: parent, Depth: d}
}

func windDepth(w *windFrame) int {
	if w == nil {
		return -1
	}
	return w.Depth
}

// commonAncestor finds the nearest shared frame of a and b, or nil if they
// only share the empty (no dynamic-wind) root.
func commonAncestor(a, b *windFrame) *windFrame {
	da, db := windDepth(a), windDepth(b)
	for da > db {
		a = a.Parent
		da--
	}
	for db > da {
		b = b.Parent
		db--
	}
	for a != b {
		a = a.Parent
		b = b.Parent
	}
	return a
}

// pathFrom collects the frames strictly between ancestor and w, ordered
// outermost-first (ancestor's immediate child first, w last) — the order
// `before` thunks must run in when rewinding into w.
func pathFrom(ancestor, w *windFrame) []*windFrame {
	var rev []*windFrame
	for cur := w; cur != ancestor; cur = cur.Parent {
		rev = append(rev, cur)
	}
	// rev is innermost-first; reverse it.
	for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}
	return rev
}
