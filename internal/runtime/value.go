// Package runtime implements the tagged runtime value representation, the
// GC-managed arena that allocates it, and the singleton/identity rules
// `eq?` depends on.
//
// The design mirrors the teacher's narrow Value interface
// (internal/interp/runtime/value_interfaces.go in the reference corpus):
// a small core interface plus opt-in capability interfaces a variant
// implements when it makes sense, instead of one fat interface every
// variant must fully implement.
package runtime

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	scmerrors "github.com/cwbudde/scmcore/internal/errors"
	"github.com/cwbudde/scmcore/internal/symbol"
)

// Value is the sum type every runtime datum implements.
type Value interface {
	// Kind returns the variant tag, e.g. "integer", "pair", "procedure".
	Kind() string
	// String returns the `display`-style representation.
	String() string
}

// Numeric is implemented by values usable in arithmetic.
type Numeric interface {
	Value
	AsInt() (int64, bool)
	AsFloat() (float64, bool)
}

// Comparable is implemented by values supporting `equal?`.
type Comparable interface {
	Value
	Equal(other Value) bool
}

// Orderable is implemented by values supporting `<`, `>`, etc.
type Orderable interface {
	Comparable
	Compare(other Value) (int, error)
}

// Callable is implemented by anything `apply`-able: Procedure,
// PrimitiveProcedure, and Continuation.
type Callable interface {
	Value
	MinArity() int
	// MaxArity is -1 for a variadic callable.
	MaxArity() int
}

// Tracer is implemented by values that hold outbound references the GC must
// follow. Values without outbound references (numbers, booleans, symbols)
// need not implement it.
type Tracer interface {
	Trace(visit func(Value))
}

// --- Unit / Boolean: canonical singletons, eq-identical everywhere. ---

type unitValue struct{}

func (unitValue) Kind() string   { return "unit" }
func (unitValue) String() string { return "" }

// Unit is the canonical single Unit/void value.
var Unit Value = unitValue{}

type nullValue struct{}

func (nullValue) Kind() string   { return "null" }
func (nullValue) String() string { return "()" }

// Null is the canonical empty-list singleton.
var Null Value = nullValue{}

type boolValue bool

func (b boolValue) Kind() string   { return "boolean" }
func (b boolValue) String() string {
	if b {
		return "#t"
	}
	return "#f"
}
func (b boolValue) Equal(other Value) bool {
	o, ok := other.(boolValue)
	return ok && bool(o) == bool(b)
}

// True and False are the two canonical boolean singletons; Bool(x) always
// returns one of these two, which is what makes `eq?` on booleans hold.
var (
	True  Value = boolValue(true)
	False Value = boolValue(false)
)

// Bool returns the canonical True or False singleton for b.
func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

// IsTruthy implements Scheme's "everything but #f is true" rule.
func IsTruthy(v Value) bool {
	b, ok := v.(boolValue)
	return !ok || bool(b)
}

// --- Integer / Real ---

// Integer is the fixnum fast path (machine int64). This package has no
// arbitrary-precision type and no promotion beyond int64, per spec.md's
// "numeric tower beyond fixnum/flonum" non-goal.
type Integer struct{ V int64 }

func NewInteger(v int64) *Integer { return &Integer{V: v} }

func (i *Integer) Kind() string   { return "integer" }
func (i *Integer) String() string { return strconv.FormatInt(i.V, 10) }
func (i *Integer) AsInt() (int64, bool) { return i.V, true }
func (i *Integer) AsFloat() (float64, bool) { return float64(i.V), true }
func (i *Integer) Equal(other Value) bool {
	switch o := other.(type) {
	case *Integer:
		return o.V == i.V
	case *Real:
		return o.V == float64(i.V)
	}
	return false
}
func (i *Integer) Compare(other Value) (int, error) {
	n, ok := other.(Numeric)
	if !ok {
		return 0, fmt.Errorf("cannot compare integer with %s", other.Kind())
	}
	if of, ok2 := n.(*Integer); ok2 {
		switch {
		case i.V < of.V:
			return -1, nil
		case i.V > of.V:
			return 1, nil
		default:
			return 0, nil
		}
	}
	f, _ := n.AsFloat()
	switch {
	case float64(i.V) < f:
		return -1, nil
	case float64(i.V) > f:
		return 1, nil
	default:
		return 0, nil
	}
}

// Real is the IEEE-754 double fast path.
type Real struct{ V float64 }

func NewReal(v float64) *Real { return &Real{V: v} }

func (r *Real) Kind() string       { return "real" }
func (r *Real) String() string     { return strconv.FormatFloat(r.V, 'g', -1, 64) }
func (r *Real) AsInt() (int64, bool) { return int64(r.V), true }
func (r *Real) AsFloat() (float64, bool) { return r.V, true }
func (r *Real) Equal(other Value) bool {
	switch o := other.(type) {
	case *Real:
		return o.V == r.V
	case *Integer:
		return float64(o.V) == r.V
	}
	return false
}
func (r *Real) Compare(other Value) (int, error) {
	n, ok := other.(Numeric)
	if !ok {
		return 0, fmt.Errorf("cannot compare real with %s", other.Kind())
	}
	f, _ := n.AsFloat()
	switch {
	case r.V < f:
		return -1, nil
	case r.V > f:
		return 1, nil
	default:
		return 0, nil
	}
}

// --- Char / String ---

type Char struct{ V rune }

func NewChar(v rune) *Char { return &Char{V: v} }

func (c *Char) Kind() string   { return "char" }
func (c *Char) String() string { return string(c.V) }
func (c *Char) Equal(other Value) bool {
	o, ok := other.(*Char)
	return ok && o.V == c.V
}

// String is a mutable UTF-8 buffer, heap-allocated and GC-tracked. Mutation
// (string-set!) goes through the Set method, not direct field assignment,
// so in-place edits remain visible to every alias the way DWScript's
// reference-typed StringValue would not be but Scheme's mutable strings
// must be.
type String struct {
	runes []rune
}

func NewString(s string) *String { return &String{runes: []rune(s)} }

func (s *String) Kind() string   { return "string" }
func (s *String) String() string { return string(s.runes) }
func (s *String) Len() int       { return len(s.runes) }
func (s *String) Ref(i int) (rune, error) {
	if i < 0 || i >= len(s.runes) {
		return 0, fmt.Errorf("string-ref: index %d out of range [0,%d)", i, len(s.runes))
	}
	return s.runes[i], nil
}
func (s *String) Set(i int, r rune) error {
	if i < 0 || i >= len(s.runes) {
		return fmt.Errorf("string-set!: index %d out of range [0,%d)", i, len(s.runes))
	}
	s.runes[i] = r
	return nil
}
func (s *String) Equal(other Value) bool {
	o, ok := other.(*String)
	return ok && string(o.runes) == string(s.runes)
}

// --- Symbol ---

// Symbol wraps an interned symbol.ID; eq? compares the ID, giving the
// eq-identity invariant spec.md §3 requires for free.
type Symbol struct{ ID symbol.ID }

func Intern(name string) *Symbol { return &Symbol{ID: symbol.Intern(name)} }

func (s *Symbol) Kind() string   { return "symbol" }
func (s *Symbol) String() string { return symbol.Text(s.ID) }
func (s *Symbol) Name() string   { return symbol.Text(s.ID) }
func (s *Symbol) Equal(other Value) bool {
	o, ok := other.(*Symbol)
	return ok && o.ID == s.ID
}

// --- Pair ---

// Pair is a mutable cons cell. Cyclic structures are permitted; reclamation
// is the arena's tracing collector's job, not reference counting.
type Pair struct {
	Car, Cdr Value
}

func NewPair(car, cdr Value) *Pair { return &Pair{Car: car, Cdr: cdr} }

func (p *Pair) Kind() string { return "pair" }
func (p *Pair) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	cur := Value(p)
	first := true
	for {
		pp, ok := cur.(*Pair)
		if !ok {
			break
		}
		if !first {
			sb.WriteByte(' ')
		}
		first = false
		sb.WriteString(displayOrNil(pp.Car))
		cur = pp.Cdr
	}
	if cur != Null {
		sb.WriteString(" . ")
		sb.WriteString(displayOrNil(cur))
	}
	sb.WriteByte(')')
	return sb.String()
}
func displayOrNil(v Value) string {
	if v == nil {
		return "()"
	}
	return v.String()
}
func (p *Pair) Trace(visit func(Value)) {
	visit(p.Car)
	visit(p.Cdr)
}

// --- Vector ---

// Vector is a mutable, contiguous, ordered sequence.
type Vector struct {
	Items []Value
}

func NewVector(items []Value) *Vector { return &Vector{Items: items} }

func (v *Vector) Kind() string { return "vector" }
func (v *Vector) String() string {
	parts := make([]string, len(v.Items))
	for i, it := range v.Items {
		parts[i] = displayOrNil(it)
	}
	return "#(" + strings.Join(parts, " ") + ")"
}
func (v *Vector) Length() int64 { return int64(len(v.Items)) }
func (v *Vector) GetIndex(i int64) (Value, error) {
	if i < 0 || int(i) >= len(v.Items) {
		return nil, fmt.Errorf("vector-ref: index %d out of range [0,%d)", i, len(v.Items))
	}
	return v.Items[i], nil
}
func (v *Vector) SetIndex(i int64, val Value) error {
	if i < 0 || int(i) >= len(v.Items) {
		return fmt.Errorf("vector-set!: index %d out of range [0,%d)", i, len(v.Items))
	}
	v.Items[i] = val
	return nil
}
func (v *Vector) Trace(visit func(Value)) {
	for _, it := range v.Items {
		visit(it)
	}
}

// --- Hashtable ---

// Hashtable maps a string hash-key (the evaluator normalizes keys with
// `equal?` semantics before calling in) to a Value. Concurrent access from
// multiple tasks requires the caller to take Lock/Unlock — this is one of
// the "hashtable-with-lock" shared-mutable containers spec.md §5 calls out
// as safe to share across tasks when used with its embedded synchronization.
type Hashtable struct {
	sync.Mutex
	m map[string]Value
}

func NewHashtable() *Hashtable { return &Hashtable{m: make(map[string]Value)} }

func (h *Hashtable) Kind() string   { return "hashtable" }
func (h *Hashtable) String() string { return fmt.Sprintf("#[hashtable %d]", len(h.m)) }
func (h *Hashtable) Get(key string) (Value, bool) {
	v, ok := h.m[key]
	return v, ok
}
func (h *Hashtable) Set(key string, v Value) { h.m[key] = v }
func (h *Hashtable) Delete(key string)        { delete(h.m, key) }
func (h *Hashtable) Len() int                 { return len(h.m) }
func (h *Hashtable) Trace(visit func(Value)) {
	for _, v := range h.m {
		visit(v)
	}
}

// --- Record ---

// Record is a named struct with ordered fields, the runtime representation
// of a `define-record-type` instance.
type Record struct {
	TypeName string
	Fields   []string
	Values   []Value
}

func (r *Record) Kind() string { return "record:" + r.TypeName }
func (r *Record) String() string {
	return fmt.Sprintf("#[%s]", r.TypeName)
}
func (r *Record) Get(field string) (Value, bool) {
	for i, f := range r.Fields {
		if f == field {
			return r.Values[i], true
		}
	}
	return nil, false
}
func (r *Record) SetField(field string, v Value) bool {
	for i, f := range r.Fields {
		if f == field {
			r.Values[i] = v
			return true
		}
	}
	return false
}
func (r *Record) Trace(visit func(Value)) {
	for _, v := range r.Values {
		visit(v)
	}
}

// --- Error object ---

// ErrorObject is the value wrapper satisfying `error-object?` and friends;
// internal/errors.RuntimeError carries the structured detail.
type ErrorObject struct {
	Message   string
	Irritants []Value
	Kind_     string
	Cause     error
}

func (e *ErrorObject) Kind() string { return "error-object" }
func (e *ErrorObject) String() string {
	return fmt.Sprintf("#[error-object %s: %s]", e.Kind_, e.Message)
}
func (e *ErrorObject) Trace(visit func(Value)) {
	for _, v := range e.Irritants {
		visit(v)
	}
}

// --- Multiple values ---

// ValuesBundle carries the result of `(values a b c)` across a return
// boundary. It is not meant to flow into ordinary expression positions —
// only call-with-values (internal/primitive) and the evaluator's
// top-level Eval result unpack it.
type ValuesBundle struct{ Vals []Value }

func (b *ValuesBundle) Kind() string   { return "values" }
func (b *ValuesBundle) String() string { return fmt.Sprintf("#[values %d]", len(b.Vals)) }
func (b *ValuesBundle) Trace(visit func(Value)) {
	for _, v := range b.Vals {
		visit(v)
	}
}

// NewErrorObject wraps a *errors.RuntimeError as a Value, carrying along its
// Go-level irritants (not yet runtime Values) as a parallel slice the
// `raise`/`guard` machinery converts once it has evaluation context.
func NewErrorObject(re *scmerrors.RuntimeError, irritants []Value) *ErrorObject {
	return &ErrorObject{
		Message:   re.Message,
		Irritants: irritants,
		Kind_:     string(re.Category),
		Cause:     re,
	}
}
