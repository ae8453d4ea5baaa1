package viewconfig

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"unicode"

	"gridquery/app/query"
)

// ErrUnknownComparator is returned when a column names a comparator that
// is not registered
var ErrUnknownComparator = errors.New("unknown comparator")

// Registry maps comparator names to comparators for groupableSortCompare
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]query.CompareFunc
}

// NewRegistry returns a registry holding the built-in comparators:
// "default", "natural", "caseInsensitive" and "length".
func NewRegistry() *Registry {
	r := &Registry{funcs: make(map[string]query.CompareFunc)}
	r.Register("default", query.CompareValues)
	r.Register("natural", NaturalCompare)
	r.Register("caseInsensitive", CaseInsensitiveCompare)
	r.Register("length", LengthCompare)
	return r
}

// Register adds or replaces a comparator
func (r *Registry) Register(name string, fn query.CompareFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

// Lookup returns the comparator registered under name
func (r *Registry) Lookup(name string) (query.CompareFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// Names lists the registered comparators in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NaturalCompare orders strings with embedded numbers by numeric value
// ("file2" before "file10"). Other values use the default ordering.
func NaturalCompare(a, b any) int {
	as, aok := a.(string)
	bs, bok := b.(string)
	if !aok || !bok {
		return query.CompareValues(a, b)
	}
	return naturalStrings(as, bs)
}

func naturalStrings(a, b string) int {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		ca, cb := a[i], b[j]
		if isDigit(ca) && isDigit(cb) {
			si := i
			for i < len(a) && isDigit(a[i]) {
				i++
			}
			sj := j
			for j < len(b) && isDigit(b[j]) {
				j++
			}
			na := strings.TrimLeft(a[si:i], "0")
			nb := strings.TrimLeft(b[sj:j], "0")
			if len(na) != len(nb) {
				if len(na) < len(nb) {
					return -1
				}
				return 1
			}
			if c := strings.Compare(na, nb); c != 0 {
				return c
			}
			continue
		}
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
		i++
		j++
	}
	switch {
	case len(a)-i < len(b)-j:
		return -1
	case len(a)-i > len(b)-j:
		return 1
	}
	return 0
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// CaseInsensitiveCompare orders strings ignoring case. Other values use the
// default ordering.
func CaseInsensitiveCompare(a, b any) int {
	as, aok := a.(string)
	bs, bok := b.(string)
	if !aok || !bok {
		return query.CompareValues(a, b)
	}
	return strings.Compare(strings.Map(unicode.ToLower, as), strings.Map(unicode.ToLower, bs))
}

// LengthCompare orders strings by length, then by the default ordering
func LengthCompare(a, b any) int {
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok && len(as) != len(bs) {
		if len(as) < len(bs) {
			return -1
		}
		return 1
	}
	return query.CompareValues(a, b)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
