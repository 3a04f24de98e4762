package ledger

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"
	"time"
)

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type fields map[string]any

func parseFields(body []byte) fields {
	var f fields
	if err := json.Unmarshal(body, &f); err != nil {
		return nil
	}
	return f
}

func (f fields) matches(filters []Filter) bool {
	for _, flt := range filters {
		want, err := normalize(flt.Value)
		if err != nil {
			return false
		}
		got, ok := f[flt.Field]
		if !ok {
			return false
		}
		c, ok := compareValues(got, want)
		if !ok {
			return false
		}
		switch flt.Op {
		case Eq:
			if c != 0 {
				return false
			}
		case Gte:
			if c < 0 {
				return false
			}
		case Lte:
			if c > 0 {
				return false
			}
		}
	}
	return true
}

// compareValues compares a decoded JSON value with a normalized filter
// value. ok is false when the types do not line up.
func compareValues(got, want any) (int, bool) {
	switch w := want.(type) {
	case string:
		g, ok := got.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(g, w), true
	case float64:
		g, ok := got.(float64)
		if !ok {
			return 0, false
		}
		return cmpFloat(g, w), true
	case bool:
		g, ok := got.(bool)
		if !ok || g != w {
			return 1, ok
		}
		return 0, true
	case time.Time:
		s, ok := got.(string)
		if !ok {
			return 0, false
		}
		g, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return 0, false
		}
		return g.Compare(w), true
	}
	return 0, false
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

type sortable struct {
	doc    Document
	fields fields
}

// sortDocuments orders in place. Documents missing the field go last,
// ties fall back to the key so results are stable across stores.
func sortDocuments(items []sortable, s *Sort) {
	sort.SliceStable(items, func(i, j int) bool {
		if s == nil {
			return items[i].doc.Key.ID < items[j].doc.Key.ID
		}
		a, aok := sortValue(items[i].fields, s)
		b, bok := sortValue(items[j].fields, s)
		if aok != bok {
			return aok
		}
		if aok {
			if c := compareSortValues(a, b); c != 0 {
				if s.Desc {
					return c > 0
				}
				return c < 0
			}
		}
		return items[i].doc.Key.ID < items[j].doc.Key.ID
	})
}

func sortValue(f fields, s *Sort) (any, bool) {
	v, ok := f[s.Field]
	if !ok {
		return nil, false
	}
	switch s.Kind {
	case SortNumber:
		n, ok := v.(float64)
		return n, ok
	case SortTime:
		str, ok := v.(string)
		if !ok {
			return nil, false
		}
		t, err := time.Parse(time.RFC3339Nano, str)
		if err != nil {
			return nil, false
		}
		return t, true
	default:
		str, ok := v.(string)
		return str, ok
	}
}

func compareSortValues(a, b any) int {
	switch x := a.(type) {
	case float64:
		return cmpFloat(x, b.(float64))
	case time.Time:
		return x.Compare(b.(time.Time))
	case string:
		return strings.Compare(x, b.(string))
	}
	return 0
}
