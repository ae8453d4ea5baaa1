package query

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"gridquery/app/cache"
	"gridquery/app/interfaces"

	"github.com/minio/highwayhash"
)

// MemoHashKey is the HighwayHash key used for structural memo keys
var MemoHashKey = []byte("gridquery memo key\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00")

// segmentEscaper keeps '|' out of stage segments so a key has exactly one
// '|' per stage
var segmentEscaper = strings.NewReplacer("%", "%25", "|", "%7C")

// BuildStageCacheKey creates the cache key of the output of the given stage
// prefix. Key format: "data:<id>|stage1:key1|stage2:key2|...". Stages that
// cannot be cached are left out.
func BuildStageCacheKey(datasetID string, stages []PipelineStage) string {
	var b strings.Builder
	b.WriteString("data:")
	b.WriteString(datasetID)
	for _, stage := range stages {
		if stage.CanCache() {
			fmt.Fprintf(&b, "|%s:%s", stage.Name(), segmentEscaper.Replace(stage.CacheKey()))
		}
	}
	return b.String()
}

// StructuralKey hashes every stage descriptor of a pipeline into the memo key
// of its complete derived state: "state:data:<id>|<highwayhash>".
func StructuralKey(datasetID string, stages []PipelineStage) string {
	h, err := highwayhash.New64(MemoHashKey)
	if err != nil {
		// Only possible with a key that is not 32 bytes long
		panic(err)
	}
	for _, stage := range stages {
		fmt.Fprintf(h, "%s:%s\x1e", stage.Name(), stage.CacheKey())
	}
	return fmt.Sprintf("%sdata:%s|%s", cache.StatePrefix, datasetID, hex.EncodeToString(h.Sum(nil)))
}

// DescribeFilter renders a filter tree deterministically for cache keys.
// Values carry their kind so that "1" and 1 produce different keys.
func DescribeFilter(node FilterNode) string {
	var b strings.Builder
	describeFilterNode(&b, node)
	return b.String()
}

func describeFilterNode(b *strings.Builder, node FilterNode) {
	switch n := node.(type) {
	case nil:
		b.WriteString("nil")
	case *interfaces.Leaf:
		fmt.Fprintf(b, "leaf(%q,%q,%q)", n.Field, strings.ToLower(n.Operator), valueKey(n.Value))
	case *interfaces.Composite:
		// The composite's own predicate never affects matching, so it is not part of the key
		logic := n.Logic
		if logic != interfaces.LogicOr {
			logic = interfaces.LogicAnd
		}
		fmt.Fprintf(b, "%s(", logic)
		for i, child := range n.Children {
			if i > 0 {
				b.WriteByte(',')
			}
			describeFilterNode(b, child)
		}
		b.WriteByte(')')
	default:
		fmt.Fprintf(b, "%T", n)
	}
}

func describeFilters(filters []FilterNode) string {
	parts := make([]string, len(filters))
	for i, f := range filters {
		parts[i] = DescribeFilter(f)
	}
	return strings.Join(parts, "&")
}

func describeSortKeys(keys []SortKey) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%q %s", k.Field, normalizeDirection(k.Direction))
	}
	return strings.Join(parts, ",")
}

func describeAggregates(specs []AggregateSpec) string {
	parts := make([]string, len(specs))
	for i, s := range specs {
		parts[i] = fmt.Sprintf("%s(%q)", s.Func, s.Field)
	}
	return strings.Join(parts, ",")
}

// describeGroupKeys reports false when a key uses an anonymous comparator
func describeGroupKeys(keys []GroupKey) (string, bool) {
	parts := make([]string, len(keys))
	for i, k := range keys {
		cmpName := "default"
		if k.Compare != nil {
			if k.CompareName == "" {
				return "", false
			}
			cmpName = k.CompareName
		}
		parts[i] = fmt.Sprintf("%q %s cmp=%s aggs=[%s]", k.Field, normalizeDirection(k.Direction), cmpName, describeAggregates(k.Aggregates))
	}
	return strings.Join(parts, ","), true
}

func describeCollapsed(collapsed map[string]bool) string {
	var paths []string
	for p, c := range collapsed {
		if c {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return strings.Join(paths, ";")
}

func describePivot(cfg PivotConfig) string {
	measures := make([]string, len(cfg.Measures))
	for i, m := range cfg.Measures {
		measures[i] = fmt.Sprintf("%q=%s(%q)", m.Name, m.Func, m.Field)
	}
	return fmt.Sprintf("rows=%q/%s:cols=%q/%s:measures=%s",
		cfg.Rows.Fields, cfg.Rows.Sort, cfg.Columns.Fields, cfg.Columns.Sort, strings.Join(measures, ","))
}

func normalizeDirection(d SortDirection) SortDirection {
	if d == SortDesc {
		return SortDesc
	}
	return SortAsc
}
