// Package flatten collapses parsed markup trees into flat key/value records.
package flatten

import (
	"fmt"
	"sort"

	"github.com/clbanning/mxj/v2"
)

// AttrPrefix marks attribute-derived keys; TextKey holds an element's
// character data when it also carries attributes or children.
const (
	AttrPrefix = "@"
	TextKey    = "#text"
)

func init() {
	mxj.SetAttrPrefix(AttrPrefix)
}

// Record is a flattened record. Keys preserves insertion order; the parsed
// tree is an unordered map, so sibling keys are visited sorted.
type Record struct {
	Keys   []string
	Values map[string]any
}

func (r *Record) set(key string, value any) {
	if _, seen := r.Values[key]; !seen {
		r.Keys = append(r.Keys, key)
	}
	r.Values[key] = value
}

// Flatten assigns each leaf to a key built by joining path segments with
// underscores. Arrays are terminal values; the repeated-record axis is
// picked before Flatten is called.
func Flatten(node map[string]any, prefix string) Record {
	rec := Record{Values: map[string]any{}}
	walk(node, prefix, &rec)
	return rec
}

func walk(node map[string]any, prefix string, rec *Record) {
	for _, key := range sortedKeys(node) {
		joined := key
		if prefix != "" {
			joined = prefix + "_" + key
		}
		if child, ok := node[key].(map[string]any); ok {
			walk(child, joined, rec)
			continue
		}
		rec.set(joined, node[key])
	}
}

func ParseMarkup(raw []byte) (map[string]any, error) {
	tree, err := mxj.NewMapXml(raw)
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}
	return map[string]any(tree), nil
}

// FindRecordAxis picks the repeated-record axis: the first array among the
// root's children, else the first array one level deeper, else the whole
// document as a single record. Best-effort; several plausible repeating
// elements resolve to whichever key sorts first.
func FindRecordAxis(doc map[string]any) []any {
	root := doc
	if len(doc) == 1 {
		for _, value := range doc {
			if child, ok := value.(map[string]any); ok {
				root = child
			}
		}
	}
	if items := firstArray(root); items != nil {
		return items
	}
	for _, key := range sortedKeys(root) {
		if child, ok := root[key].(map[string]any); ok {
			if items := firstArray(child); items != nil {
				return items
			}
		}
	}
	return []any{root}
}

func firstArray(node map[string]any) []any {
	for _, key := range sortedKeys(node) {
		if items, ok := node[key].([]any); ok {
			return items
		}
	}
	return nil
}

func sortedKeys(node map[string]any) []string {
	keys := make([]string, 0, len(node))
	for key := range node {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
