// Package configstore provides read-only configuration node stores backing the graphic filter cache.
package configstore

import (
	"fmt"
	"sort"

	"github.com/lychee-technology/filterdetect"
	"go.uber.org/zap"
)

// Document names used by file and object stores.
const (
	TypesDocument   = "types"
	FiltersDocument = "filters"
)

// DocumentForNode maps a configuration node path to its document name.
func DocumentForNode(nodePath string) (string, bool) {
	switch nodePath {
	case filterdetect.TypesNodePath:
		return TypesDocument, true
	case filterdetect.FiltersNodePath:
		return FiltersDocument, true
	default:
		return "", false
	}
}

// NodeForDocument maps a document name back to its node path.
func NodeForDocument(document string) (string, bool) {
	switch document {
	case TypesDocument:
		return filterdetect.TypesNodePath, true
	case FiltersDocument:
		return filterdetect.FiltersNodePath, true
	default:
		return "", false
	}
}

// Entry is one named property set.
type Entry struct {
	Name       string
	Properties map[string]any
}

// Property implements filterdetect.PropertySet.
func (e *Entry) Property(name string) (any, bool) {
	v, ok := e.Properties[name]
	return v, ok
}

// PropertyNames returns the property names sorted.
func (e *Entry) PropertyNames() []string {
	names := make([]string, 0, len(e.Properties))
	for k := range e.Properties {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Node is an ordered collection of entries. Later entries with a duplicate name replace earlier ones
// in place.
type Node struct {
	Path    string
	entries []*Entry
	index   map[string]int
}

// NewNode creates an empty node.
func NewNode(path string) *Node {
	return &Node{Path: path, index: make(map[string]int)}
}

// Add appends an entry, normalizing its property values. Values that are neither a string nor a
// list of strings are dropped, so readers see them as missing.
func (n *Node) Add(name string, props map[string]any) error {
	if name == "" {
		return fmt.Errorf("entry name is empty")
	}
	normalized := make(map[string]any, len(props))
	for k, v := range props {
		nv, ok := NormalizeValue(v)
		if !ok {
			zap.S().Debugw("dropping configuration property", "node_path", n.Path, "entry", name, "property", k, "value_type", fmt.Sprintf("%T", v))
			continue
		}
		normalized[k] = nv
	}
	e := &Entry{Name: name, Properties: normalized}
	if i, ok := n.index[name]; ok {
		n.entries[i] = e
		return nil
	}
	n.index[name] = len(n.entries)
	n.entries = append(n.entries, e)
	return nil
}

// Entries returns the entries in enumeration order.
func (n *Node) Entries() []*Entry {
	out := make([]*Entry, len(n.entries))
	copy(out, n.entries)
	return out
}

// Len returns the number of entries.
func (n *Node) Len() int { return len(n.entries) }

// ElementNames implements filterdetect.NodeAccess.
func (n *Node) ElementNames() []string {
	names := make([]string, len(n.entries))
	for i, e := range n.entries {
		names[i] = e.Name
	}
	return names
}

// ByName implements filterdetect.NodeAccess.
func (n *Node) ByName(name string) (filterdetect.PropertySet, bool) {
	i, ok := n.index[name]
	if !ok {
		return nil, false
	}
	return n.entries[i], true
}

// NormalizeValue converts decoded property values to string or []string. ok is false for
// anything else, including null and lists holding a non-string.
func NormalizeValue(v any) (any, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out, true
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
