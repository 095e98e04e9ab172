package configstore

import (
	"context"
	"sort"
	"sync"

	"github.com/lychee-technology/filterdetect"
)

// MemoryStore serves nodes held in memory.
type MemoryStore struct {
	mu    sync.RWMutex
	nodes map[string]*Node
}

// NewMemoryStore creates a store holding nodes.
func NewMemoryStore(nodes ...*Node) *MemoryStore {
	s := &MemoryStore{nodes: make(map[string]*Node)}
	for _, n := range nodes {
		s.Put(n)
	}
	return s
}

// Put adds or replaces a node.
func (s *MemoryStore) Put(n *Node) {
	if n == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[n.Path] = n
}

// OpenNode implements filterdetect.ConfigurationProvider.
func (s *MemoryStore) OpenNode(ctx context.Context, nodePath string) (filterdetect.NodeAccess, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[nodePath]
	if !ok {
		return nil, filterdetect.NewNodeNotFoundError(nodePath)
	}
	return n, nil
}

// Nodes returns the stored nodes: types, filters, then any others by path.
func (s *MemoryStore) Nodes() []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Node, 0, len(s.nodes))
	var others []string
	for p := range s.nodes {
		if _, known := DocumentForNode(p); !known {
			others = append(others, p)
		}
	}
	sort.Strings(others)
	for _, p := range append([]string{filterdetect.TypesNodePath, filterdetect.FiltersNodePath}, others...) {
		if n, ok := s.nodes[p]; ok {
			out = append(out, n)
		}
	}
	return out
}
