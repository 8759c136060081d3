// Package subsidiary stores parent to child edges between organisations.
package subsidiary

import (
	"context"
	"sort"
	"sync"

	"orgprofile/internal/company/models"
)

// InMemory holds the edge set as an adjacency map.
type InMemory struct {
	mu       sync.RWMutex
	children map[string]map[string]struct{}
}

func NewInMemory() *InMemory {
	return &InMemory{children: make(map[string]map[string]struct{})}
}

// Create adds the edge; an existing edge is left untouched.
func (s *InMemory) Create(_ context.Context, parent, child string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.children[parent]
	if !ok {
		set = make(map[string]struct{})
		s.children[parent] = set
	}
	set[child] = struct{}{}
	return nil
}

func (s *InMemory) Delete(_ context.Context, parent, child string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set, ok := s.children[parent]; ok {
		delete(set, child)
		if len(set) == 0 {
			delete(s.children, parent)
		}
	}
	return nil
}

func (s *InMemory) Exists(_ context.Context, parent, child string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.children[parent][child]
	return ok, nil
}

func (s *InMemory) ChildrenOf(_ context.Context, parent string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.children[parent]), nil
}

// Descendants walks the graph breadth first from parent. Each node is expanded
// once, so a cycle terminates after its edges have been reported.
func (s *InMemory) Descendants(_ context.Context, parent string) ([]models.SubsidiaryRelation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.SubsidiaryRelation
	visited := map[string]struct{}{parent: {}}
	queue := []string{parent}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, child := range sortedKeys(s.children[node]) {
			out = append(out, models.SubsidiaryRelation{ParentCode: node, ChildCode: child})
			if _, seen := visited[child]; seen {
				continue
			}
			visited[child] = struct{}{}
			queue = append(queue, child)
		}
	}
	return out, nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
