// Package classification serves the industry classification tree.
package classification

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

//go:embed industry_classifications.json
var defaultTree []byte

// Node is one classification with its sub-classifications. Depth is 0 for roots.
type Node struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Depth    int    `json:"depth"`
	Children []Node `json:"children"`
}

type flat struct {
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	ParentCode *string `json:"parentCode"`
}

// Tree is immutable once loaded and safe for concurrent use.
type Tree struct {
	roots []Node
}

// Load reads the flat classification list from path, or the bundled list when path is empty.
func Load(path string) (*Tree, error) {
	data := defaultTree
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read classifications: %w", err)
		}
	}
	return Parse(data)
}

func Parse(data []byte) (*Tree, error) {
	var entries []flat
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode classifications: %w", err)
	}
	byParent := make(map[string][]flat)
	var roots []flat
	for _, e := range entries {
		if e.ParentCode == nil {
			roots = append(roots, e)
			continue
		}
		byParent[*e.ParentCode] = append(byParent[*e.ParentCode], e)
	}
	return &Tree{roots: build(roots, byParent, 0)}, nil
}

func build(level []flat, byParent map[string][]flat, depth int) []Node {
	nodes := make([]Node, 0, len(level))
	for _, e := range level {
		nodes = append(nodes, Node{
			Code:     e.Code,
			Name:     e.Name,
			Depth:    depth,
			Children: build(byParent[e.Code], byParent, depth+1),
		})
	}
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
	return nodes
}

// Classifications returns the roots with children down to maxDepth. A negative
// maxDepth returns the whole tree.
func (t *Tree) Classifications(maxDepth int) []Node {
	return truncate(t.roots, maxDepth)
}

func truncate(nodes []Node, maxDepth int) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = Node{Code: n.Code, Name: n.Name, Depth: n.Depth, Children: []Node{}}
		if maxDepth < 0 || n.Depth < maxDepth {
			out[i].Children = truncate(n.Children, maxDepth)
		}
	}
	return out
}
