package aggregates

import (
	"evotree-backend/domain/core/entities"
	"evotree-backend/domain/core/valueobjects"
)

// TreeNode is one mechanic in a materialized evolution tree.
// A node with Cycle set repeats an ancestor and is always a leaf.
type TreeNode struct {
	ID          valueobjects.MechanicID `json:"id"`
	Name        string                  `json:"name"`
	Description *string                 `json:"description,omitempty"`
	Year        *int                    `json:"year,omitempty"`
	Cycle       bool                    `json:"cycle,omitempty"`
	Children    []TreeChild             `json:"children"`
}

// TreeChild is an outgoing link of a tree node together with its expanded target
type TreeChild struct {
	EdgeType string    `json:"edge_type"`
	Node     *TreeNode `json:"node"`
}

// NewTreeNode creates a childless tree node for the mechanic
func NewTreeNode(m *entities.Mechanic) *TreeNode {
	return &TreeNode{
		ID:          m.ID(),
		Name:        m.Name(),
		Description: m.Description(),
		Year:        m.Year(),
		Children:    []TreeChild{},
	}
}

// NewCycleMarker creates the terminal node emitted when a path revisits an ancestor
func NewCycleMarker(m *entities.Mechanic) *TreeNode {
	return &TreeNode{
		ID:       m.ID(),
		Name:     m.Name(),
		Cycle:    true,
		Children: []TreeChild{},
	}
}

// AddChild attaches an expanded target under the given link type
func (n *TreeNode) AddChild(edgeType string, child *TreeNode) {
	n.Children = append(n.Children, TreeChild{EdgeType: edgeType, Node: child})
}

// Size counts the nodes in the tree, cycle markers included
func (n *TreeNode) Size() int {
	if n == nil {
		return 0
	}
	total := 1
	for _, c := range n.Children {
		total += c.Node.Size()
	}
	return total
}

// Depth returns the number of levels below and including n
func (n *TreeNode) Depth() int {
	if n == nil {
		return 0
	}
	deepest := 0
	for _, c := range n.Children {
		if d := c.Node.Depth(); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}

// Walk visits every node depth-first in child order
func (n *TreeNode) Walk(visit func(node *TreeNode, depth int)) {
	n.walk(visit, 0)
}

func (n *TreeNode) walk(visit func(node *TreeNode, depth int), depth int) {
	if n == nil {
		return
	}
	visit(n, depth)
	for _, c := range n.Children {
		c.Node.walk(visit, depth+1)
	}
}
