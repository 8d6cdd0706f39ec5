// Package thread derives conversation structure from parent links between
// documents. The graph is rebuilt from the active set on every read.
package thread

import (
	"errors"

	"doc-tracker/internal/domain"
)

var (
	ErrNotFound        = errors.New("document not found")
	ErrCyclicReference = errors.New("cyclic parent reference")
)

// Node is one entry of a thread, Depth 0 being the starting document.
type Node struct {
	Document domain.Document `json:"document"`
	Depth    int             `json:"depth"`
}

// Graph groups documents by parent. Children keep the input order.
type Graph struct {
	docs     []domain.Document
	index    map[string]int
	children map[string][]int
}

func NewGraph(docs []domain.Document) *Graph {
	g := &Graph{
		docs:     docs,
		index:    make(map[string]int, len(docs)),
		children: make(map[string][]int),
	}
	for i, d := range docs {
		if _, dup := g.index[d.ID]; !dup {
			g.index[d.ID] = i
		}
		if d.ParentID != "" {
			g.children[d.ParentID] = append(g.children[d.ParentID], i)
		}
	}
	return g
}

func (g *Graph) Get(id string) (domain.Document, bool) {
	i, ok := g.index[id]
	if !ok {
		return domain.Document{}, false
	}
	return g.docs[i], true
}

// Children returns the direct replies to id in insertion order.
func (g *Graph) Children(id string) []domain.Document {
	idx := g.children[id]
	out := make([]domain.Document, 0, len(idx))
	for _, i := range idx {
		out = append(out, g.docs[i])
	}
	return out
}

// Build returns the thread below startID in pre-order.
func (g *Graph) Build(startID string) ([]Node, error) {
	start, ok := g.index[startID]
	if !ok {
		return nil, ErrNotFound
	}

	var nodes []Node
	visited := make(map[int]bool)

	var walk func(i, depth int) error
	walk = func(i, depth int) error {
		if visited[i] {
			return ErrCyclicReference
		}
		visited[i] = true
		nodes = append(nodes, Node{Document: g.docs[i], Depth: depth})

		for _, c := range g.children[g.docs[i].ID] {
			if err := walk(c, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(start, 0); err != nil {
		return nil, err
	}
	return nodes, nil
}

// Root follows parent links up from id. A parent that is no longer active
// ends the walk, so the oldest surviving ancestor is returned.
func (g *Graph) Root(id string) (domain.Document, error) {
	i, ok := g.index[id]
	if !ok {
		return domain.Document{}, ErrNotFound
	}

	seen := map[int]bool{i: true}
	for g.docs[i].ParentID != "" {
		p, ok := g.index[g.docs[i].ParentID]
		if !ok {
			break
		}
		if seen[p] {
			return domain.Document{}, ErrCyclicReference
		}
		seen[p] = true
		i = p
	}
	return g.docs[i], nil
}

// Conversation returns the whole thread that id belongs to.
func (g *Graph) Conversation(id string) ([]Node, error) {
	root, err := g.Root(id)
	if err != nil {
		return nil, err
	}
	return g.Build(root.ID)
}

// Build is a shorthand for NewGraph(docs).Build(startID).
func Build(docs []domain.Document, startID string) ([]Node, error) {
	return NewGraph(docs).Build(startID)
}
