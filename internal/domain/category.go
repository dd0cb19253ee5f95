package domain

import (
	"errors"
	"sort"
	"time"
)

var (
	ErrSelfReference = errors.New("a category cannot be linked to itself")
	ErrCategoryCycle = errors.New("link would make a category its own ancestor")
)

// Category represents a node of the category hierarchy. ParentID is nil
// for roots.
type Category struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	ParentID    *int64    `json:"parent_id" db:"parent_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// CategorySummary is the short form embedded in item listings.
type CategorySummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CategoryNode is the tree read model: a category with its nested children.
type CategoryNode struct {
	Category
	Children []*CategoryNode `json:"children"`
}

// CategoryTree is an arena over a flat set of categories. Parent and child
// relations are id references into the arena, never owning pointers.
type CategoryTree struct {
	nodes    map[int64]*Category
	children map[int64][]int64
}

// NewCategoryTree indexes categories by id and by parent. Parent ids that
// do not resolve inside the set are treated as roots.
func NewCategoryTree(categories []*Category) *CategoryTree {
	t := &CategoryTree{
		nodes:    make(map[int64]*Category, len(categories)),
		children: make(map[int64][]int64),
	}
	for _, c := range categories {
		t.nodes[c.ID] = c
	}
	for _, c := range categories {
		if c.ParentID != nil {
			if _, ok := t.nodes[*c.ParentID]; ok {
				t.children[*c.ParentID] = append(t.children[*c.ParentID], c.ID)
			}
		}
	}
	for id := range t.children {
		ids := t.children[id]
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	return t
}

// Get returns the category with the given id.
func (t *CategoryTree) Get(id int64) (*Category, bool) {
	c, ok := t.nodes[id]
	return c, ok
}

// HasAncestor reports whether ancestorID appears on the parent chain of id.
// The walk stops on a revisited node so corrupt data cannot loop it.
func (t *CategoryTree) HasAncestor(id, ancestorID int64) bool {
	node, ok := t.nodes[id]
	if !ok {
		return false
	}
	seen := map[int64]bool{id: true}
	for node.ParentID != nil {
		parentID := *node.ParentID
		if parentID == ancestorID {
			return true
		}
		if seen[parentID] {
			return false
		}
		seen[parentID] = true
		if node, ok = t.nodes[parentID]; !ok {
			return false
		}
	}
	return false
}

// CanLink checks that childID may be placed under parentID: the two must
// differ and the child must not already be an ancestor of the parent.
func (t *CategoryTree) CanLink(parentID, childID int64) error {
	if parentID == childID {
		return ErrSelfReference
	}
	if t.HasAncestor(parentID, childID) {
		return ErrCategoryCycle
	}
	return nil
}

// Link moves childID under parentID after CanLink succeeds. The arena
// node is updated in place.
func (t *CategoryTree) Link(parentID, childID int64) error {
	if err := t.CanLink(parentID, childID); err != nil {
		return err
	}
	child, ok := t.nodes[childID]
	if !ok {
		return nil
	}
	if child.ParentID != nil {
		t.children[*child.ParentID] = removeID(t.children[*child.ParentID], childID)
	}
	pid := parentID
	child.ParentID = &pid
	t.children[parentID] = append(t.children[parentID], childID)
	return nil
}

// Forest returns every root with its nested children, ordered by id.
func (t *CategoryTree) Forest() []*CategoryNode {
	var rootIDs []int64
	for id, c := range t.nodes {
		if c.ParentID == nil {
			rootIDs = append(rootIDs, id)
			continue
		}
		if _, ok := t.nodes[*c.ParentID]; !ok {
			rootIDs = append(rootIDs, id)
		}
	}
	sort.Slice(rootIDs, func(i, j int) bool { return rootIDs[i] < rootIDs[j] })

	forest := make([]*CategoryNode, 0, len(rootIDs))
	seen := make(map[int64]bool, len(t.nodes))
	for _, id := range rootIDs {
		forest = append(forest, t.build(id, seen))
	}
	return forest
}

func (t *CategoryTree) build(id int64, seen map[int64]bool) *CategoryNode {
	seen[id] = true
	node := &CategoryNode{Category: *t.nodes[id], Children: []*CategoryNode{}}
	for _, child := range t.children[id] {
		if !seen[child] {
			node.Children = append(node.Children, t.build(child, seen))
		}
	}
	return node
}

func removeID(ids []int64, id int64) []int64 {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
