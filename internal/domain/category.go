package domain

import "strings"

// CategoryNode is one placement of a category within a category tree.
type CategoryNode struct {
	ID           int64  `json:"id_category_node"`
	CategoryID   int64  `json:"fk_category"`
	ParentNodeID *int64 `json:"fk_parent_category_node,omitempty"`
	IsRoot       bool   `json:"is_root"`
	IsActive     bool   `json:"is_active"`
}

// CategoryMembership links a product abstract to a category.
// Lower ProductOrder means higher priority.
type CategoryMembership struct {
	AbstractProductID int64 `json:"fk_product_abstract"`
	CategoryID        int64 `json:"fk_category"`
	ProductOrder      int   `json:"product_order"`
}

// PathEntry is a single breadcrumb element of a category path
type PathEntry struct {
	NodeID int64  `json:"node_id"`
	Name   string `json:"name"`
}

// CategoryPath is the ordered root→node path of a node plus the node's own URL.
type CategoryPath struct {
	Entries []PathEntry `json:"entries"`
	URL     *string     `json:"url"`
}

// Terminal returns the node the path was resolved for.
func (p CategoryPath) Terminal() (PathEntry, bool) {
	if len(p.Entries) == 0 {
		return PathEntry{}, false
	}
	return p.Entries[len(p.Entries)-1], true
}

// DisplayPath renders the path as "/Root/Child/Leaf".
func (p CategoryPath) DisplayPath() string {
	names := make([]string, 0, len(p.Entries))
	for _, e := range p.Entries {
		names = append(names, e.Name)
	}
	return "/" + strings.Join(names, "/")
}

// CategoryEntry is the per-node value of a document's category map.
// URL is null when the node has no URL assigned.
type CategoryEntry struct {
	NodeID int64   `json:"node_id"`
	Name   string  `json:"name"`
	URL    *string `json:"url"`
}

// CategoryMap is keyed by category node id.
type CategoryMap map[int64]CategoryEntry
