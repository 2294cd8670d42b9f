// Package item holds the inventory item tree model shared by the catalogs,
// profile and trade packages. It sits at the bottom of the import graph so
// every engine can exchange item trees without depending on each other.
package item

import "github.com/google/uuid"

// Item is one node of an item tree. Children reference their parent by id;
// a root item has no parent (or a parent outside the tree, e.g. a stash id).
type Item struct {
	ID       string `json:"id"`
	Tpl      string `json:"tpl"`
	ParentID string `json:"parent_id,omitempty"`
	SlotID   string `json:"slot_id,omitempty"`
	Upd      *Upd   `json:"upd,omitempty"`
}

// Upd carries the mutable per-instance state of an item.
type Upd struct {
	StackObjectsCount int       `json:"stack_objects_count,omitempty"`
	Resource          *Resource `json:"resource,omitempty"`
	SpawnedInSession  bool      `json:"spawned_in_session,omitempty"`
	BuyRestrictionMax int       `json:"buy_restriction_max,omitempty"`
}

// Resource tracks a consumable's remaining capacity. Value nil means a fresh
// item whose capacity has to be looked up from its template.
type Resource struct {
	Value         *float64 `json:"value,omitempty"`
	UnitsConsumed float64  `json:"units_consumed,omitempty"`
}

func NewID() string { return uuid.NewString() }

// EnsureUpd guarantees i.Upd is non-nil and returns it.
func (i *Item) EnsureUpd() *Upd {
	if i.Upd == nil {
		i.Upd = &Upd{}
	}
	return i.Upd
}

// StackCount returns the stack size, treating a missing Upd as a single item.
func (i *Item) StackCount() int {
	if i.Upd == nil || i.Upd.StackObjectsCount == 0 {
		return 1
	}
	return i.Upd.StackObjectsCount
}

// FindAndReturnChildren returns the item with the given id plus all of its
// descendants, root first. Returns nil when the root is absent.
func FindAndReturnChildren(items []Item, rootID string) []Item {
	var root *Item
	for idx := range items {
		if items[idx].ID == rootID {
			root = &items[idx]
			break
		}
	}
	if root == nil {
		return nil
	}

	out := []Item{*root}
	frontier := []string{rootID}
	for len(frontier) > 0 {
		parent := frontier[0]
		frontier = frontier[1:]
		for idx := range items {
			if items[idx].ParentID == parent {
				out = append(out, items[idx])
				frontier = append(frontier, items[idx].ID)
			}
		}
	}
	return out
}

// Clone deep-copies an item tree slice.
func Clone(items []Item) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = it
		if it.Upd != nil {
			upd := *it.Upd
			if it.Upd.Resource != nil {
				res := *it.Upd.Resource
				if it.Upd.Resource.Value != nil {
					v := *it.Upd.Resource.Value
					res.Value = &v
				}
				upd.Resource = &res
			}
			out[i].Upd = &upd
		}
	}
	return out
}

// RemapIDs assigns fresh ids to every item in the tree, rewriting child
// parent references so the relations survive. Parent references that point
// outside the tree (stash, equipment roots) are left alone. Returns the new
// root id (the first item's id).
func RemapIDs(items []Item) string {
	if len(items) == 0 {
		return ""
	}
	mapping := make(map[string]string, len(items))
	for idx := range items {
		mapping[items[idx].ID] = NewID()
	}
	for idx := range items {
		items[idx].ID = mapping[items[idx].ID]
		if newParent, ok := mapping[items[idx].ParentID]; ok {
			items[idx].ParentID = newParent
		}
	}
	return items[0].ID
}

// RemoveWithChildren deletes the item with the given id and all descendants,
// returning the remaining items and whether the root was found.
func RemoveWithChildren(items []Item, rootID string) ([]Item, bool) {
	doomed := FindAndReturnChildren(items, rootID)
	if doomed == nil {
		return items, false
	}
	drop := make(map[string]struct{}, len(doomed))
	for _, d := range doomed {
		drop[d.ID] = struct{}{}
	}
	out := items[:0]
	for _, it := range items {
		if _, gone := drop[it.ID]; !gone {
			out = append(out, it)
		}
	}
	return out, true
}
