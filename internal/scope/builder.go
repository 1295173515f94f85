package scope

import (
	"fmt"
	"maps"

	"github.com/jward/mlens/internal/ast"
	"github.com/jward/mlens/internal/errs"
	"github.com/jward/mlens/internal/nodeidmap"
	"github.com/jward/mlens/internal/settings"
)

// ForTree computes the scope of every node on ancestry (nearest node first,
// root last). cache may be nil; it is read but never written. The result
// holds only entries that were created or copied by this pass. When the
// cache already holds ancestry[0], the pass is skipped and the result holds
// a copy of that entry alone.
func ForTree(s settings.Settings, c nodeidmap.Collection, ancestry []ast.Node, cache ByID) (delta ByID, err error) {
	defer errs.Recover(s, &err)
	return forTree(s, c, ancestry, cache)
}

// ForNode returns the scope visible at nodeID. The pass's delta is
// discarded; callers that want to keep it should use ForTree.
func ForNode(s settings.Settings, c nodeidmap.Collection, nodeID int, cache ByID) (items ItemByKey, err error) {
	defer errs.Recover(s, &err)

	ancestry, err := nodeidmap.ExpectAncestry(c, nodeID)
	if err != nil {
		return nil, err
	}
	delta, err := forTree(s, c, ancestry, cache)
	if err != nil {
		return nil, err
	}
	items, ok := delta[nodeID]
	if !ok {
		return nil, errs.Invariant("expected nodeId in scope result", map[string]any{"nodeId": nodeID})
	}
	return items, nil
}

func forTree(s settings.Settings, c nodeidmap.Collection, ancestry []ast.Node, cache ByID) (ByID, error) {
	if len(ancestry) == 0 {
		return ByID{}, nil
	}
	rootID := ancestry[0].ID()
	if cached, ok := cache[rootID]; ok {
		s.Log().Debug("scope cache hit", "nodeId", rootID)
		return ByID{rootID: maps.Clone(cached)}, nil
	}

	st := &state{
		c:     c,
		given: cache,
		delta: make(ByID),
	}
	for i := len(ancestry) - 1; i >= 0; i-- {
		n := ancestry[i]
		if err := st.inspect(n); err != nil {
			return nil, fmt.Errorf("scope for %s %d: %w", n.Kind(), n.ID(), err)
		}
	}
	s.Log().Debug("scope computed", "nodeId", rootID, "entries", len(st.delta))
	return st.delta, nil
}

type state struct {
	c     nodeidmap.Collection
	given ByID
	delta ByID
}

func (st *state) inspect(n ast.Node) error {
	switch n.Kind() {
	case ast.KindEachExpression:
		return st.inspectEach(n)
	case ast.KindFunctionExpression:
		return st.inspectFunction(n)
	case ast.KindLetExpression:
		return st.inspectLet(n)
	case ast.KindRecordExpression, ast.KindRecordLiteral:
		return st.inspectRecord(n)
	case ast.KindSection:
		return st.inspectSection(n)
	default:
		_, err := st.getOrCreate(n.ID(), nil)
		return err
	}
}

func (st *state) inspectEach(each ast.Node) error {
	parentScope, err := st.getOrCreate(each.ID(), nil)
	if err != nil {
		return err
	}
	entries := []entry{{"_", &EachItem{ID: each.ID(), EachExpression: each}}}
	return st.expandChild(each, 1, entries, parentScope)
}

func (st *state) inspectFunction(fn ast.Node) error {
	parentScope, err := st.getOrCreate(fn.ID(), nil)
	if err != nil {
		return err
	}
	params, err := nodeidmap.FunctionParameters(st.c, fn)
	if err != nil {
		return err
	}
	entries := make([]entry, 0, len(params))
	for _, p := range params {
		entries = append(entries, entry{p.Name.Literal, &ParameterItem{
			ID:         p.Node.ID(),
			Name:       p.Name,
			IsOptional: p.IsOptional,
			IsNullable: p.IsNullable,
			Type:       p.Type,
		}})
	}
	return st.expandChild(fn, 3, entries, parentScope)
}

func (st *state) inspectLet(let ast.Node) error {
	parentScope, err := st.getOrCreate(let.ID(), nil)
	if err != nil {
		return err
	}
	pairs, err := nodeidmap.LetKeyValuePairs(st.c, let)
	if err != nil {
		return err
	}
	if err := st.expandPairs(pairs, parentScope, keyValuePairItem); err != nil {
		return err
	}
	return st.expandChild(let, 3, itemsFromPairs(pairs, -1, keyValuePairItem), parentScope)
}

func (st *state) inspectRecord(record ast.Node) error {
	parentScope, err := st.getOrCreate(record.ID(), nil)
	if err != nil {
		return err
	}
	pairs, err := nodeidmap.RecordKeyValuePairs(st.c, record)
	if err != nil {
		return err
	}
	return st.expandPairs(pairs, parentScope, keyValuePairItem)
}

// Section members see each other but nothing from outside the section.
func (st *state) inspectSection(section ast.Node) error {
	if _, err := st.getOrCreate(section.ID(), nil); err != nil {
		return err
	}
	pairs, err := nodeidmap.SectionMemberKeyValuePairs(st.c, section)
	if err != nil {
		return err
	}
	return st.expandPairs(pairs, ItemByKey{}, sectionMemberItem)
}

// expandPairs gives every pair's value the full set of bindings, each value
// seeing its own key as recursive.
func (st *state) expandPairs(pairs []nodeidmap.KeyValuePair, defaultScope ItemByKey, factory itemFactory) error {
	for _, p := range pairs {
		if p.Value == nil {
			continue
		}
		entries := itemsFromPairs(pairs, p.Key.ID(), factory)
		if len(entries) == 0 {
			continue
		}
		if err := st.expand(p.Value.ID(), entries, defaultScope); err != nil {
			return err
		}
	}
	return nil
}

func (st *state) expandChild(parent ast.Node, attr int, entries []entry, defaultScope ItemByKey) error {
	child, err := nodeidmap.XorChildByAttributeIndex(st.c, parent.ID(), attr)
	if err != nil || child == nil {
		return err
	}
	return st.expand(child.ID(), entries, defaultScope)
}

// expand adds entries to the node's scope, shadowing outer bindings of the
// same name.
func (st *state) expand(nodeID int, entries []entry, defaultScope ItemByKey) error {
	items, err := st.getOrCreate(nodeID, defaultScope)
	if err != nil {
		return err
	}
	for _, e := range entries {
		items[e.key] = e.item
	}
	return nil
}

// getOrCreate returns the node's entry in the delta, creating it from the
// first available source: the cache, defaultScope, the parent's delta
// entry, the parent's cache entry, or nothing. Every source is copied.
func (st *state) getOrCreate(nodeID int, defaultScope ItemByKey) (ItemByKey, error) {
	if items, ok := st.delta[nodeID]; ok {
		return items, nil
	}
	if items, ok := st.given[nodeID]; ok {
		return st.set(nodeID, items), nil
	}
	if defaultScope != nil {
		return st.set(nodeID, defaultScope), nil
	}

	parentID, ok := st.c.ParentID(nodeID)
	if ok {
		if items, ok := st.delta[parentID]; ok {
			return st.set(nodeID, items), nil
		}
		if items, ok := st.given[parentID]; ok {
			return st.set(nodeID, items), nil
		}
	} else if _, known := st.c.Node(nodeID); !known {
		return nil, errs.Invariant("node not found", map[string]any{"nodeId": nodeID})
	}
	return st.set(nodeID, ItemByKey{}), nil
}

func (st *state) set(nodeID int, from ItemByKey) ItemByKey {
	items := maps.Clone(from)
	if items == nil {
		items = ItemByKey{}
	}
	st.delta[nodeID] = items
	return items
}

type entry struct {
	key  string
	item Item
}

type itemFactory func(p nodeidmap.KeyValuePair, recursive bool) Item

func keyValuePairItem(p nodeidmap.KeyValuePair, recursive bool) Item {
	return &KeyValuePairItem{ID: p.Source.ID(), IsRecursive: recursive, Key: p.Key, Value: p.Value}
}

func sectionMemberItem(p nodeidmap.KeyValuePair, recursive bool) Item {
	return &SectionMemberItem{ID: p.Source.ID(), IsRecursive: recursive, Key: p.Key, Value: p.Value}
}

// itemsFromPairs builds an entry for every pair with a value. The pair
// whose key has ancestorKeyID is marked recursive.
func itemsFromPairs(pairs []nodeidmap.KeyValuePair, ancestorKeyID int, factory itemFactory) []entry {
	entries := make([]entry, 0, len(pairs))
	for _, p := range pairs {
		if p.Value == nil {
			continue
		}
		entries = append(entries, entry{p.KeyLiteral(), factory(p, p.Key.ID() == ancestorKeyID)})
	}
	return entries
}
