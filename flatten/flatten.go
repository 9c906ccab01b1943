// Package flatten converts a JSON tree into an ordered path → leaf mapping
// and reconstructs a tree of identical shape from such a mapping.
//
// Leaves are strings, numbers, booleans, nulls, and empty objects or arrays
// (a composite without children has nothing below it to address, so it is
// recorded as a leaf to keep the shape). Only string leaves are candidates
// for translation; every other leaf passes through Rebuild unchanged.
package flatten

import (
	"errors"
	"fmt"

	"github.com/minios-linux/jsonlate/jsonvalue"
	"github.com/minios-linux/jsonlate/keypath"
)

// ---------------------------------------------------------------------------
// Leaves
// ---------------------------------------------------------------------------

// Entry is a single leaf and its position.
type Entry struct {
	Path  keypath.Path
	Value jsonvalue.Value
}

// Leaves is the flattened form of a document, in traversal order.
type Leaves struct {
	entries []Entry
	index   map[keypath.Path]int
}

// Flatten walks root depth-first (object members in order, array elements
// by index) and records every leaf.
func Flatten(root jsonvalue.Value) *Leaves {
	l := &Leaves{index: make(map[keypath.Path]int)}
	collect(root, keypath.Root, l)
	return l
}

func collect(v jsonvalue.Value, path keypath.Path, l *Leaves) {
	switch v.Kind() {
	case jsonvalue.Object:
		if v.Len() == 0 {
			l.add(path, v)
			return
		}
		for _, m := range v.Members() {
			collect(m.Value, keypath.Append(path, keypath.Key(m.Key)), l)
		}
	case jsonvalue.Array:
		if v.Len() == 0 {
			l.add(path, v)
			return
		}
		for i, item := range v.Items() {
			collect(item, keypath.Append(path, keypath.Index(i)), l)
		}
	case jsonvalue.String, jsonvalue.Number, jsonvalue.Bool, jsonvalue.Null:
		l.add(path, v)
	}
}

func (l *Leaves) add(path keypath.Path, v jsonvalue.Value) {
	if idx, ok := l.index[path]; ok {
		l.entries[idx].Value = v
		return
	}
	l.index[path] = len(l.entries)
	l.entries = append(l.entries, Entry{Path: path, Value: v})
}

// Len returns the number of leaves.
func (l *Leaves) Len() int { return len(l.entries) }

// Entries returns all leaves in traversal order. The slice must not be modified.
func (l *Leaves) Entries() []Entry { return l.entries }

// Paths returns all leaf paths in traversal order.
func (l *Leaves) Paths() []keypath.Path {
	paths := make([]keypath.Path, len(l.entries))
	for i, e := range l.entries {
		paths[i] = e.Path
	}
	return paths
}

// Get returns the leaf at path.
func (l *Leaves) Get(path keypath.Path) (jsonvalue.Value, bool) {
	idx, ok := l.index[path]
	if !ok {
		return jsonvalue.Value{}, false
	}
	return l.entries[idx].Value, true
}

// Strings returns the string leaves (the translation candidates) in order.
func (l *Leaves) Strings() []Entry {
	var out []Entry
	for _, e := range l.entries {
		if e.Value.Kind() == jsonvalue.String {
			out = append(out, e)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Rebuild
// ---------------------------------------------------------------------------

// ErrHole is returned when an array index has no leaf at or below it.
var ErrHole = errors.New("array element missing")

// ErrConflict is returned when two paths disagree about a node's kind.
var ErrConflict = errors.New("conflicting paths")

// node is the mutable tree Rebuild assembles before freezing it into a Value.
type node struct {
	kind    jsonvalue.Kind
	leaf    *jsonvalue.Value
	keys    []string
	members map[string]*node
	items   []*node
}

// Rebuild reconstructs a tree from leaves, substituting translations[path]
// for string leaves that have one.
func Rebuild(leaves *Leaves, translations map[keypath.Path]string) (jsonvalue.Value, error) {
	var root *node

	for _, e := range leaves.entries {
		val := e.Value
		if tr, ok := translations[e.Path]; ok && val.Kind() == jsonvalue.String {
			val = jsonvalue.NewString(tr)
		}

		steps, err := keypath.Split(e.Path)
		if err != nil {
			return jsonvalue.Value{}, fmt.Errorf("rebuilding %q: %w", e.Path, err)
		}

		root, err = insert(root, steps, val)
		if err != nil {
			return jsonvalue.Value{}, fmt.Errorf("rebuilding %q: %w", e.Path, err)
		}
	}

	if root == nil {
		// No leaves at all: the empty document is null.
		return jsonvalue.NewNull(), nil
	}
	return root.freeze()
}

func insert(n *node, steps []keypath.Step, val jsonvalue.Value) (*node, error) {
	if len(steps) == 0 {
		if n != nil {
			return nil, fmt.Errorf("%w: leaf collides with an existing node", ErrConflict)
		}
		v := val
		return &node{kind: val.Kind(), leaf: &v}, nil
	}

	step := steps[0]
	switch step.Kind {
	case keypath.KeyStep:
		if n == nil {
			n = &node{kind: jsonvalue.Object, members: make(map[string]*node)}
		}
		if n.kind != jsonvalue.Object || n.leaf != nil {
			return nil, fmt.Errorf("%w: key %q under a %v", ErrConflict, step.Key, n.kind)
		}
		child, seen := n.members[step.Key]
		child, err := insert(child, steps[1:], val)
		if err != nil {
			return nil, err
		}
		if !seen {
			n.keys = append(n.keys, step.Key)
		}
		n.members[step.Key] = child

	case keypath.IndexStep:
		if n == nil {
			n = &node{kind: jsonvalue.Array}
		}
		if n.kind != jsonvalue.Array || n.leaf != nil {
			return nil, fmt.Errorf("%w: index %d under a %v", ErrConflict, step.Index, n.kind)
		}
		for len(n.items) <= step.Index {
			n.items = append(n.items, nil)
		}
		child, err := insert(n.items[step.Index], steps[1:], val)
		if err != nil {
			return nil, err
		}
		n.items[step.Index] = child
	}
	return n, nil
}

func (n *node) freeze() (jsonvalue.Value, error) {
	if n.leaf != nil {
		return *n.leaf, nil
	}

	switch n.kind {
	case jsonvalue.Object:
		members := make([]jsonvalue.Member, 0, len(n.keys))
		for _, k := range n.keys {
			v, err := n.members[k].freeze()
			if err != nil {
				return jsonvalue.Value{}, err
			}
			members = append(members, jsonvalue.Member{Key: k, Value: v})
		}
		return jsonvalue.NewObject(members...), nil

	case jsonvalue.Array:
		items := make([]jsonvalue.Value, len(n.items))
		for i, child := range n.items {
			if child == nil {
				return jsonvalue.Value{}, fmt.Errorf("%w at index %d", ErrHole, i)
			}
			v, err := child.freeze()
			if err != nil {
				return jsonvalue.Value{}, err
			}
			items[i] = v
		}
		return jsonvalue.NewArray(items...), nil
	}

	return jsonvalue.Value{}, fmt.Errorf("unexpected %v node without value", n.kind)
}
