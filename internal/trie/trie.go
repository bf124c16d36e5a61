package trie

import (
	"slices"
	"strings"
)

// Arena is a path-segment trie whose nodes live in a single slice and
// refer to each other by index. Index 0 is the root.
type Arena struct {
	nodes []arenaNode
	size  int
}

// NodeIndex represents the index of a trie node.
type NodeIndex int

type arenaNode struct {
	// children maps a path segment to the index of the child node.
	children map[string]NodeIndex
	// isEnd indicates whether an inserted sequence ends at this node.
	isEnd bool
}

// NewArena creates an empty trie.
func NewArena() *Arena {
	arena := &Arena{
		nodes: make([]arenaNode, 0, 64),
	}
	arena.newNode()
	return arena
}

func (a *Arena) newNode() NodeIndex {
	idx := NodeIndex(len(a.nodes))
	a.nodes = append(a.nodes, arenaNode{
		children: make(map[string]NodeIndex),
	})
	return idx
}

// Insert inserts a sequence of path segments into the trie.
func (a *Arena) Insert(sequence []string) {
	current := NodeIndex(0)
	for _, part := range sequence {
		childIdx, exists := a.nodes[current].children[part]
		if !exists {
			childIdx = a.newNode()
			a.nodes[current].children[part] = childIdx
		}
		current = childIdx
	}
	if !a.nodes[current].isEnd {
		a.nodes[current].isEnd = true
		a.size++
	}
}

// HasPrefix reports whether some inserted sequence is a prefix of
// sequence, the sequence itself included.
func (a *Arena) HasPrefix(sequence []string) bool {
	current := NodeIndex(0)
	if a.nodes[current].isEnd {
		return true
	}
	for _, part := range sequence {
		childIdx, exists := a.nodes[current].children[part]
		if !exists {
			return false
		}
		if a.nodes[childIdx].isEnd {
			return true
		}
		current = childIdx
	}
	return false
}

// Len returns the number of distinct inserted sequences.
func (a *Arena) Len() int {
	return a.size
}

// Paths returns every inserted sequence joined with sep, sorted.
func (a *Arena) Paths(sep string) []string {
	var paths []string
	var walk func(idx NodeIndex, prefix []string)
	walk = func(idx NodeIndex, prefix []string) {
		node := a.nodes[idx]
		if node.isEnd {
			paths = append(paths, strings.Join(prefix, sep))
		}
		for part, child := range node.children {
			walk(child, append(slices.Clip(prefix), part))
		}
	}
	walk(0, nil)
	slices.Sort(paths)
	return paths
}
