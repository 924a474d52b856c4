package jibe

import (
	"context"
	"fmt"
)

// maxTreeDepth guards against a backend that reports a cycle.
const maxTreeDepth = 64

// Node is one mandate in a flattened run tree.
type Node struct {
	MandateStatus
	Depth    int
	ParentID string
}

// IsLeaf reports whether the mandate owns a log.
func (n Node) IsLeaf() bool { return !n.Composite }

// LoadTree walks the mandate tree of runID depth-first from the root and
// returns it flattened in display order. The root itself is not included.
func LoadTree(ctx context.Context, f Fetcher, runID string) ([]Node, error) {
	var nodes []Node
	if err := walk(ctx, f, runID, RootMandateID, 0, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

func walk(ctx context.Context, f Fetcher, runID, parentID string, depth int, out *[]Node) error {
	if depth >= maxTreeDepth {
		return fmt.Errorf("mandate tree deeper than %d below %s", maxTreeDepth, parentID)
	}
	children, err := f.FetchChildren(ctx, runID, parentID)
	if err != nil {
		return fmt.Errorf("children of %s: %w", parentID, err)
	}
	for _, child := range children {
		*out = append(*out, Node{MandateStatus: child, Depth: depth, ParentID: parentID})
		if child.Composite {
			if err := walk(ctx, f, runID, child.ID, depth+1, out); err != nil {
				return err
			}
		}
	}
	return nil
}

// Leaves returns the nodes that own logs, in order.
func Leaves(nodes []Node) []Node {
	var leaves []Node
	for _, n := range nodes {
		if n.IsLeaf() {
			leaves = append(leaves, n)
		}
	}
	return leaves
}
