package autograd

import (
	"fmt"

	"github.com/EricLina/sentcnn/core"
	"github.com/EricLina/sentcnn/tensor"
)

// Backward runs reverse-mode differentiation from a scalar out.
// It seeds d(out)/d(out) = 1, orders the graph reachable through Parents
// topologically and calls each node's Backward after all of its consumers.
func Backward(out *tensor.Tensor) error {
	if out.NumElements() != 1 {
		return fmt.Errorf("backward: output must be a scalar, got shape %v: %w", out.Shape, core.ErrShape)
	}
	if !out.RequiresGrad {
		return nil
	}
	if err := ZeroGrad(out); err != nil {
		return err
	}
	out.Grad.Float32()[0] = 1

	order := topoSort(out)
	for i := len(order) - 1; i >= 0; i-- {
		if t := order[i]; t.Backward != nil {
			t.Backward()
		}
	}
	return nil
}

// topoSort returns the nodes reachable from out with every node placed after its parents.
func topoSort(out *tensor.Tensor) []*tensor.Tensor {
	var order []*tensor.Tensor
	seen := make(map[*tensor.Tensor]bool)
	type frame struct {
		t    *tensor.Tensor
		next int
	}
	stack := []frame{{t: out}}
	seen[out] = true
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(top.t.Parents) {
			p := top.t.Parents[top.next]
			top.next++
			if p != nil && p.RequiresGrad && !seen[p] {
				seen[p] = true
				stack = append(stack, frame{t: p})
			}
			continue
		}
		order = append(order, top.t)
		stack = stack[:len(stack)-1]
	}
	return order
}
