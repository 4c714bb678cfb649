package pipeline

import (
	"fmt"
	"strings"
)

// Input is one received upload.
type Input struct {
	// DeclaredName is the client's file name. It is used for ordering only
	// and never as a path.
	DeclaredName string
	// StoredPath is the server-assigned location inside the workspace.
	StoredPath string
	Size       int64
	MediaType  string
}

// Submission is everything a request supplied: inputs in arrival order plus
// the optional client order of declared names.
type Submission struct {
	Inputs []Input
	Order  []string
}

// MinInputs is the fewest inputs a merge accepts.
const MinInputs = 2

// ResolveOrder maps sub.Order onto sub.Inputs by exact declared name. An empty
// order keeps arrival order. Every name must match a received input, each at
// most once, and every input must be covered.
//
// Inputs sharing a declared name cannot be told apart: the later upload
// shadows the earlier one during lookup.
func ResolveOrder(sub Submission) ([]Input, error) {
	if len(sub.Order) == 0 {
		return requireMinimum(sub.Inputs)
	}

	if len(sub.Order) != len(sub.Inputs) {
		return nil, Validation(
			fmt.Sprintf("Order lists %d names but %d videos were uploaded", len(sub.Order), len(sub.Inputs)),
			"List every uploaded file exactly once in the order field",
		)
	}

	byName := make(map[string]int, len(sub.Inputs))
	for i, in := range sub.Inputs {
		byName[in.DeclaredName] = i
	}

	used := make(map[int]bool, len(sub.Order))
	resolved := make([]Input, 0, len(sub.Order))
	var unknown []string

	for _, name := range sub.Order {
		i, ok := byName[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		if used[i] {
			return nil, Validation(
				fmt.Sprintf("Order lists %q more than once", name),
				"Uploaded files must have distinct names when an order is given",
			)
		}
		used[i] = true
		resolved = append(resolved, sub.Inputs[i])
	}

	if len(unknown) > 0 {
		return nil, Validation(
			fmt.Sprintf("Order names files that were not uploaded: %s", strings.Join(unknown, ", ")),
			"Order entries must match uploaded file names exactly",
		)
	}

	return requireMinimum(resolved)
}

func requireMinimum(inputs []Input) ([]Input, error) {
	if len(inputs) < MinInputs {
		return nil, Validation(
			fmt.Sprintf("At least %d videos are required, got %d", MinInputs, len(inputs)),
		)
	}
	return inputs, nil
}
