package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inputsNamed(names ...string) []Input {
	inputs := make([]Input, len(names))
	for i, n := range names {
		inputs[i] = Input{DeclaredName: n, StoredPath: "/ws/upload_" + n}
	}
	return inputs
}

func declaredNames(inputs []Input) []string {
	names := make([]string, len(inputs))
	for i, in := range inputs {
		names[i] = in.DeclaredName
	}
	return names
}

func requireValidation(t *testing.T, err error) *Failure {
	t.Helper()
	var f *Failure
	require.ErrorAs(t, err, &f)
	require.Equal(t, KindValidation, f.Kind)
	return f
}

func TestResolveOrderFollowsClientOrder(t *testing.T) {
	resolved, err := ResolveOrder(Submission{
		Inputs: inputsNamed("a.mp4", "b.mp4"),
		Order:  []string{"b.mp4", "a.mp4"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"b.mp4", "a.mp4"}, declaredNames(resolved))
	assert.Equal(t, "/ws/upload_b.mp4", resolved[0].StoredPath)
}

func TestResolveOrderEmptyKeepsArrivalOrder(t *testing.T) {
	resolved, err := ResolveOrder(Submission{Inputs: inputsNamed("z.mov", "a.mp4", "m.webm")})
	require.NoError(t, err)
	assert.Equal(t, []string{"z.mov", "a.mp4", "m.webm"}, declaredNames(resolved))
}

func TestResolveOrderUnknownName(t *testing.T) {
	_, err := ResolveOrder(Submission{
		Inputs: inputsNamed("a.mp4", "b.mp4"),
		Order:  []string{"a.mp4", "c.mp4"},
	})

	f := requireValidation(t, err)
	assert.Contains(t, f.Message, "c.mp4")
	assert.NotEmpty(t, f.Hints)
}

func TestResolveOrderIsCaseSensitive(t *testing.T) {
	_, err := ResolveOrder(Submission{
		Inputs: inputsNamed("a.mp4", "b.mp4"),
		Order:  []string{"B.mp4", "a.mp4"},
	})
	requireValidation(t, err)
}

func TestResolveOrderCountMismatch(t *testing.T) {
	_, err := ResolveOrder(Submission{
		Inputs: inputsNamed("a.mp4", "b.mp4", "c.mp4"),
		Order:  []string{"a.mp4", "b.mp4"},
	})

	f := requireValidation(t, err)
	assert.Contains(t, f.Message, "2 names but 3 videos")
}

func TestResolveOrderRepeatedName(t *testing.T) {
	_, err := ResolveOrder(Submission{
		Inputs: inputsNamed("a.mp4", "b.mp4"),
		Order:  []string{"a.mp4", "a.mp4"},
	})

	f := requireValidation(t, err)
	assert.Contains(t, f.Message, "more than once")
}

func TestResolveOrderDuplicateDeclaredNames(t *testing.T) {
	inputs := []Input{
		{DeclaredName: "clip.mp4", StoredPath: "/ws/first"},
		{DeclaredName: "clip.mp4", StoredPath: "/ws/second"},
	}

	resolved, err := ResolveOrder(Submission{Inputs: inputs})
	require.NoError(t, err, "arrival order needs no lookup")
	assert.Equal(t, "/ws/first", resolved[0].StoredPath)

	_, err = ResolveOrder(Submission{Inputs: inputs, Order: []string{"clip.mp4", "clip.mp4"}})
	requireValidation(t, err)
}

func TestResolveOrderMinimumInputs(t *testing.T) {
	tests := []struct {
		name string
		sub  Submission
	}{
		{"no inputs", Submission{}},
		{"one input", Submission{Inputs: inputsNamed("a.mp4")}},
		{"one input with order", Submission{Inputs: inputsNamed("a.mp4"), Order: []string{"a.mp4"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveOrder(tt.sub)
			f := requireValidation(t, err)
			assert.Contains(t, f.Message, "At least 2")
		})
	}
}
