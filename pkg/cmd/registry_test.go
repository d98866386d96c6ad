package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRejectsOverlappingArity(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&stubCommand{name: "macro", arity: Exactly(0)}))
	require.NoError(t, reg.Register(&stubCommand{name: "macro", arity: Between(2, Unbounded)}))

	err := reg.Register(&stubCommand{name: "macro", arity: Between(3, 4)})
	assert.ErrorContains(t, err, "duplicate identifier")

	assert.Error(t, reg.Register(&stubCommand{name: "", arity: Exactly(0)}))
	assert.Error(t, reg.Register(&stubCommand{name: "bad", arity: Between(2, 1)}))
	assert.Panics(t, func() { reg.MustRegister(&stubCommand{name: "macro", arity: Exactly(0)}) })
}

func TestLookupArity(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&stubCommand{name: "quote", arity: Between(0, 1)}))

	d, err := reg.LookupArity("quote", 1)
	require.NoError(t, err)
	assert.Equal(t, "quote", d.Name)

	_, err = reg.LookupArity("quote", 2)
	var arity *ArityError
	require.ErrorAs(t, err, &arity)
	assert.Equal(t, "quote: got 2 arguments, accepts 0-1", arity.Error())

	_, err = reg.LookupArity("missing", 0)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = reg.Lookup("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistryAllSorted(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(&stubCommand{name: "system", arity: Between(1, 2)})
	reg.MustRegister(&stubCommand{name: "macro", arity: Between(2, Unbounded)})
	reg.MustRegister(&stubCommand{name: "macro", arity: Exactly(0)})

	all := reg.All()
	require.Len(t, all, 3)
	assert.Equal(t, "macro", all[0].Name)
	assert.Equal(t, 0, all[0].Arity.Min)
	assert.Equal(t, 2, all[1].Arity.Min)
	assert.Equal(t, "system", all[2].Name)
}

func TestDescriptorUsage(t *testing.T) {
	d := describe(&stubCommand{
		name:  "distance",
		arity: Between(2, 3),
		args: []Argument{
			{Name: "System 1"},
			{Name: "System 2"},
			{Name: "Flags", Optional: true},
		},
	})
	assert.Equal(t, "/distance: System 1, System 2, [Flags]", d.Usage("/"))
	assert.Equal(t, "System 2", d.ArgumentName(1))
	assert.Equal(t, "#5", d.ArgumentName(4))
	assert.Equal(t, "/ping", describe(&stubCommand{name: "ping"}).Usage("/"))
}

func TestArityString(t *testing.T) {
	assert.Equal(t, "1", Exactly(1).String())
	assert.Equal(t, "1-2", Between(1, 2).String())
	assert.Equal(t, "2+", Between(2, Unbounded).String())
	assert.True(t, Between(2, Unbounded).Accepts(100))
	assert.False(t, Between(2, Unbounded).Accepts(1))
}
