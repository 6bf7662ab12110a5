package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/stagegrid/internal/argument"
	"github.com/vk/stagegrid/internal/stage"
)

type testModule struct{ defs []*stage.Definition }

func (m testModule) Register(r *Registry) {
	for _, d := range m.defs {
		r.MustRegister(d)
	}
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := New(Default)
	var m Module = testModule{defs: []*stage.Definition{{Name: "B"}, {Name: "A"}}}
	m.Register(r)

	def, err := r.Lookup("A")
	require.NoError(t, err)
	assert.Equal(t, "A", def.Name)
	assert.Equal(t, []string{"A", "B"}, r.Names())

	_, err = r.Lookup("C")
	var lookupErr *LookupError
	require.True(t, errors.As(err, &lookupErr))
	assert.Equal(t, LookupError{Registry: Default, Name: "C"}, *lookupErr)
}

func TestRegistry_RejectsDuplicatesAndInvalid(t *testing.T) {
	r := New("x")
	require.NoError(t, r.Register(&stage.Definition{Name: "A"}))
	assert.ErrorContains(t, r.Register(&stage.Definition{Name: "A"}), "already registered")

	bad := &stage.Definition{Name: "Bad", Args: []*argument.Argument{
		argument.MustNew(argument.Argument{Name: "a"}),
		argument.MustNew(argument.Argument{Name: "a"}),
	}}
	assert.Error(t, r.Register(bad))
	assert.Panics(t, func() { r.MustRegister(&stage.Definition{Name: "A"}) })
}

func TestSet_Resolve(t *testing.T) {
	core := New(Default)
	core.MustRegister(&stage.Definition{Name: "Core"})
	s := NewSet(core)
	s.Get("extra").MustRegister(&stage.Definition{Name: "Plugin"})

	var resolve stage.Resolver = s.Resolve
	def, err := resolve(Default, "Core")
	require.NoError(t, err)
	assert.Equal(t, "Core", def.Name)

	def, err = resolve("extra", "Plugin")
	require.NoError(t, err)
	assert.Equal(t, "Plugin", def.Name)

	_, err = resolve(Default, "Plugin")
	assert.ErrorContains(t, err, `stage "Plugin" not found in registry "stagegrid_modules"`)

	_, err = resolve("missing", "Core")
	assert.ErrorContains(t, err, `unknown stage registry "missing"`)

	assert.Equal(t, []string{"extra", Default}, s.Names())
}
