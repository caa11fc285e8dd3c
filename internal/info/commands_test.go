package info

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandBuilders(t *testing.T) {
	assert.Equal(t, "namespace/test", Namespace("test"))
	assert.Equal(t, "sets/test", Sets("test"))
	assert.Equal(t, "sindex/test", SIndex("test"))
	assert.Equal(t, "bins/test", Bins("test"))

	name, param := SplitCommand("sets/bar")
	assert.Equal(t, "sets", name)
	assert.Equal(t, "bar", param)

	name, param = SplitCommand("statistics")
	assert.Equal(t, "statistics", name)
	assert.Empty(t, param)
}

func TestIsPerNodeCommand(t *testing.T) {
	for _, cmd := range []string{"statistics", "sets/test", "bins/test", "namespace/test"} {
		assert.True(t, IsPerNodeCommand(cmd), cmd)
	}
	for _, cmd := range []string{"namespaces", "build", "udf-list", "sindex/test", "status"} {
		assert.False(t, IsPerNodeCommand(cmd), cmd)
	}
}
