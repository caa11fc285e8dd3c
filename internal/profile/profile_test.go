package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	p := Profile{
		Name:  "  Local ",
		Hosts: []string{"10.0.0.1", " 10.0.0.1 ", "", "  ", "10.0.0.2:3100"},
	}
	p.Normalize()

	assert.Equal(t, "Local", p.Name)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2:3100"}, p.Hosts)
	assert.Equal(t, DefaultPort, p.Port)
	assert.Equal(t, DefaultColor, p.Color)

	p = Profile{Name: "x", Hosts: []string{"h"}, Port: 4000, Color: "#fff"}
	p.Normalize()
	assert.Equal(t, 4000, p.Port)
	assert.Equal(t, "#fff", p.Color)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Profile{Name: "a", Hosts: []string{"h"}, Port: 3000}.Validate())

	err := Profile{Port: 70000}.Validate()
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "name is required")
	assert.Contains(t, err.Error(), "at least one host")
	assert.Contains(t, err.Error(), "port 70000 out of range")
}

func TestParseHostPort(t *testing.T) {
	tests := []struct {
		in   string
		host string
		port int
	}{
		{"10.0.0.1", "10.0.0.1", 3000},
		{"10.0.0.1:3100", "10.0.0.1", 3100},
		{"db.local:4000", "db.local", 4000},
		{"[::1]:3001", "::1", 3001},
		{"::1", "::1", 3000},
		{"host:abc", "host:abc", 3000},
		{"host:0", "host:0", 3000},
	}
	for _, tt := range tests {
		host, port := ParseHostPort(tt.in, 3000)
		assert.Equal(t, tt.host, host, tt.in)
		assert.Equal(t, tt.port, port, tt.in)
	}
}
