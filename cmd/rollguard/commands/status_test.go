package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	cmd := Status()

	require.NotNil(t, cmd)
	assert.Equal(t, "status", cmd.Use)
	assert.Equal(t, "Show managed deployments and their images", cmd.Short)
}

func TestStatus_Flags(t *testing.T) {
	cmd := Status()

	namespace := cmd.Flags().Lookup("namespace")
	require.NotNil(t, namespace)
	assert.Equal(t, "n", namespace.Shorthand)

	selector := cmd.Flags().Lookup("selector")
	require.NotNil(t, selector)
	assert.Equal(t, "l", selector.Shorthand)

	require.NotNil(t, cmd.Flags().Lookup("kubeconfig"))
	require.NotNil(t, cmd.Flags().Lookup("context"))
}

func TestStatus_RunE(t *testing.T) {
	cmd := Status()
	assert.NotNil(t, cmd.RunE, "Status command should have RunE function")
}
