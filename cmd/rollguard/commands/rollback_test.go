package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollback(t *testing.T) {
	cmd := Rollback()

	require.NotNil(t, cmd)
	assert.Equal(t, "rollback", cmd.Use)
	assert.Equal(t, "Revert a deployment to its previous revision", cmd.Short)
	assert.Contains(t, cmd.Long, "kubectl rollout undo")
}

func TestRollback_Flags(t *testing.T) {
	cmd := Rollback()

	require.NotNil(t, cmd.Flags().Lookup("namespace"))
	require.NotNil(t, cmd.Flags().Lookup("selector"))
	require.NotNil(t, cmd.Flags().Lookup("deployment"))
	require.NotNil(t, cmd.Flags().Lookup("kubeconfig"))
	require.NotNil(t, cmd.Flags().Lookup("context"))

	yes := cmd.Flags().Lookup("yes")
	require.NotNil(t, yes)
	assert.Equal(t, "y", yes.Shorthand)
	assert.Equal(t, "false", yes.DefValue)
}

func TestRollback_RunE(t *testing.T) {
	cmd := Rollback()
	assert.NotNil(t, cmd.RunE, "Rollback command should have RunE function")
}
