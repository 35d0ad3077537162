package cli

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etenda/etenda/internal/chain"
)

func TestNetworkList(t *testing.T) {
	e := newCLIEnv(t)

	var views []struct {
		Name     string `json:"name"`
		ChainID  uint64 `json:"chain_id"`
		Contract string `json:"contract"`
	}
	e.runJSON(&views, "network", "list")
	require.Len(t, views, len(chain.Networks()))

	found := false
	for _, v := range views {
		if v.Name == "base-sepolia" {
			found = true
			assert.Equal(t, uint64(chain.BaseSepolia), v.ChainID)
			assert.True(t, strings.EqualFold(testContract, v.Contract), v.Contract)
		}
	}
	assert.True(t, found)

	stdout, err := e.run("-o", "text", "network", "list")
	require.NoError(t, err)
	for _, line := range strings.Split(stdout, "\n") {
		if strings.Contains(line, "base-sepolia") {
			assert.True(t, strings.HasPrefix(strings.TrimSpace(line), "*"), line)
		}
	}
}

func TestCompleteNetworks(t *testing.T) {
	t.Parallel()

	names, directive := completeNetworks(networkListCmd, nil, "")
	assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive)
	assert.Equal(t, []string{"base", "base-sepolia", "ethereum", "sepolia"}, names)
}
