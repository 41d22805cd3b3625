package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadTransportConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("MCP_TRANSPORT", "")
		t.Setenv("MCP_PORT", "")
		cfg, err := LoadTransportConfig()
		require.NoError(t, err)
		require.Equal(t, TransportStdio, cfg.Type)
		require.Equal(t, 8090, cfg.Port)
		require.Equal(t, "0.0.0.0:8090", cfg.Addr())
	})

	t.Run("http", func(t *testing.T) {
		t.Setenv("MCP_TRANSPORT", "http")
		t.Setenv("MCP_HOST", "127.0.0.1")
		t.Setenv("MCP_PORT", "9000")
		cfg, err := LoadTransportConfig()
		require.NoError(t, err)
		require.Equal(t, TransportHTTP, cfg.Type)
		require.Equal(t, "127.0.0.1:9000", cfg.Addr())
	})

	t.Run("unknown transport", func(t *testing.T) {
		t.Setenv("MCP_TRANSPORT", "carrier-pigeon")
		_, err := LoadTransportConfig()
		require.ErrorContains(t, err, "invalid MCP_TRANSPORT")
	})

	t.Run("non-numeric port", func(t *testing.T) {
		t.Setenv("MCP_TRANSPORT", "http")
		t.Setenv("MCP_PORT", "eighty")
		_, err := LoadTransportConfig()
		require.Error(t, err)
	})
}

func TestTransportConfigValidatePort(t *testing.T) {
	require.Error(t, TransportConfig{Type: TransportSSE, Port: 70000}.Validate())
	require.NoError(t, TransportConfig{Type: TransportStdio}.Validate())
}

func TestServerListsTools(t *testing.T) {
	srv := NewServer(Config{Name: "Pitchside", Version: "test"}, Services{})

	resp := srv.MCPServer().HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	data, err := json.Marshal(resp)
	require.NoError(t, err)

	for _, name := range []string{
		"list_teams", "get_team", "player_leaderboard",
		"list_matches", "get_match",
		"active_tournaments", "points_table", "tournament_stats",
	} {
		require.Contains(t, string(data), `"`+name+`"`)
	}
}
