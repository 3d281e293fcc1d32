package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestToolDefinitions(t *testing.T) {
	tools, err := defaultTools()
	require.NoError(t, err)

	names := make([]string, 0, len(tools.definitions))
	for _, def := range tools.definitions {
		names = append(names, def.Name)
		assert.Equal(t, "object", def.Parameters["type"], def.Name)
		assert.NotContains(t, def.Parameters, "$schema", def.Name)
		assert.Contains(t, def.Parameters, "properties", def.Name)
		assert.NotEmpty(t, def.Description, def.Name)
	}
	assert.Equal(t, []string{ToolSearchTracks, ToolCreatePlaylist, ToolControlPlayback, ToolCurrentProfile}, names)

	search := tools.tools[ToolSearchTracks].definition.Parameters
	assert.ElementsMatch(t, []any{"query"}, search["required"])
	limit := search["properties"].(map[string]any)["limit"].(map[string]any)
	assert.Equal(t, "integer", limit["type"])
	assert.EqualValues(t, 10, limit["default"])

	create := tools.tools[ToolCreatePlaylist].definition.Parameters
	assert.ElementsMatch(t, []any{"name", "track_uris"}, create["required"])
	uris := create["properties"].(map[string]any)["track_uris"].(map[string]any)
	assert.Equal(t, "array", uris["type"])

	playback := tools.tools[ToolControlPlayback].definition.Parameters
	action := playback["properties"].(map[string]any)["action"].(map[string]any)
	assert.NotContains(t, action, "enum")
	assert.Contains(t, action["description"], "play, pause, next or previous")
	assert.NotContains(t, limit, "maximum")
	assert.ElementsMatch(t, []any{"action"}, playback["required"])
}

func TestToolExecute(t *testing.T) {
	tools, err := defaultTools()
	require.NoError(t, err)

	tests := []struct {
		name      string
		call      ToolCall
		music     *fakeMusic
		wantError string
		wantPath  string
		wantValue string
	}{
		{
			name:      "search",
			call:      call("1", ToolSearchTracks, map[string]any{"query": "jazz", "limit": float64(5)}),
			music:     &fakeMusic{},
			wantPath:  "tracks.0.name",
			wantValue: "So What",
		},
		{
			name:      "missing required query",
			call:      call("1", ToolSearchTracks, map[string]any{"limit": 5}),
			music:     &fakeMusic{},
			wantError: "invalid arguments",
		},
		{
			name:      "limit must be an integer",
			call:      call("1", ToolSearchTracks, map[string]any{"query": "jazz", "limit": "many"}),
			music:     &fakeMusic{},
			wantError: "invalid arguments",
		},
		{
			name:      "unexpected argument",
			call:      call("1", ToolCurrentProfile, map[string]any{"user": "bob"}),
			music:     &fakeMusic{},
			wantError: "invalid arguments",
		},
		{
			name:      "track uris must be strings",
			call:      call("1", ToolCreatePlaylist, map[string]any{"name": "x", "track_uris": []any{1, 2}}),
			music:     &fakeMusic{},
			wantError: "invalid arguments",
		},
		{
			name:      "unknown tool",
			call:      call("1", "delete_everything", nil),
			music:     &fakeMusic{},
			wantError: "unknown tool: delete_everything",
		},
		{
			name:      "operation error",
			call:      call("1", ToolSearchTracks, map[string]any{"query": "jazz"}),
			music:     &fakeMusic{searchErr: errors.New("Spotify API error: boom")},
			wantError: "Spotify API error: boom",
		},
		{
			name:      "profile",
			call:      call("1", ToolCurrentProfile, nil),
			music:     &fakeMusic{},
			wantPath:  "display_name",
			wantValue: "Ada",
		},
		{
			name:      "playback",
			call:      call("1", ToolControlPlayback, map[string]any{"action": "pause"}),
			music:     &fakeMusic{},
			wantPath:  "action",
			wantValue: "pause",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			observation := tools.execute(context.Background(), tt.music, tt.call)
			require.True(t, gjson.Valid(observation), observation)

			if tt.wantError != "" {
				assert.Contains(t, gjson.Get(observation, "error").String(), tt.wantError)
				return
			}
			assert.False(t, gjson.Get(observation, "error").Exists(), observation)
			assert.Equal(t, tt.wantValue, gjson.Get(observation, tt.wantPath).String())
		})
	}
}

func TestSearchToolPassesLimit(t *testing.T) {
	tools, err := defaultTools()
	require.NoError(t, err)

	music := &fakeMusic{}
	tools.execute(context.Background(), music, call("1", ToolSearchTracks, map[string]any{"query": "jazz", "limit": float64(25)}))

	assert.Equal(t, []string{"jazz/25"}, music.searched)
}

// Range and case handling belong to the Spotify client, so the tool layer
// hands these arguments through untouched.
func TestToolsPassLooseArgumentsToClient(t *testing.T) {
	tools, err := defaultTools()
	require.NoError(t, err)

	music := &fakeMusic{}

	observation := tools.execute(context.Background(), music, call("1", ToolSearchTracks, map[string]any{"query": "jazz", "limit": float64(60)}))
	assert.False(t, gjson.Get(observation, "error").Exists(), observation)
	assert.Equal(t, []string{"jazz/60"}, music.searched)

	observation = tools.execute(context.Background(), music, call("2", ToolControlPlayback, map[string]any{"action": "Play"}))
	assert.False(t, gjson.Get(observation, "error").Exists(), observation)
	assert.Equal(t, "Play", gjson.Get(observation, "action").String())
}
