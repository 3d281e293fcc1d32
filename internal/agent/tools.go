package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"

	"api.tunesmith.dev/internal/spotify"
)

const (
	ToolSearchTracks    = "spotify_search_tracks"
	ToolCreatePlaylist  = "spotify_create_playlist"
	ToolControlPlayback = "spotify_control_playback"
	ToolCurrentProfile  = "get_current_user_profile"
)

// Music is the set of Spotify operations the agent can call on behalf of a
// user. *spotify.UserClient satisfies it.
type Music interface {
	SearchTracks(ctx context.Context, query string, limit int) (*spotify.TrackList, error)
	CreatePlaylist(ctx context.Context, name, description string, trackURIs []string) (*spotify.Playlist, error)
	ControlPlayback(ctx context.Context, action, contextURI string) (*spotify.Playback, error)
	CurrentUserProfile(ctx context.Context) (*spotify.Profile, error)
}

type searchTracksArgs struct {
	Query string `json:"query" jsonschema_description:"Search query, e.g. a track name, artist, genre or mood"`
	Limit int    `json:"limit,omitempty" jsonschema:"default=10" jsonschema_description:"Maximum number of tracks to return, between 1 and 50"`
}

type createPlaylistArgs struct {
	Name        string   `json:"name" jsonschema_description:"Name of the new playlist"`
	Description string   `json:"description,omitempty" jsonschema_description:"Short description of the playlist"`
	TrackURIs   []string `json:"track_uris" jsonschema_description:"Spotify track URIs (spotify:track:...) to add to the playlist"`
}

type controlPlaybackArgs struct {
	Action     string `json:"action" jsonschema_description:"Playback action to perform: play, pause, next or previous"`
	ContextURI string `json:"context_uri,omitempty" jsonschema_description:"Optional playlist, album or artist URI to start playing with 'play'"`
}

type profileArgs struct{}

type tool struct {
	definition ToolDefinition
	schema     *gojsonschema.Schema
	run        func(ctx context.Context, music Music, raw []byte) (any, error)
}

// toolset is the fixed manifest exposed to the model.
type toolset struct {
	tools       map[string]*tool
	definitions []ToolDefinition
}

var defaultTools = sync.OnceValues(newToolset)

func newToolset() (*toolset, error) {
	search, err := newTool(ToolSearchTracks,
		"Search for tracks on Spotify based on a query string. Returns a list of tracks with details like name, artist, and URI.",
		func(ctx context.Context, music Music, args searchTracksArgs) (any, error) {
			return music.SearchTracks(ctx, args.Query, args.Limit)
		})
	if err != nil {
		return nil, err
	}

	create, err := newTool(ToolCreatePlaylist,
		"Creates a new Spotify playlist for the current user with a given name, description, and list of track URIs. Returns details of the created playlist including its name, URL, ID, cover image, and track preview.",
		func(ctx context.Context, music Music, args createPlaylistArgs) (any, error) {
			return music.CreatePlaylist(ctx, args.Name, args.Description, args.TrackURIs)
		})
	if err != nil {
		return nil, err
	}

	playback, err := newTool(ToolControlPlayback,
		"Controls Spotify playback. Actions: 'play', 'pause', 'next', 'previous'. 'play' can optionally take a context_uri (playlist, album, artist URI) to start playing specific content.",
		func(ctx context.Context, music Music, args controlPlaybackArgs) (any, error) {
			return music.ControlPlayback(ctx, args.Action, args.ContextURI)
		})
	if err != nil {
		return nil, err
	}

	profile, err := newTool(ToolCurrentProfile,
		"Gets the profile information of the currently authenticated Spotify user, like display name and user ID.",
		func(ctx context.Context, music Music, _ profileArgs) (any, error) {
			return music.CurrentUserProfile(ctx)
		})
	if err != nil {
		return nil, err
	}

	ts := &toolset{tools: map[string]*tool{}}
	for _, t := range []*tool{search, create, playback, profile} {
		ts.tools[t.definition.Name] = t
		ts.definitions = append(ts.definitions, t.definition)
	}

	return ts, nil
}

// newTool derives the parameter schema from the fields of T.
func newTool[T any](name, description string, run func(context.Context, Music, T) (any, error)) (*tool, error) {
	reflector := &jsonschema.Reflector{DoNotReference: true, ExpandedStruct: true}

	blob, err := json.Marshal(reflector.Reflect(new(T)))
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", name, err)
	}

	var parameters map[string]any
	if err := json.Unmarshal(blob, &parameters); err != nil {
		return nil, fmt.Errorf("tool %s: %w", name, err)
	}
	delete(parameters, "$schema")
	delete(parameters, "$id")
	if _, ok := parameters["properties"]; !ok {
		parameters["properties"] = map[string]any{}
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(parameters))
	if err != nil {
		return nil, fmt.Errorf("tool %s: invalid schema: %w", name, err)
	}

	return &tool{
		definition: ToolDefinition{Name: name, Description: description, Parameters: parameters},
		schema:     schema,
		run: func(ctx context.Context, music Music, raw []byte) (any, error) {
			var args T
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, fmt.Errorf("invalid arguments: %w", err)
			}
			return run(ctx, music, args)
		},
	}, nil
}

// execute runs a tool call and returns its observation as JSON. Failures are
// reported as {"error": "..."} so the model can react to them.
func (ts *toolset) execute(ctx context.Context, music Music, call ToolCall) string {
	t, ok := ts.tools[call.Name]
	if !ok {
		return errorObservation(fmt.Errorf("unknown tool: %s", call.Name))
	}

	args := call.Arguments
	if args == nil {
		args = map[string]any{}
	}

	result, err := t.schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return errorObservation(fmt.Errorf("invalid arguments: %w", err))
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return errorObservation(fmt.Errorf("invalid arguments: %s", strings.Join(problems, "; ")))
	}

	raw, err := json.Marshal(args)
	if err != nil {
		return errorObservation(err)
	}

	out, err := t.run(ctx, music, raw)
	if err != nil {
		return errorObservation(err)
	}

	blob, err := json.Marshal(out)
	if err != nil {
		return errorObservation(err)
	}

	return string(blob)
}

func errorObservation(err error) string {
	blob, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(blob)
}
