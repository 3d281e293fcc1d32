package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/tidwall/gjson"

	"api.tunesmith.dev/internal/spotify"
)

const (
	DefaultMaxIterations = 8

	// Reply recorded when the loop is cut off after tools have run.
	stoppedOutput = "Agent stopped due to iteration limit."

	// Observations longer than this are summarized by their keys in the
	// steps explanation.
	observationSummaryThreshold = 500
)

var ErrMaxIterations = errors.New("agent stopped after reaching the iteration limit")

type Config struct {
	Provider      Provider
	Model         string
	Music         Music
	MaxIterations int
	MaxTokens     int
	MemoryWindow  int
	// History seeds the conversation buffer, oldest first.
	History []Message
	Logger  *slog.Logger
}

// Agent pairs a provider with the Spotify tool manifest and a conversation
// buffer. Requests to one agent are processed one at a time.
type Agent struct {
	provider      Provider
	model         string
	music         Music
	maxIterations int
	maxTokens     int
	tools         *toolset
	memory        *Memory
	logger        *slog.Logger

	mu sync.Mutex
}

type PlaylistDetails struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	URL           string          `json:"url"`
	TrackCount    int             `json:"track_count"`
	CoverImageURL string          `json:"cover_image_url"`
	TracksPreview []spotify.Track `json:"tracks_preview"`
}

// Result is the outcome of one request. Type is "playlist" when a playlist
// was created and "generic" otherwise; it is empty on failure.
type Result struct {
	Success          bool             `json:"success"`
	Type             string           `json:"type,omitzero"`
	Playlist         *PlaylistDetails `json:"playlist,omitzero"`
	Message          string           `json:"message,omitzero"`
	Error            string           `json:"error,omitzero"`
	StepsExplanation string           `json:"agent_steps_explanation,omitzero"`
	RawOutput        string           `json:"raw_output,omitzero"`
}

type step struct {
	call        ToolCall
	observation string
}

func New(cfg Config) (*Agent, error) {
	if cfg.Provider == nil {
		return nil, errors.New("provider is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("model is required")
	}
	if cfg.Music == nil {
		return nil, errors.New("music client is required")
	}

	tools, err := defaultTools()
	if err != nil {
		return nil, fmt.Errorf("failed to build tools: %w", err)
	}

	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	return &Agent{
		provider:      cfg.Provider,
		model:         cfg.Model,
		music:         cfg.Music,
		maxIterations: cfg.MaxIterations,
		maxTokens:     cfg.MaxTokens,
		tools:         tools,
		memory:        NewMemory(cfg.MemoryWindow, cfg.History...),
		logger:        cfg.Logger,
	}, nil
}

func (a *Agent) Memory() *Memory {
	return a.memory
}

// Process runs input through the tool loop and interprets the recorded
// steps. It never returns a nil result.
func (a *Agent) Process(ctx context.Context, input string) *Result {
	a.mu.Lock()
	defer a.mu.Unlock()

	output, steps, err := a.run(ctx, input)
	if errors.Is(err, ErrMaxIterations) {
		// Tools already ran; a created playlist or tool error still stands.
		if result := interpret(stoppedOutput, steps); result.Playlist != nil || result.Error != "" {
			a.logger.Warn("agent stopped early", "provider", a.provider.Name(), "steps", len(steps))
			if result.Success {
				a.memory.Add(
					Message{Role: RoleUser, Content: input},
					Message{Role: RoleAssistant, Content: stoppedOutput},
				)
			}
			return result
		}
	}
	if err != nil {
		a.logger.Error("agent run failed", "provider", a.provider.Name(), "error", err)
		return &Result{Success: false, Error: fmt.Sprintf("Unexpected agent error: %v", err)}
	}

	a.memory.Add(
		Message{Role: RoleUser, Content: input},
		Message{Role: RoleAssistant, Content: output},
	)

	return interpret(output, steps)
}

func (a *Agent) run(ctx context.Context, input string) (string, []step, error) {
	messages := a.memory.Messages()
	messages = append(messages, Message{Role: RoleUser, Content: input})

	temperature := Temperature(input)
	var steps []step

	for iteration := 0; iteration < a.maxIterations; iteration++ {
		response, err := a.provider.Complete(ctx, Request{
			Model:       a.model,
			System:      systemPrompt,
			Messages:    messages,
			Tools:       a.tools.definitions,
			Temperature: temperature,
			MaxTokens:   a.maxTokens,
		})
		if err != nil {
			return "", steps, err
		}

		if len(response.ToolCalls) == 0 {
			return response.Content, steps, nil
		}

		messages = append(messages, Message{
			Role:      RoleAssistant,
			Content:   response.Content,
			ToolCalls: response.ToolCalls,
		})

		for _, call := range response.ToolCalls {
			observation := a.tools.execute(ctx, a.music, call)
			a.logger.Debug("tool called", "tool", call.Name, "iteration", iteration)

			steps = append(steps, step{call: call, observation: observation})
			messages = append(messages, Message{
				Role:       RoleTool,
				Content:    observation,
				ToolCallID: call.ID,
			})
		}
	}

	return "", steps, fmt.Errorf("%w (%d)", ErrMaxIterations, a.maxIterations)
}

func interpret(output string, steps []step) *Result {
	var (
		explanation []string
		playlist    *PlaylistDetails
		lastError   string
	)

	for _, s := range steps {
		args, _ := json.Marshal(s.call.Arguments)
		explanation = append(explanation, fmt.Sprintf("Action: Called tool '%s' with input: %s", s.call.Name, args))

		observation := gjson.Parse(s.observation)
		if msg := observation.Get("error"); msg.Exists() && msg.String() != "" {
			lastError = msg.String()
			explanation = append(explanation, "Observation: Error - "+lastError)
			continue
		}

		explanation = append(explanation, "Observation: "+describe(s.observation))

		if s.call.Name != ToolCreatePlaylist {
			continue
		}

		url := observation.Get("external_urls.spotify").String()
		if url == "" {
			if lastError == "" {
				lastError = "Playlist created, but failed to get URL."
			}
			continue
		}

		playlist = &PlaylistDetails{
			ID:            observation.Get("id").String(),
			Name:          observation.Get("name").String(),
			Description:   observation.Get("description").String(),
			URL:           url,
			TrackCount:    int(observation.Get("tracks.total").Int()),
			CoverImageURL: observation.Get("cover_image_url").String(),
			TracksPreview: []spotify.Track{},
		}
		if preview := observation.Get("tracks_preview"); preview.IsArray() {
			_ = json.Unmarshal([]byte(preview.Raw), &playlist.TracksPreview)
		}
	}

	summary := strings.Join(explanation, "\n")

	switch {
	case playlist != nil:
		return &Result{Success: true, Type: "playlist", Playlist: playlist, StepsExplanation: summary, RawOutput: output}
	case lastError != "":
		return &Result{Success: false, Error: lastError, StepsExplanation: summary}
	default:
		return &Result{Success: true, Type: "generic", Message: output, StepsExplanation: summary}
	}
}

func describe(observation string) string {
	parsed := gjson.Parse(observation)
	if !parsed.IsObject() {
		return observation
	}

	if len(observation) > observationSummaryThreshold {
		var keys []string
		parsed.ForEach(func(key, _ gjson.Result) bool {
			keys = append(keys, key.String())
			return true
		})
		return fmt.Sprintf("Received object (keys: %s)", strings.Join(keys, ", "))
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(observation), "", "  "); err != nil {
		return observation
	}
	return buf.String()
}
