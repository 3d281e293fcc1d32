package spotify

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/zmb3/spotify/v2"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated with Spotify")
	ErrNoDevices        = errors.New("no available Spotify devices found")
	ErrNoActiveDevice   = errors.New("no active Spotify device found")
	ErrPremiumRequired  = errors.New("playback control failed: requires Premium or the device is restricted")
	ErrUnknownAction    = errors.New("Unknown playback action")
	ErrInvalidTrackURI  = errors.New("invalid track uri")
)

// APIError is a Spotify Web API failure with the message Spotify returned.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("Spotify API error: %s", e.Message)
	}
	return fmt.Sprintf("Spotify API error code: %d", e.Status)
}

// normalizeError turns errors returned by the Web API client into *APIError,
// leaving transport and other errors untouched.
func normalizeError(err error) error {
	if err == nil {
		return nil
	}

	var valueErr spotify.Error
	if errors.As(err, &valueErr) {
		return &APIError{Status: valueErr.Status, Message: valueErr.Message}
	}

	var ptrErr *spotify.Error
	if errors.As(err, &ptrErr) && ptrErr != nil {
		return &APIError{Status: ptrErr.Status, Message: ptrErr.Message}
	}

	return err
}

func playbackError(err error) error {
	err = normalizeError(err)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	msg := strings.ToLower(apiErr.Message)
	switch {
	case apiErr.Status == http.StatusNotFound && strings.Contains(msg, "no active device found"):
		return ErrNoActiveDevice
	case apiErr.Status == http.StatusForbidden && (strings.Contains(msg, "restricted") || strings.Contains(msg, "premium")):
		return ErrPremiumRequired
	}

	return apiErr
}
