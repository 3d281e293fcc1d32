package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"api.tunesmith.dev/internal/validator"
)

// Playlist records a playlist the agent or the user created through the API.
type Playlist struct {
	ID             int       `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	ConversationID uuid.UUID `json:"-"`
	SpotifyID      string    `json:"spotify_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitzero"`
	URL            string    `json:"url"`
	CoverImageURL  string    `json:"cover_image_url,omitzero"`
	TrackCount     int       `json:"track_count"`
	Version        int       `json:"version"`
}

func ValidatePlaylist(v *validator.Validator, playlist *Playlist) {
	v.Check(playlist.ConversationID != uuid.Nil, "conversation_id", "must be provided")
	v.Check(playlist.SpotifyID != "", "spotify_id", "must be provided")

	v.Check(playlist.Name != "", "name", "must be provided")
	v.Check(len(playlist.Name) <= 500, "name", "must not be more than 500 bytes long")

	v.Check(playlist.URL != "", "url", "must be provided")
	v.Check(playlist.TrackCount >= 0, "track_count", "must not be negative")
}

type PlaylistModel struct {
	DB *sql.DB
}

func (m PlaylistModel) Insert(playlist *Playlist) error {
	query := `
		INSERT INTO playlists (conversation_id, spotify_id, name, description, url, cover_image_url, track_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, version`
	args := []any{
		playlist.ConversationID,
		playlist.SpotifyID,
		playlist.Name,
		playlist.Description,
		playlist.URL,
		playlist.CoverImageURL,
		playlist.TrackCount,
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	return m.DB.QueryRowContext(ctx, query, args...).Scan(&playlist.ID, &playlist.CreatedAt, &playlist.Version)
}

func (m PlaylistModel) Get(conversationID uuid.UUID, id int) (*Playlist, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}

	query := `
		SELECT id, created_at, conversation_id, spotify_id, name, description, url, cover_image_url, track_count, version
		FROM playlists
		WHERE id = $1 AND conversation_id = $2`

	var playlist Playlist

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	err := m.DB.QueryRowContext(ctx, query, id, conversationID).Scan(
		&playlist.ID,
		&playlist.CreatedAt,
		&playlist.ConversationID,
		&playlist.SpotifyID,
		&playlist.Name,
		&playlist.Description,
		&playlist.URL,
		&playlist.CoverImageURL,
		&playlist.TrackCount,
		&playlist.Version,
	)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return &playlist, nil
}

func (m PlaylistModel) Delete(conversationID uuid.UUID, id int) error {
	if id < 1 {
		return ErrRecordNotFound
	}

	query := `
		DELETE FROM playlists
		WHERE id = $1 AND conversation_id = $2`

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	result, err := m.DB.ExecContext(ctx, query, id, conversationID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrRecordNotFound
	}

	return nil
}

func (m PlaylistModel) GetAll(conversationID uuid.UUID, name string, filters Filters) ([]*Playlist, Metadata, error) {
	query := fmt.Sprintf(`
		SELECT count(*) OVER(), id, created_at, conversation_id, spotify_id, name, description, url, cover_image_url, track_count, version
		FROM playlists
		WHERE conversation_id = $1
		AND (to_tsvector('simple', name) @@ plainto_tsquery('simple', $2) OR $2 = '')
		ORDER BY %s %s, id DESC
		LIMIT $3 OFFSET $4`, filters.sortColumn(), filters.sortDirection())

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	args := []any{conversationID, name, filters.limit(), filters.offset()}

	rows, err := m.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, Metadata{}, err
	}
	defer rows.Close()

	totalRecords := 0
	playlists := []*Playlist{}

	for rows.Next() {
		var playlist Playlist

		err := rows.Scan(
			&totalRecords,
			&playlist.ID,
			&playlist.CreatedAt,
			&playlist.ConversationID,
			&playlist.SpotifyID,
			&playlist.Name,
			&playlist.Description,
			&playlist.URL,
			&playlist.CoverImageURL,
			&playlist.TrackCount,
			&playlist.Version,
		)
		if err != nil {
			return nil, Metadata{}, err
		}
		playlists = append(playlists, &playlist)
	}

	if err := rows.Err(); err != nil {
		return nil, Metadata{}, err
	}

	metadata := calculateMetadata(totalRecords, filters.Page, filters.PageSize)
	return playlists, metadata, nil
}
