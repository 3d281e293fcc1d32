package data

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"api.tunesmith.dev/internal/validator"
)

// Conversation ties an agent id to the Spotify user it acts for.
type Conversation struct {
	ID            uuid.UUID `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	LastActiveAt  time.Time `json:"last_active_at"`
	SpotifyUserID string    `json:"spotify_user_id"`
	DisplayName   string    `json:"display_name,omitzero"`
	Email         string    `json:"-"`
	Version       int       `json:"version"`
}

func ValidateConversation(v *validator.Validator, conversation *Conversation) {
	v.Check(conversation.ID != uuid.Nil, "id", "must be provided")
	v.Check(conversation.SpotifyUserID != "", "spotify_user_id", "must be provided")
	v.Check(len(conversation.DisplayName) <= 500, "display_name", "must not be more than 500 bytes long")

	if conversation.Email != "" {
		v.Check(validator.Matches(conversation.Email, validator.EmailRX), "email", "must be a valid email address")
	}
}

type ConversationModel struct {
	DB *sql.DB
}

func (m ConversationModel) Insert(conversation *Conversation) error {
	query := `
		INSERT INTO conversations (id, spotify_user_id, display_name, email)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, last_active_at, version`
	args := []any{conversation.ID, conversation.SpotifyUserID, conversation.DisplayName, conversation.Email}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	return m.DB.QueryRowContext(ctx, query, args...).Scan(&conversation.CreatedAt, &conversation.LastActiveAt, &conversation.Version)
}

func (m ConversationModel) Get(id uuid.UUID) (*Conversation, error) {
	if id == uuid.Nil {
		return nil, ErrRecordNotFound
	}

	query := `
		SELECT id, created_at, last_active_at, spotify_user_id, display_name, email, version
		FROM conversations
		WHERE id = $1`

	var conversation Conversation

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	err := m.DB.QueryRowContext(ctx, query, id).Scan(
		&conversation.ID,
		&conversation.CreatedAt,
		&conversation.LastActiveAt,
		&conversation.SpotifyUserID,
		&conversation.DisplayName,
		&conversation.Email,
		&conversation.Version,
	)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return &conversation, nil
}

// Touch records activity on the conversation. It fails with ErrEditConflict
// when the row changed since it was read.
func (m ConversationModel) Touch(conversation *Conversation) error {
	query := `
		UPDATE conversations
		SET last_active_at = NOW(), display_name = $1, email = $2, version = version + 1
		WHERE id = $3 AND version = $4
		RETURNING last_active_at, version`

	args := []any{conversation.DisplayName, conversation.Email, conversation.ID, conversation.Version}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	err := m.DB.QueryRowContext(ctx, query, args...).Scan(&conversation.LastActiveAt, &conversation.Version)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return ErrEditConflict
		default:
			return err
		}
	}

	return nil
}

// Delete removes the conversation together with its messages and recorded
// playlists.
func (m ConversationModel) Delete(id uuid.UUID) error {
	if id == uuid.Nil {
		return ErrRecordNotFound
	}

	query := `
		DELETE FROM conversations
		WHERE id = $1`

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	result, err := m.DB.ExecContext(ctx, query, id)
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
