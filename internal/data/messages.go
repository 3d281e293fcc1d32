package data

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"api.tunesmith.dev/internal/validator"
)

type Message struct {
	ID             int64     `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	ConversationID uuid.UUID `json:"-"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	Version        int       `json:"version"`
}

func ValidateMessage(v *validator.Validator, message *Message) {
	v.Check(message.ConversationID != uuid.Nil, "conversation_id", "must be provided")
	v.Check(validator.PermittedValue(message.Role, "user", "assistant"), "role", "must be user or assistant")

	v.Check(message.Content != "", "content", "must be provided")
	v.Check(len(message.Content) <= 32_768, "content", "must not be more than 32768 bytes long")
}

type MessageModel struct {
	DB *sql.DB
}

func (m MessageModel) Insert(message *Message) error {
	query := `
		INSERT INTO messages (conversation_id, role, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, version`
	args := []any{message.ConversationID, message.Role, message.Content}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	return m.DB.QueryRowContext(ctx, query, args...).Scan(&message.ID, &message.CreatedAt, &message.Version)
}

// GetForConversation returns the most recent limit messages, oldest first.
func (m MessageModel) GetForConversation(conversationID uuid.UUID, limit int) ([]*Message, error) {
	query := `
		SELECT id, created_at, role, content, version
		FROM (
			SELECT id, created_at, role, content, version
			FROM messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC, id ASC`

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := m.DB.QueryContext(ctx, query, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []*Message{}

	for rows.Next() {
		message := Message{ConversationID: conversationID}

		err := rows.Scan(
			&message.ID,
			&message.CreatedAt,
			&message.Role,
			&message.Content,
			&message.Version,
		)
		if err != nil {
			return nil, err
		}
		messages = append(messages, &message)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return messages, nil
}

func (m MessageModel) DeleteForConversation(conversationID uuid.UUID) (int64, error) {
	query := `
		DELETE FROM messages
		WHERE conversation_id = $1`

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	result, err := m.DB.ExecContext(ctx, query, conversationID)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
