package data

import (
	"database/sql"
	"errors"
	"time"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrEditConflict   = errors.New("edit conflict")
)

const queryTimeout = 3 * time.Second

type Models struct {
	Conversations ConversationModel
	Messages      MessageModel
	Playlists     PlaylistModel
}

func NewModels(db *sql.DB) Models {
	return Models{
		Conversations: ConversationModel{DB: db},
		Messages:      MessageModel{DB: db},
		Playlists:     PlaylistModel{DB: db},
	}
}
