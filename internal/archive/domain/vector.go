package domain

import "time"

// MessageVector stores one message embedding as a JSON-encoded float array.
// Plain Postgres without a vector extension; similarity math happens in the
// in-memory store, this table only survives restarts.
type MessageVector struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	MessageID string    `json:"message_id" gorm:"uniqueIndex;not null"`
	Embedding string    `json:"-" gorm:"type:text;not null"`
	Content   string    `json:"content" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WisdomVector stores the embedding of one generated wisdom item, same
// JSON-text encoding as MessageVector.
type WisdomVector struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	WisdomID  string    `json:"wisdom_id" gorm:"uniqueIndex;not null"`
	Embedding string    `json:"-" gorm:"type:text;not null"`
	Content   string    `json:"content" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
