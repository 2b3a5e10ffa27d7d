package domain

import "time"

// Message is one parsed mailing-list message. MessageID is the stable
// identity from the mail headers (or a generated fallback), so re-syncing a
// month updates rows instead of duplicating them.
type Message struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	ArchiveID string    `json:"archive_id" gorm:"index;not null"`
	MessageID string    `json:"message_id" gorm:"uniqueIndex;not null"`
	ThreadID  string    `json:"thread_id,omitempty" gorm:"index"`
	Subject   string    `json:"subject"`
	Author    string    `json:"author"`
	Date      time.Time `json:"date"`
	Content   string    `json:"content" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
