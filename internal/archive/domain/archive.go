package domain

import "time"

// Archive represents one tracked mailing-list archive source. Remote archives
// carry the pipermail index URL; uploaded archives have an empty URL and are
// fed through the upload endpoint instead.
type Archive struct {
	ID           string     `json:"id" gorm:"primaryKey"`
	Name         string     `json:"name" gorm:"uniqueIndex;not null"`
	URL          string     `json:"url,omitempty"`
	Description  string     `json:"description,omitempty"`
	MessageCount int64      `json:"message_count" gorm:"-"`
	LastFetched  *time.Time `json:"last_fetched,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
