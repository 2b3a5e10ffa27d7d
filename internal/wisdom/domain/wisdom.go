package domain

import "time"

// Style controls the voice of generated wisdom
type Style string

const (
	StyleInsightful    Style = "insightful"
	StyleHumorous      Style = "humorous"
	StyleSarcastic     Style = "sarcastic"
	StylePhilosophical Style = "philosophical"
)

// ParseStyle maps a request value onto a known style, defaulting to insightful
func ParseStyle(s string) Style {
	switch Style(s) {
	case StyleHumorous, StyleSarcastic, StylePhilosophical, StyleInsightful:
		return Style(s)
	default:
		return StyleInsightful
	}
}

// Wisdom is one generated distillation of mailing-list discussions
type Wisdom struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Topic       string    `json:"topic" gorm:"index;not null"`
	Style       Style     `json:"style"`
	Content     string    `json:"content" gorm:"type:text;not null"`
	SourceCount int       `json:"source_count"`
	CreatedAt   time.Time `json:"created_at"`
}
