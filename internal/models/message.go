package models

import "time"

// Message is the minimal message record this service needs: IDs are snowflakes,
// so the maximum ID per channel is the channel's current read-cursor seed.
// Content storage, tagging and voting live in the messaging service.
type Message struct {
	ID        int64     `json:"id,string"`
	ChannelID int64     `json:"channel_id,string"`
	AuthorID  int64     `json:"author_id,string"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
