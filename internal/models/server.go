package models

import "time"

type Server struct {
	ID        int64     `json:"id,string"`
	Name      string    `json:"name"`
	IconHash  *string   `json:"icon_hash,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
