package model

import "time"

type MediaID string

// Media is a stored image. Variants maps a variant name to its URL.
type Media struct {
	ID          MediaID           `json:"id"`
	Key         string            `json:"key"`
	URL         string            `json:"url"`
	ContentType string            `json:"content_type"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	Size        int64             `json:"size"`
	Variants    map[string]string `json:"variants,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}
