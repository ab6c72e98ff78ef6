package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateThreadRequest struct {
	Title string `json:"title"`
}

type CreateThreadResponse struct {
	Id uuid.UUID `json:"id"`
}

type ThreadResponse struct {
	Id        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type ThreadMessageResponse struct {
	Id        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ThreadPreviewResponse carries the earliest user messages of a thread
// for the sidebar preview.
type ThreadPreviewResponse struct {
	ThreadId uuid.UUID `json:"thread_id"`
	Messages []string  `json:"messages"`
}
