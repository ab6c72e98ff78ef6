package contract

import (
	"context"

	"github.com/google/uuid"

	"medical-assistant-be/internal/entity"
	"medical-assistant-be/internal/repository/specification"
)

type ChatThreadRepository interface {
	Create(ctx context.Context, thread *entity.ChatThread) error
	Update(ctx context.Context, thread *entity.ChatThread) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatThread, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatThread, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
