package audios

import (
	"context"

	"github.com/dmitrijs2005/audiokeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, audio *models.Audio) (*models.Audio, error)
	FindByID(ctx context.Context, id int64) (*models.Audio, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.Audio, error)
	Delete(ctx context.Context, id int64) error
}
