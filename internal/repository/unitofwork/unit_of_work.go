package unitofwork

import (
	"context"

	"video-segmentation-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	VideoRepository() contract.VideoRepository
}
