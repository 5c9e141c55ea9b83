package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tripnest/booking-service/internal/domain/model"
	"github.com/tripnest/booking-service/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// resourceRepository loads reservable resources. Kinds map to separate
// tables but callers only see the Reservable capability.
type resourceRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewResourceRepository(db *gorm.DB, logger *zap.Logger) repository.ResourceRepository {
	return &resourceRepository{db: db, logger: logger}
}

func (r *resourceRepository) Get(ctx context.Context, kind model.ResourceKind, id uuid.UUID) (model.Reservable, error) {
	switch kind {
	case model.ResourceKindTour:
		var pkg model.TourPackage
		if err := r.find(ctx, &pkg, id); err != nil {
			return nil, err
		}
		if pkg.ID == uuid.Nil {
			return nil, nil
		}
		return &pkg, nil
	case model.ResourceKindRoom:
		var pkg model.HotelPackage
		if err := r.find(ctx, &pkg, id); err != nil {
			return nil, err
		}
		if pkg.ID == uuid.Nil {
			return nil, nil
		}
		return &pkg, nil
	default:
		return nil, fmt.Errorf("unknown resource kind: %s", kind)
	}
}

func (r *resourceRepository) find(ctx context.Context, dest interface{}, id uuid.UUID) error {
	err := dbFrom(ctx, r.db).
		Where("id = ?", id).
		First(dest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		r.logger.Error("failed to get resource",
			zap.String("resource_id", id.String()),
			zap.Error(err))
		return fmt.Errorf("failed to get resource: %w", err)
	}
	return nil
}
