package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"nucleo-coop/backend/internal/model"
	pkgerrors "nucleo-coop/backend/pkg/errors"
)

// TallyTieRepository 平票记录数据访问接口
type TallyTieRepository interface {
	Create(ctx context.Context, tie *model.TallyTie) error
	ListByElection(ctx context.Context, electionID string) ([]model.TallyTie, error)
	GetForUpdate(ctx context.Context, electionID string, council model.Council) (*model.TallyTie, error)
	MarkResolved(ctx context.Context, tieID string, resolvedBy string, at time.Time) error
}

type tallyTieRepo struct {
	db *gorm.DB
}

// NewTallyTieRepo 创建 TallyTieRepository 实例
func NewTallyTieRepo(db *gorm.DB) TallyTieRepository {
	return &tallyTieRepo{db: db}
}

func (r *tallyTieRepo) Create(ctx context.Context, tie *model.TallyTie) error {
	err := r.db.WithContext(ctx).Create(tie).Error
	if isUniqueViolation(err) {
		return pkgerrors.ErrDuplicate
	}
	return err
}

func (r *tallyTieRepo) ListByElection(ctx context.Context, electionID string) ([]model.TallyTie, error) {
	var ties []model.TallyTie
	err := r.db.WithContext(ctx).
		Where("election_id = ?", electionID).
		Order("council ASC").
		Find(&ties).Error
	return ties, err
}

func (r *tallyTieRepo) GetForUpdate(ctx context.Context, electionID string, council model.Council) (*model.TallyTie, error) {
	var tie model.TallyTie
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("election_id = ? AND council = ?", electionID, council).
		First(&tie).Error
	if err != nil {
		return nil, err
	}
	return &tie, nil
}

// MarkResolved 标记已裁决；已裁决的记录不会被覆盖
func (r *tallyTieRepo) MarkResolved(ctx context.Context, tieID string, resolvedBy string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.TallyTie{}).
		Where("tie_id = ? AND resolved_at IS NULL", tieID).
		Updates(map[string]interface{}{
			"resolved_at": at,
			"resolved_by": resolvedBy,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}
