package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"nucleo-coop/backend/internal/model"
	pkgerrors "nucleo-coop/backend/pkg/errors"
)

// ElectionFilter 选举列表筛选条件
type ElectionFilter struct {
	ClassID string
	Status  model.ElectionStatus
}

// ElectionRepository 选举数据访问接口
type ElectionRepository interface {
	Create(ctx context.Context, election *model.Election) error
	GetByID(ctx context.Context, id string) (*model.Election, error)
	// GetByIDForShare 共享锁读取：投票事务之间互不阻塞，但会阻塞并发的关闭操作
	GetByIDForShare(ctx context.Context, id string) (*model.Election, error)
	// GetByIDForUpdate 排他锁读取：用于状态迁移与关闭
	GetByIDForUpdate(ctx context.Context, id string) (*model.Election, error)
	List(ctx context.Context, filter ElectionFilter) ([]model.Election, error)
	ListNonTerminal(ctx context.Context) ([]model.Election, error)
	ExistsOpenForClass(ctx context.Context, classID, excludeID string) (bool, error)
	Update(ctx context.Context, election *model.Election) error
	UpdateStatus(ctx context.Context, id string, from, to model.ElectionStatus, closedAt *time.Time, updatedBy *string) error
	Delete(ctx context.Context, id string, deletedBy string) error
}

type electionRepo struct {
	db *gorm.DB
}

// NewElectionRepo 创建 ElectionRepository 实例
func NewElectionRepo(db *gorm.DB) ElectionRepository {
	return &electionRepo{db: db}
}

func (r *electionRepo) Create(ctx context.Context, election *model.Election) error {
	err := r.db.WithContext(ctx).Create(election).Error
	if isUniqueViolation(err) {
		return pkgerrors.ErrDuplicate
	}
	return err
}

func (r *electionRepo) GetByID(ctx context.Context, id string) (*model.Election, error) {
	return r.get(r.db.WithContext(ctx), id)
}

func (r *electionRepo) GetByIDForShare(ctx context.Context, id string) (*model.Election, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "SHARE"}), id)
}

func (r *electionRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Election, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *electionRepo) get(db *gorm.DB, id string) (*model.Election, error) {
	var election model.Election
	err := db.Where("election_id = ?", id).First(&election).Error
	if err != nil {
		return nil, err
	}
	return &election, nil
}

func (r *electionRepo) List(ctx context.Context, filter ElectionFilter) ([]model.Election, error) {
	var elections []model.Election
	db := r.db.WithContext(ctx).Model(&model.Election{})
	if filter.ClassID != "" {
		db = db.Where("class_id = ?", filter.ClassID)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	err := db.Order("created_at DESC").Find(&elections).Error
	return elections, err
}

func (r *electionRepo) ListNonTerminal(ctx context.Context) ([]model.Election, error) {
	var elections []model.Election
	err := r.db.WithContext(ctx).
		Where("status <> ?", model.StatusClosed).
		Order("created_at ASC").
		Find(&elections).Error
	return elections, err
}

func (r *electionRepo) ExistsOpenForClass(ctx context.Context, classID, excludeID string) (bool, error) {
	var count int64
	db := r.db.WithContext(ctx).
		Model(&model.Election{}).
		Where("class_id = ? AND status <> ?", classID, model.StatusClosed)
	if excludeID != "" {
		db = db.Where("election_id <> ?", excludeID)
	}
	if err := db.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Update 更新席位与时间窗口（乐观锁），不修改状态
func (r *electionRepo) Update(ctx context.Context, election *model.Election) error {
	oldVersion := election.Version
	result := r.db.WithContext(ctx).
		Model(&model.Election{}).
		Where("election_id = ? AND version = ?", election.ElectionID, oldVersion).
		Updates(map[string]interface{}{
			"title":                  election.Title,
			"seats_administration":   election.SeatsAdministration,
			"seats_fiscal_effective": election.SeatsFiscalEffective,
			"seats_fiscal_alternate": election.SeatsFiscalAlternate,
			"seats_ethics":           election.SeatsEthics,
			"registration_starts_at": election.RegistrationStartsAt,
			"registration_ends_at":   election.RegistrationEndsAt,
			"campaign_starts_at":     election.CampaignStartsAt,
			"campaign_ends_at":       election.CampaignEndsAt,
			"voting_starts_at":       election.VotingStartsAt,
			"voting_ends_at":         election.VotingEndsAt,
			"updated_by":             election.UpdatedBy,
			"version":                oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	election.Version = oldVersion + 1
	return nil
}

// UpdateStatus 条件更新状态：仅当当前状态仍为 from 时生效，否则返回 ErrOptimisticLock
func (r *electionRepo) UpdateStatus(ctx context.Context, id string, from, to model.ElectionStatus, closedAt *time.Time, updatedBy *string) error {
	updates := map[string]interface{}{
		"status":     to,
		"updated_by": updatedBy,
		"version":    gorm.Expr("version + 1"),
	}
	if closedAt != nil {
		updates["closed_at"] = closedAt
	}
	result := r.db.WithContext(ctx).
		Model(&model.Election{}).
		Where("election_id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return pkgerrors.ErrDuplicate
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}

func (r *electionRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.Election{}).
		Where("election_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}
