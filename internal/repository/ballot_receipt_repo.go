package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"nucleo-coop/backend/internal/model"
	pkgerrors "nucleo-coop/backend/pkg/errors"
)

// BallotReceiptRepository 投票回执数据访问接口
type BallotReceiptRepository interface {
	// LockForStudent 确保 (选举, 学生) 回执行存在并加行锁，必须在事务内调用
	// 同一学生的并发投票在此处串行化
	LockForStudent(ctx context.Context, electionID, studentID string) (*model.BallotReceipt, error)
	Get(ctx context.Context, electionID, studentID string) (*model.BallotReceipt, error)
	// MarkVoted 将指定委员会标记置为 true；任一标记已为 true 时不更新并返回 ErrOptimisticLock
	MarkVoted(ctx context.Context, receiptID string, councils []model.Council, at time.Time) error
	Turnout(ctx context.Context, electionID string) (*model.Turnout, error)
}

type ballotReceiptRepo struct {
	db *gorm.DB
}

// NewBallotReceiptRepo 创建 BallotReceiptRepository 实例
func NewBallotReceiptRepo(db *gorm.DB) BallotReceiptRepository {
	return &ballotReceiptRepo{db: db}
}

func (r *ballotReceiptRepo) LockForStudent(ctx context.Context, electionID, studentID string) (*model.BallotReceipt, error) {
	db := r.db.WithContext(ctx)

	seed := &model.BallotReceipt{ElectionID: electionID, StudentID: studentID}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "election_id"}, {Name: "student_id"}},
		DoNothing: true,
	}).Create(seed).Error
	if err != nil {
		if isUniqueViolation(err) {
			return nil, pkgerrors.ErrDuplicate
		}
		return nil, err
	}

	var receipt model.BallotReceipt
	err = db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("election_id = ? AND student_id = ?", electionID, studentID).
		First(&receipt).Error
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (r *ballotReceiptRepo) Get(ctx context.Context, electionID, studentID string) (*model.BallotReceipt, error) {
	var receipt model.BallotReceipt
	err := r.db.WithContext(ctx).
		Where("election_id = ? AND student_id = ?", electionID, studentID).
		First(&receipt).Error
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (r *ballotReceiptRepo) MarkVoted(ctx context.Context, receiptID string, councils []model.Council, at time.Time) error {
	if len(councils) == 0 {
		return nil
	}
	updates := map[string]interface{}{"voted_at": at}
	db := r.db.WithContext(ctx).Model(&model.BallotReceipt{}).Where("receipt_id = ?", receiptID)
	for _, c := range councils {
		col := model.ReceiptColumn(c)
		updates[col] = true
		db = db.Where(col+" = ?", false)
	}

	result := db.Updates(updates)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return pkgerrors.ErrDuplicate
		}
		return result.Error
	}
	if result.RowsAffected != 1 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}

func (r *ballotReceiptRepo) Turnout(ctx context.Context, electionID string) (*model.Turnout, error) {
	var t model.Turnout
	err := r.db.WithContext(ctx).
		Model(&model.BallotReceipt{}).
		Select(`COUNT(*) FILTER (WHERE voted_administration OR voted_fiscal OR voted_ethics) AS voters,
			COUNT(*) FILTER (WHERE voted_administration) AS administration,
			COUNT(*) FILTER (WHERE voted_fiscal) AS fiscal,
			COUNT(*) FILTER (WHERE voted_ethics) AS ethics`).
		Where("election_id = ?", electionID).
		Scan(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}
