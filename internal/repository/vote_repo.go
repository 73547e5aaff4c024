package repository

import (
	"context"

	"gorm.io/gorm"

	"nucleo-coop/backend/internal/model"
)

// VoteRepository 匿名选票账本：只追加，只由投票事务写入
type VoteRepository interface {
	BatchCreate(ctx context.Context, votes []model.Vote) error
	// CountByElection 按候选人聚合该选举的票数（无票的候选人不出现）
	CountByElection(ctx context.Context, electionID string) ([]model.VoteCount, error)
}

type voteRepo struct {
	db *gorm.DB
}

// NewVoteRepo 创建 VoteRepository 实例
func NewVoteRepo(db *gorm.DB) VoteRepository {
	return &voteRepo{db: db}
}

func (r *voteRepo) BatchCreate(ctx context.Context, votes []model.Vote) error {
	if len(votes) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&votes).Error
}

func (r *voteRepo) CountByElection(ctx context.Context, electionID string) ([]model.VoteCount, error) {
	var counts []model.VoteCount
	err := r.db.WithContext(ctx).
		Table("votes v").
		Select("v.candidate_id AS candidate_id, COUNT(*) AS votes").
		Joins("JOIN candidates c ON c.candidate_id = v.candidate_id").
		Where("c.election_id = ?", electionID).
		Group("v.candidate_id").
		Scan(&counts).Error
	return counts, err
}
