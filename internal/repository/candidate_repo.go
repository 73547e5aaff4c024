package repository

import (
	"context"

	"gorm.io/gorm"

	"nucleo-coop/backend/internal/model"
)

// CandidateRepository 候选人数据访问接口
// 候选人由外部登记系统写入，本服务只读取已审核候选人并在计票时回写结果
type CandidateRepository interface {
	ListByElectionAndCouncil(ctx context.Context, electionID string, council model.Council) ([]model.Candidate, error)
	ListByElection(ctx context.Context, electionID string) ([]model.Candidate, error)
	ListByIDs(ctx context.Context, electionID string, ids []string) ([]model.Candidate, error)
	UpdateTally(ctx context.Context, candidateID string, voteTotal int, outcome *model.Outcome, position *int) error
}

type candidateRepo struct {
	db *gorm.DB
}

// NewCandidateRepo 创建 CandidateRepository 实例
func NewCandidateRepo(db *gorm.DB) CandidateRepository {
	return &candidateRepo{db: db}
}

func (r *candidateRepo) ListByElectionAndCouncil(ctx context.Context, electionID string, council model.Council) ([]model.Candidate, error) {
	var candidates []model.Candidate
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("election_id = ? AND council = ? AND approved = ?", electionID, council, true).
		Order("created_at ASC, candidate_id ASC").
		Find(&candidates).Error
	return candidates, err
}

func (r *candidateRepo) ListByElection(ctx context.Context, electionID string) ([]model.Candidate, error) {
	var candidates []model.Candidate
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("election_id = ? AND approved = ?", electionID, true).
		Order("council ASC, created_at ASC, candidate_id ASC").
		Find(&candidates).Error
	return candidates, err
}

// ListByIDs 按 ID 批量读取该选举下已审核的候选人，不存在或未审核的 ID 不会返回
func (r *candidateRepo) ListByIDs(ctx context.Context, electionID string, ids []string) ([]model.Candidate, error) {
	var candidates []model.Candidate
	if len(ids) == 0 {
		return candidates, nil
	}
	err := r.db.WithContext(ctx).
		Where("election_id = ? AND approved = ? AND candidate_id IN ?", electionID, true, ids).
		Find(&candidates).Error
	return candidates, err
}

func (r *candidateRepo) UpdateTally(ctx context.Context, candidateID string, voteTotal int, outcome *model.Outcome, position *int) error {
	return r.db.WithContext(ctx).
		Model(&model.Candidate{}).
		Where("candidate_id = ?", candidateID).
		Updates(map[string]interface{}{
			"vote_total": voteTotal,
			"outcome":    outcome,
			"position":   position,
			"updated_at": gorm.Expr("NOW()"),
		}).Error
}
