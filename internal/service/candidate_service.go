package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"nucleo-coop/backend/internal/dto"
	"nucleo-coop/backend/internal/model"
	"nucleo-coop/backend/internal/repository"
)

// ErrCouncilInvalid 未知委员会
var ErrCouncilInvalid = errors.New("委员会无效")

// CandidateService 候选人查询接口（候选登记由外部系统负责）
type CandidateService interface {
	// List 按委员会分组返回已审核候选人；council 为空时返回全部委员会
	List(ctx context.Context, electionID string, council string) ([]dto.CouncilCandidatesResponse, error)
}

type candidateService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewCandidateService 创建 CandidateService 实例
func NewCandidateService(repo *repository.Repository, logger *zap.Logger) CandidateService {
	return &candidateService{repo: repo, logger: logger}
}

func (s *candidateService) List(ctx context.Context, electionID string, council string) ([]dto.CouncilCandidatesResponse, error) {
	councils := model.Councils
	if council != "" {
		c, ok := model.ParseCouncil(council)
		if !ok {
			return nil, ErrCouncilInvalid
		}
		councils = []model.Council{c}
	}

	if !isElectionID(electionID) {
		return nil, ErrElectionNotFound
	}

	election, err := s.repo.Election.GetByID(ctx, electionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrElectionNotFound
		}
		s.logger.Error("查询选举失败", zap.String("election_id", electionID), zap.Error(err))
		return nil, err
	}
	// 关闭前不暴露票数与结果；平票未裁决的委员会同样不公布
	showTally := election.Status == model.StatusClosed
	withheld := make(map[model.Council]bool)
	if showTally {
		ties, err := s.repo.TallyTie.ListByElection(ctx, electionID)
		if err != nil {
			s.logger.Error("查询平票记录失败", zap.String("election_id", electionID), zap.Error(err))
			return nil, err
		}
		for _, t := range ties {
			if !t.Resolved() {
				withheld[t.Council] = true
			}
		}
	}

	result := make([]dto.CouncilCandidatesResponse, 0, len(councils))
	for _, c := range councils {
		candidates, err := s.repo.Candidate.ListByElectionAndCouncil(ctx, electionID, c)
		if err != nil {
			s.logger.Error("查询候选人失败", zap.String("election_id", electionID), zap.Error(err))
			return nil, err
		}
		group := dto.CouncilCandidatesResponse{
			Council:    string(c),
			Candidates: make([]dto.CandidateResponse, 0, len(candidates)),
		}
		for i := range candidates {
			group.Candidates = append(group.Candidates, toCandidateResponse(&candidates[i], showTally && !withheld[c]))
		}
		result = append(result, group)
	}
	return result, nil
}

func toCandidateResponse(c *model.Candidate, showTally bool) dto.CandidateResponse {
	resp := dto.CandidateResponse{
		ID:        c.CandidateID,
		Council:   string(c.Council),
		StudentID: c.StudentID,
		Platform:  c.Platform,
	}
	if c.Student != nil {
		resp.StudentName = c.Student.Name
	}
	if showTally {
		total := c.VoteTotal
		resp.VoteTotal = &total
		if c.Outcome != nil {
			o := string(*c.Outcome)
			resp.Outcome = &o
		}
		resp.Position = c.Position
	}
	return resp
}
