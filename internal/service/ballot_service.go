package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"nucleo-coop/backend/internal/dto"
	"nucleo-coop/backend/internal/model"
	"nucleo-coop/backend/internal/repository"
	pkgerrors "nucleo-coop/backend/pkg/errors"
)

// ── 投票模块业务错误（均可由客户端处理，原样返回） ──

var (
	ErrElectionNotOpen   = errors.New("选举当前未开放投票")
	ErrAlreadyVoted      = errors.New("你已经投过票")
	ErrInvalidCandidate  = errors.New("候选人不属于该选举或该委员会")
	ErrTooManySelections = errors.New("所选候选人超过该委员会席位数")
	ErrEmptyBallot       = errors.New("选票未包含任何委员会")
)

// BallotService 投票业务接口
type BallotService interface {
	// Submit 原子提交一名学生的整张选票；同一 (学生, 选举) 的并发提交只有一个成功
	Submit(ctx context.Context, electionID, studentID string, req *dto.SubmitBallotRequest) (*dto.BallotResponse, error)
	// Status 查询投票回执；客户端超时后应通过此接口确认，而不是重复提交
	Status(ctx context.Context, electionID, studentID string) (*dto.ReceiptResponse, error)
}

type ballotService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewBallotService 创建 BallotService 实例
func NewBallotService(repo *repository.Repository, logger *zap.Logger) BallotService {
	return &ballotService{repo: repo, logger: logger, now: time.Now}
}

// ballot 解析后的选票
type ballot struct {
	selections map[model.Council][]string
	targeted   []model.Council // 按固定委员会顺序
	unknownKey bool
}

func parseBallot(req *dto.SubmitBallotRequest) *ballot {
	b := &ballot{selections: make(map[model.Council][]string, len(req.Selections))}
	for key, ids := range req.Selections {
		c, ok := model.ParseCouncil(key)
		if !ok {
			b.unknownKey = true
			continue
		}
		b.selections[c] = ids
	}
	for _, c := range model.Councils {
		if _, ok := b.selections[c]; ok {
			b.targeted = append(b.targeted, c)
		}
	}
	return b
}

// ────────────────────── Submit ──────────────────────

func (s *ballotService) Submit(ctx context.Context, electionID, studentID string, req *dto.SubmitBallotRequest) (*dto.BallotResponse, error) {
	if !isElectionID(electionID) {
		return nil, ErrElectionNotOpen
	}
	b := parseBallot(req)
	if len(b.targeted) == 0 && !b.unknownKey {
		return nil, ErrEmptyBallot
	}

	now := s.now().UTC()
	var receipt *model.BallotReceipt
	recorded := make(map[string]int, len(b.targeted))

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		// 1. 选举处于 voting 且在投票窗口内
		election, err := tx.Election.GetByIDForShare(ctx, electionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrElectionNotOpen
			}
			return err
		}
		if election.Status != model.StatusVoting || !election.VotingWindowContains(now) {
			return ErrElectionNotOpen
		}

		// 2. 回执行锁：同一学生的并发提交在此串行化
		receipt, err = tx.BallotReceipt.LockForStudent(ctx, electionID, studentID)
		if err != nil {
			return err
		}
		for _, c := range b.targeted {
			if receipt.Voted(c) {
				return ErrAlreadyVoted
			}
		}

		// 3. 候选人归属校验
		if err := s.validateCandidates(ctx, tx, electionID, b); err != nil {
			return err
		}

		// 4. 席位上限
		for _, c := range b.targeted {
			if len(b.selections[c]) > election.SeatsFor(c) {
				return ErrTooManySelections
			}
		}

		var votes []model.Vote
		for _, c := range b.targeted {
			for _, id := range b.selections[c] {
				votes = append(votes, model.Vote{CandidateID: id, CreatedAt: now})
			}
			recorded[string(c)] = len(b.selections[c])
		}
		if err := tx.Vote.BatchCreate(ctx, votes); err != nil {
			return err
		}

		// 即使某委员会弃权（空选择）也要置位
		if err := tx.BallotReceipt.MarkVoted(ctx, receipt.ReceiptID, b.targeted, now); err != nil {
			if errors.Is(err, pkgerrors.ErrOptimisticLock) {
				return ErrAlreadyVoted
			}
			return err
		}
		for _, c := range b.targeted {
			setVoted(receipt, c)
		}
		receipt.VotedAt = &now
		return nil
	})
	if err != nil {
		// 提交时的唯一约束冲突意味着另一笔并发提交已成功
		if errors.Is(err, pkgerrors.ErrDuplicate) {
			return nil, ErrAlreadyVoted
		}
		if isBallotBusinessError(err) {
			return nil, err
		}
		s.logger.Error("提交选票失败",
			zap.String("election_id", electionID),
			zap.Error(err),
		)
		return nil, err
	}

	return &dto.BallotResponse{
		Receipt:  *toReceiptResponse(electionID, receipt),
		Recorded: recorded,
	}, nil
}

// validateCandidates 未知委员会、非法 ID、重复 ID、不属于该选举或该委员会的候选人均视为无效
func (s *ballotService) validateCandidates(ctx context.Context, tx *repository.Repository, electionID string, b *ballot) error {
	if b.unknownKey {
		return ErrInvalidCandidate
	}

	var ids []string
	for _, c := range b.targeted {
		seen := make(map[string]struct{}, len(b.selections[c]))
		for _, id := range b.selections[c] {
			if _, err := uuid.Parse(id); err != nil {
				return ErrInvalidCandidate
			}
			if _, dup := seen[id]; dup {
				return ErrInvalidCandidate
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	candidates, err := tx.Candidate.ListByIDs(ctx, electionID, ids)
	if err != nil {
		return err
	}
	councilOf := make(map[string]model.Council, len(candidates))
	for _, cand := range candidates {
		councilOf[cand.CandidateID] = cand.Council
	}
	for _, c := range b.targeted {
		for _, id := range b.selections[c] {
			if got, ok := councilOf[id]; !ok || got != c {
				return ErrInvalidCandidate
			}
		}
	}
	return nil
}

// ────────────────────── Status ──────────────────────

func (s *ballotService) Status(ctx context.Context, electionID, studentID string) (*dto.ReceiptResponse, error) {
	if !isElectionID(electionID) {
		return nil, ErrElectionNotFound
	}
	if _, err := s.repo.Election.GetByID(ctx, electionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrElectionNotFound
		}
		s.logger.Error("查询选举失败", zap.String("election_id", electionID), zap.Error(err))
		return nil, err
	}

	receipt, err := s.repo.BallotReceipt.Get(ctx, electionID, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return toReceiptResponse(electionID, &model.BallotReceipt{}), nil
		}
		s.logger.Error("查询投票回执失败", zap.String("election_id", electionID), zap.Error(err))
		return nil, err
	}
	return toReceiptResponse(electionID, receipt), nil
}

// ────────────────────── 内部方法 ──────────────────────

func isBallotBusinessError(err error) bool {
	return errors.Is(err, ErrElectionNotOpen) ||
		errors.Is(err, ErrAlreadyVoted) ||
		errors.Is(err, ErrInvalidCandidate) ||
		errors.Is(err, ErrTooManySelections)
}

func setVoted(r *model.BallotReceipt, c model.Council) {
	switch c {
	case model.CouncilAdministration:
		r.VotedAdministration = true
	case model.CouncilFiscal:
		r.VotedFiscal = true
	case model.CouncilEthics:
		r.VotedEthics = true
	}
}

func toReceiptResponse(electionID string, r *model.BallotReceipt) *dto.ReceiptResponse {
	return &dto.ReceiptResponse{
		ElectionID:          electionID,
		VotedAdministration: r.VotedAdministration,
		VotedFiscal:         r.VotedFiscal,
		VotedEthics:         r.VotedEthics,
		VotedAt:             dto.FormatTimePtr(r.VotedAt),
		HasVoted:            r.Complete(),
	}
}
