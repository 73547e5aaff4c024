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

// ── 选举模块业务错误 ──

var (
	ErrElectionNotFound    = errors.New("选举不存在")
	ErrElectionOverlap     = errors.New("该班级已有未结束的选举")
	ErrElectionLocked      = errors.New("选举已进入竞选或投票阶段，不可修改或删除")
	ErrElectionDateInvalid = errors.New("选举时间窗口无效：开始须早于结束，且报名、竞选、投票依次排列")
	ErrSeatsInvalid        = errors.New("行政委员会、监事会正式席位与道德委员会席位至少为 1")
	ErrInvalidTransition   = errors.New("当前状态不允许该状态迁移")
)

const defaultSeats = 3

// ElectionService 选举业务接口
type ElectionService interface {
	Create(ctx context.Context, req *dto.CreateElectionRequest, callerID string) (*dto.ElectionResponse, error)
	GetByID(ctx context.Context, id string) (*dto.ElectionResponse, error)
	List(ctx context.Context, req *dto.ListElectionsRequest) ([]dto.ElectionResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateElectionRequest, callerID string) (*dto.ElectionResponse, error)
	Delete(ctx context.Context, id string, callerID string) error
	// AdvanceStatus 迁移到下一状态；expected 非空时要求当前状态与之一致（调度器重复触发时保持幂等）
	// voting → closed 必须走 TallyService.CloseElection
	AdvanceStatus(ctx context.Context, id string, expected *model.ElectionStatus, callerID string) (*dto.ElectionResponse, error)
}

type electionService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewElectionService 创建 ElectionService 实例
func NewElectionService(repo *repository.Repository, logger *zap.Logger) ElectionService {
	return &electionService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *electionService) Create(ctx context.Context, req *dto.CreateElectionRequest, callerID string) (*dto.ElectionResponse, error) {
	election := &model.Election{
		ClassID:              req.ClassID,
		Title:                req.Title,
		Status:               model.StatusConfiguration,
		SeatsAdministration:  intOr(req.SeatsAdministration, defaultSeats),
		SeatsFiscalEffective: intOr(req.SeatsFiscalEffective, defaultSeats),
		SeatsFiscalAlternate: intOr(req.SeatsFiscalAlternate, defaultSeats),
		SeatsEthics:          intOr(req.SeatsEthics, defaultSeats),
	}
	applyWindows(election, &req.ElectionWindows)

	if err := validateElection(election); err != nil {
		return nil, err
	}

	exists, err := s.repo.Election.ExistsOpenForClass(ctx, req.ClassID, "")
	if err != nil {
		s.logger.Error("检查班级未结束选举失败", zap.Error(err))
		return nil, err
	}
	if exists {
		return nil, ErrElectionOverlap
	}

	election.CreatedBy = &callerID
	election.UpdatedBy = &callerID
	if err := s.repo.Election.Create(ctx, election); err != nil {
		// 并发创建时由部分唯一索引兜底
		if errors.Is(err, pkgerrors.ErrDuplicate) {
			return nil, ErrElectionOverlap
		}
		s.logger.Error("创建选举失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("选举已创建",
		zap.String("election_id", election.ElectionID),
		zap.String("class_id", election.ClassID),
	)
	return toElectionResponse(election), nil
}

// ────────────────────── GetByID / List ──────────────────────

func (s *electionService) GetByID(ctx context.Context, id string) (*dto.ElectionResponse, error) {
	election, err := s.getElection(ctx, id)
	if err != nil {
		return nil, err
	}
	return toElectionResponse(election), nil
}

func (s *electionService) List(ctx context.Context, req *dto.ListElectionsRequest) ([]dto.ElectionResponse, error) {
	elections, err := s.repo.Election.List(ctx, repository.ElectionFilter{
		ClassID: req.ClassID,
		Status:  model.ElectionStatus(req.Status),
	})
	if err != nil {
		s.logger.Error("查询选举列表失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.ElectionResponse, 0, len(elections))
	for i := range elections {
		result = append(result, *toElectionResponse(&elections[i]))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *electionService) Update(ctx context.Context, id string, req *dto.UpdateElectionRequest, callerID string) (*dto.ElectionResponse, error) {
	election, err := s.getElection(ctx, id)
	if err != nil {
		return nil, err
	}
	if !editable(election.Status) {
		return nil, ErrElectionLocked
	}
	if election.Version != req.Version {
		return nil, pkgerrors.ErrOptimisticLock
	}

	if req.Title != nil {
		election.Title = *req.Title
	}
	if req.SeatsAdministration != nil {
		election.SeatsAdministration = *req.SeatsAdministration
	}
	if req.SeatsFiscalEffective != nil {
		election.SeatsFiscalEffective = *req.SeatsFiscalEffective
	}
	if req.SeatsFiscalAlternate != nil {
		election.SeatsFiscalAlternate = *req.SeatsFiscalAlternate
	}
	if req.SeatsEthics != nil {
		election.SeatsEthics = *req.SeatsEthics
	}
	if req.Windows != nil {
		applyWindows(election, req.Windows)
	}

	if err := validateElection(election); err != nil {
		return nil, err
	}

	election.UpdatedBy = &callerID
	if err := s.repo.Election.Update(ctx, election); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, err
		}
		s.logger.Error("更新选举失败", zap.String("election_id", id), zap.Error(err))
		return nil, err
	}
	return toElectionResponse(election), nil
}

// ────────────────────── Delete ──────────────────────

func (s *electionService) Delete(ctx context.Context, id string, callerID string) error {
	election, err := s.getElection(ctx, id)
	if err != nil {
		return err
	}
	// 已产生选票或已出结果的选举不可删除
	if election.Status == model.StatusVoting || election.Status == model.StatusClosed {
		return ErrElectionLocked
	}

	if err := s.repo.Election.Delete(ctx, id, callerID); err != nil {
		s.logger.Error("删除选举失败", zap.String("election_id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── AdvanceStatus ──────────────────────

func (s *electionService) AdvanceStatus(ctx context.Context, id string, expected *model.ElectionStatus, callerID string) (*dto.ElectionResponse, error) {
	if !isElectionID(id) {
		return nil, ErrElectionNotFound
	}
	var updated *model.Election

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		election, err := tx.Election.GetByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrElectionNotFound
			}
			return err
		}
		if expected != nil && election.Status != *expected {
			return ErrInvalidTransition
		}

		next, ok := election.Status.Next()
		if !ok || next == model.StatusClosed {
			return ErrInvalidTransition
		}

		if err := tx.Election.UpdateStatus(ctx, id, election.Status, next, nil, actorPtr(callerID)); err != nil {
			if errors.Is(err, pkgerrors.ErrOptimisticLock) {
				return ErrInvalidTransition
			}
			return err
		}

		election.Status = next
		election.Version++
		updated = election
		return nil
	})
	if err != nil {
		if isElectionBusinessError(err) {
			return nil, err
		}
		s.logger.Error("选举状态迁移失败", zap.String("election_id", id), zap.Error(err))
		return nil, err
	}

	s.logger.Info("选举状态已迁移",
		zap.String("election_id", id),
		zap.String("status", string(updated.Status)),
	)
	return toElectionResponse(updated), nil
}

// ────────────────────── 内部方法 ──────────────────────

func (s *electionService) getElection(ctx context.Context, id string) (*model.Election, error) {
	if !isElectionID(id) {
		return nil, ErrElectionNotFound
	}
	election, err := s.repo.Election.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrElectionNotFound
		}
		s.logger.Error("查询选举失败", zap.String("election_id", id), zap.Error(err))
		return nil, err
	}
	return election, nil
}

// isElectionID 选举 ID 须为 UUID；非法 ID 直接视为不存在，避免数据库类型转换错误
func isElectionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// editable 席位与时间窗口只能在候选人开始竞选前修改
func editable(status model.ElectionStatus) bool {
	return status == model.StatusConfiguration || status == model.StatusRegistration
}

func isElectionBusinessError(err error) bool {
	return errors.Is(err, ErrElectionNotFound) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrElectionOverlap)
}

func validateElection(e *model.Election) error {
	if e.SeatsAdministration < 1 || e.SeatsFiscalEffective < 1 || e.SeatsEthics < 1 || e.SeatsFiscalAlternate < 0 {
		return ErrSeatsInvalid
	}
	return validateWindows(e)
}

// validateWindows 每个窗口开始早于结束；已配置的时间点按 报名 → 竞选 → 投票 单调不减
func validateWindows(e *model.Election) error {
	pairs := [][2]*time.Time{
		{e.RegistrationStartsAt, e.RegistrationEndsAt},
		{e.CampaignStartsAt, e.CampaignEndsAt},
		{e.VotingStartsAt, e.VotingEndsAt},
	}

	var last *time.Time
	for _, p := range pairs {
		if p[0] != nil && p[1] != nil && !p[0].Before(*p[1]) {
			return ErrElectionDateInvalid
		}
		for _, t := range p {
			if t == nil {
				continue
			}
			if last != nil && t.Before(*last) {
				return ErrElectionDateInvalid
			}
			last = t
		}
	}
	return nil
}

func applyWindows(e *model.Election, w *dto.ElectionWindows) {
	e.RegistrationStartsAt = utcPtr(w.RegistrationStartsAt)
	e.RegistrationEndsAt = utcPtr(w.RegistrationEndsAt)
	e.CampaignStartsAt = utcPtr(w.CampaignStartsAt)
	e.CampaignEndsAt = utcPtr(w.CampaignEndsAt)
	e.VotingStartsAt = utcPtr(w.VotingStartsAt)
	e.VotingEndsAt = utcPtr(w.VotingEndsAt)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// actorPtr 调度器触发时无操作人，审计字段留空
func actorPtr(callerID string) *string {
	if callerID == "" {
		return nil
	}
	return &callerID
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func toElectionResponse(e *model.Election) *dto.ElectionResponse {
	resp := &dto.ElectionResponse{
		ID:                   e.ElectionID,
		ClassID:              e.ClassID,
		Title:                e.Title,
		Status:               string(e.Status),
		SeatsAdministration:  e.SeatsAdministration,
		SeatsFiscalEffective: e.SeatsFiscalEffective,
		SeatsFiscalAlternate: e.SeatsFiscalAlternate,
		SeatsEthics:          e.SeatsEthics,
		RegistrationStartsAt: dto.FormatTimePtr(e.RegistrationStartsAt),
		RegistrationEndsAt:   dto.FormatTimePtr(e.RegistrationEndsAt),
		CampaignStartsAt:     dto.FormatTimePtr(e.CampaignStartsAt),
		CampaignEndsAt:       dto.FormatTimePtr(e.CampaignEndsAt),
		VotingStartsAt:       dto.FormatTimePtr(e.VotingStartsAt),
		VotingEndsAt:         dto.FormatTimePtr(e.VotingEndsAt),
		ClosedAt:             dto.FormatTimePtr(e.ClosedAt),
		Version:              e.Version,
		CreatedAt:            dto.FormatTime(e.CreatedAt),
		UpdatedAt:            dto.FormatTime(e.UpdatedAt),
	}
	if next, ok := e.Status.Next(); ok {
		n := string(next)
		resp.NextStatus = &n
	}
	return resp
}
