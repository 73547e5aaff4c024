package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"nucleo-coop/backend/internal/dto"
	"nucleo-coop/backend/internal/model"
	"nucleo-coop/backend/internal/repository"
	pkgerrors "nucleo-coop/backend/pkg/errors"
	"nucleo-coop/backend/pkg/redis"
)

// ── 计票模块业务错误 ──

var (
	ErrVotingWindowOpen     = errors.New("投票窗口尚未结束，如需提前关闭请使用强制关闭")
	ErrTallyMismatch        = fmt.Errorf("%w: 重新计票结果与已保存结果不一致", pkgerrors.ErrIntegrity)
	ErrTieNotFound          = errors.New("该委员会没有待裁决的平票")
	ErrTieResolutionInvalid = errors.New("平票裁决名单无效：须与票数顺序一致且恰好填满各档席位")
	ErrResultsNotAvailable  = errors.New("选举结束前仅教师和管理员可查看")
)

// ResultsCache 已关闭选举的结果快照缓存
type ResultsCache interface {
	GetResults(ctx context.Context, electionID string) ([]byte, error)
	SetResults(ctx context.Context, electionID string, payload []byte, ttl time.Duration) error
	InvalidateResults(ctx context.Context, electionID string) error
}

// TallyService 计票业务接口
type TallyService interface {
	// CloseElection 关闭选举并计票；已关闭时重新计票并与已保存结果比对，不一致返回 ErrTallyMismatch
	CloseElection(ctx context.Context, electionID string, force bool, callerID string) (*dto.ElectionResultsResponse, error)
	ResolveTie(ctx context.Context, electionID string, req *dto.ResolveTieRequest, callerID string) (*dto.ElectionResultsResponse, error)
	// Results privileged 为教师/管理员：关闭前可查看候选人与投票率（不含票数）
	Results(ctx context.Context, electionID string, privileged bool) (*dto.ElectionResultsResponse, error)
}

type tallyService struct {
	repo     *repository.Repository
	cache    ResultsCache
	cacheTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewTallyService 创建 TallyService 实例；cache 可为 nil
func NewTallyService(repo *repository.Repository, cache ResultsCache, cacheTTL time.Duration, logger *zap.Logger) TallyService {
	return &tallyService{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
		now:      time.Now,
	}
}

// councilTally 单个委员会的计票结果
type councilTally struct {
	council model.Council
	ranked  []RankedCandidate
	tie     *TieError
}

// ────────────────────── CloseElection ──────────────────────

func (s *tallyService) CloseElection(ctx context.Context, electionID string, force bool, callerID string) (*dto.ElectionResultsResponse, error) {
	if !isElectionID(electionID) {
		return nil, ErrElectionNotFound
	}
	now := s.now().UTC()

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		election, err := tx.Election.GetByIDForUpdate(ctx, electionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrElectionNotFound
			}
			return err
		}

		switch election.Status {
		case model.StatusClosed:
			return s.verifyClosed(ctx, tx, election)
		case model.StatusVoting:
			if !force && !election.VotingWindowElapsed(now) {
				return ErrVotingWindowOpen
			}
		default:
			return ErrInvalidTransition
		}

		tallies, candidates, err := s.compute(ctx, tx, election)
		if err != nil {
			return err
		}

		if err := tx.Election.UpdateStatus(ctx, electionID, model.StatusVoting, model.StatusClosed, &now, actorPtr(callerID)); err != nil {
			if errors.Is(err, pkgerrors.ErrOptimisticLock) {
				return ErrInvalidTransition
			}
			return err
		}

		for _, t := range tallies {
			for _, r := range t.ranked {
				var outcome *model.Outcome
				var position *int
				if t.tie == nil {
					o, p := r.Outcome, r.Position
					outcome, position = &o, &p
				}
				if err := tx.Candidate.UpdateTally(ctx, r.CandidateID, r.Votes, outcome, position); err != nil {
					return err
				}
			}
			if t.tie != nil {
				if err := tx.TallyTie.Create(ctx, &model.TallyTie{
					ElectionID:   electionID,
					Council:      t.council,
					CandidateIDs: model.StringArray(t.tie.CandidateIDs),
					VoteCounts:   model.IntArray(t.tie.Votes),
				}); err != nil {
					return err
				}
				s.logger.Warn("计票出现平票，结果待人工裁决",
					zap.String("election_id", electionID),
					zap.String("council", string(t.council)),
					zap.Strings("candidate_ids", t.tie.CandidateIDs),
				)
			}
		}

		s.logger.Info("选举已关闭并完成计票",
			zap.String("election_id", electionID),
			zap.Bool("force", force),
			zap.Int("candidates", len(candidates)),
		)
		return nil
	})
	if err != nil {
		if isTallyBusinessError(err) {
			return nil, err
		}
		s.logger.Error("关闭选举失败", zap.String("election_id", electionID), zap.Error(err))
		return nil, err
	}

	return s.Results(ctx, electionID, true)
}

// compute 从不可变选票账本重新计票
func (s *tallyService) compute(ctx context.Context, tx *repository.Repository, election *model.Election) ([]councilTally, []model.Candidate, error) {
	candidates, err := tx.Candidate.ListByElection(ctx, election.ElectionID)
	if err != nil {
		return nil, nil, err
	}
	counts, err := tx.Vote.CountByElection(ctx, election.ElectionID)
	if err != nil {
		return nil, nil, err
	}
	votes := make(map[string]int, len(counts))
	for _, c := range counts {
		votes[c.CandidateID] = c.Votes
	}

	byCouncil := make(map[model.Council][]CandidateVotes, len(model.Councils))
	for _, cand := range candidates {
		byCouncil[cand.Council] = append(byCouncil[cand.Council], CandidateVotes{
			CandidateID: cand.CandidateID,
			Votes:       votes[cand.CandidateID],
		})
	}

	tallies := make([]councilTally, 0, len(model.Councils))
	for _, c := range model.Councils {
		ranked, err := RankCouncil(c, byCouncil[c], election.Cutoffs(c))
		t := councilTally{council: c, ranked: ranked}
		if err != nil {
			var tieErr *TieError
			if !errors.As(err, &tieErr) {
				return nil, nil, err
			}
			t.tie = tieErr
		}
		tallies = append(tallies, t)
	}
	return tallies, candidates, nil
}

// verifyClosed 已关闭选举重新计票：只比对，不写入
func (s *tallyService) verifyClosed(ctx context.Context, tx *repository.Repository, election *model.Election) error {
	tallies, candidates, err := s.compute(ctx, tx, election)
	if err != nil {
		return err
	}
	ties, err := tx.TallyTie.ListByElection(ctx, election.ElectionID)
	if err != nil {
		return err
	}

	stored := make(map[string]*model.Candidate, len(candidates))
	for i := range candidates {
		stored[candidates[i].CandidateID] = &candidates[i]
	}
	tieOf := make(map[model.Council]*model.TallyTie, len(ties))
	for i := range ties {
		tieOf[ties[i].Council] = &ties[i]
	}

	for _, t := range tallies {
		storedTie := tieOf[t.council]
		if (t.tie == nil) != (storedTie == nil) {
			return s.mismatch(election.ElectionID, t.council, "平票状态不一致")
		}
		for _, r := range t.ranked {
			cand := stored[r.CandidateID]
			if cand.VoteTotal != r.Votes {
				return s.mismatch(election.ElectionID, t.council, "票数不一致")
			}
			switch {
			case t.tie == nil:
				if cand.Outcome == nil || *cand.Outcome != r.Outcome || cand.Position == nil || *cand.Position != r.Position {
					return s.mismatch(election.ElectionID, t.council, "当选结果不一致")
				}
			case !storedTie.Resolved():
				if cand.Outcome != nil {
					return s.mismatch(election.ElectionID, t.council, "平票未裁决但已写入当选结果")
				}
			}
		}
		if storedTie != nil && storedTie.Resolved() {
			if err := s.verifyResolved(election, t, storedTie, stored); err != nil {
				return err
			}
		}
	}
	return nil
}

// verifyResolved 已裁决委员会：平票组须与记录一致，已保存的当选结果须仍是一份合法裁决
func (s *tallyService) verifyResolved(election *model.Election, t councilTally, tie *model.TallyTie, stored map[string]*model.Candidate) error {
	if !sameSet(t.tie.CandidateIDs, tie.CandidateIDs) {
		return s.mismatch(election.ElectionID, t.council, "平票候选人与记录不一致")
	}

	var effective, alternate []string
	for _, r := range t.ranked {
		cand := stored[r.CandidateID]
		if cand.Outcome == nil || cand.Position == nil || *cand.Position != r.Position {
			return s.mismatch(election.ElectionID, t.council, "裁决结果缺失或名次不一致")
		}
		switch *cand.Outcome {
		case model.OutcomeElectedEffective:
			effective = append(effective, r.CandidateID)
		case model.OutcomeElectedAlternate:
			alternate = append(alternate, r.CandidateID)
		}
	}

	if _, err := applyResolution(t.ranked, election.Cutoffs(t.council), effective, alternate); err != nil {
		return s.mismatch(election.ElectionID, t.council, "已保存的裁决结果无效")
	}
	return nil
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	for _, v := range b {
		if _, ok := set[v]; !ok {
			return false
		}
	}
	return true
}

func (s *tallyService) mismatch(electionID string, council model.Council, reason string) error {
	s.logger.Error("重新计票结果与已保存结果不一致",
		zap.String("election_id", electionID),
		zap.String("council", string(council)),
		zap.String("reason", reason),
	)
	return ErrTallyMismatch
}

// ────────────────────── ResolveTie ──────────────────────

func (s *tallyService) ResolveTie(ctx context.Context, electionID string, req *dto.ResolveTieRequest, callerID string) (*dto.ElectionResultsResponse, error) {
	if !isElectionID(electionID) {
		return nil, ErrElectionNotFound
	}
	council, ok := model.ParseCouncil(req.Council)
	if !ok {
		return nil, ErrTieResolutionInvalid
	}
	now := s.now().UTC()

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		election, err := tx.Election.GetByIDForUpdate(ctx, electionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrElectionNotFound
			}
			return err
		}
		if election.Status != model.StatusClosed {
			return ErrTieNotFound
		}

		tie, err := tx.TallyTie.GetForUpdate(ctx, electionID, council)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTieNotFound
			}
			return err
		}
		if tie.Resolved() {
			return ErrTieNotFound
		}

		candidates, err := tx.Candidate.ListByElectionAndCouncil(ctx, electionID, council)
		if err != nil {
			return err
		}
		counts := make([]CandidateVotes, 0, len(candidates))
		for _, c := range candidates {
			counts = append(counts, CandidateVotes{CandidateID: c.CandidateID, Votes: c.VoteTotal})
		}
		ranked, _ := RankCouncil(council, counts, election.Cutoffs(council))

		outcomes, err := applyResolution(ranked, election.Cutoffs(council), req.ElectedEffective, req.ElectedAlternate)
		if err != nil {
			return err
		}

		for _, r := range ranked {
			outcome, position := outcomes[r.CandidateID], r.Position
			if err := tx.Candidate.UpdateTally(ctx, r.CandidateID, r.Votes, &outcome, &position); err != nil {
				return err
			}
		}
		if err := tx.TallyTie.MarkResolved(ctx, tie.TieID, callerID, now); err != nil {
			if errors.Is(err, pkgerrors.ErrOptimisticLock) {
				return ErrTieNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		if isTallyBusinessError(err) {
			return nil, err
		}
		s.logger.Error("平票裁决失败", zap.String("election_id", electionID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("平票已人工裁决",
		zap.String("election_id", electionID),
		zap.String("council", string(council)),
		zap.String("resolved_by", callerID),
	)
	s.invalidate(ctx, electionID)
	return s.Results(ctx, electionID, true)
}

// applyResolution 校验裁决名单：各档人数恰好等于席位（候选人不足时为实际人数），
// 且高档位的任一候选人票数不少于低档位的任一候选人
func applyResolution(ranked []RankedCandidate, cutoffs []int, effective, alternate []string) (map[string]model.Outcome, error) {
	n := len(ranked)
	wantEffective := minInt(cutoffs[0], n)
	wantAlternate := 0
	if len(cutoffs) > 1 {
		wantAlternate = minInt(cutoffs[1], n) - wantEffective
	}
	if len(effective) != wantEffective || len(alternate) != wantAlternate {
		return nil, ErrTieResolutionInvalid
	}

	votes := make(map[string]int, n)
	outcomes := make(map[string]model.Outcome, n)
	for _, r := range ranked {
		votes[r.CandidateID] = r.Votes
		outcomes[r.CandidateID] = model.OutcomeNotElected
	}

	assign := func(ids []string, o model.Outcome) error {
		for _, id := range ids {
			cur, ok := outcomes[id]
			if !ok || cur != model.OutcomeNotElected {
				return ErrTieResolutionInvalid
			}
			outcomes[id] = o
		}
		return nil
	}
	if err := assign(effective, model.OutcomeElectedEffective); err != nil {
		return nil, err
	}
	if err := assign(alternate, model.OutcomeElectedAlternate); err != nil {
		return nil, err
	}

	tier := map[model.Outcome]int{
		model.OutcomeElectedEffective: 0,
		model.OutcomeElectedAlternate: 1,
		model.OutcomeNotElected:       2,
	}
	for a, oa := range outcomes {
		for b, ob := range outcomes {
			if tier[oa] < tier[ob] && votes[a] < votes[b] {
				return nil, ErrTieResolutionInvalid
			}
		}
	}
	return outcomes, nil
}

// ────────────────────── Results ──────────────────────

func (s *tallyService) Results(ctx context.Context, electionID string, privileged bool) (*dto.ElectionResultsResponse, error) {
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

	final := election.Status == model.StatusClosed
	if !final && !privileged {
		return nil, ErrResultsNotAvailable
	}

	if final {
		if cached := s.cached(ctx, electionID); cached != nil {
			return cached, nil
		}
	}

	resp, err := s.buildResults(ctx, election)
	if err != nil {
		s.logger.Error("汇总选举结果失败", zap.String("election_id", electionID), zap.Error(err))
		return nil, err
	}

	if final {
		s.store(ctx, electionID, resp)
	}
	return resp, nil
}

func (s *tallyService) buildResults(ctx context.Context, election *model.Election) (*dto.ElectionResultsResponse, error) {
	final := election.Status == model.StatusClosed

	candidates, err := s.repo.Candidate.ListByElection(ctx, election.ElectionID)
	if err != nil {
		return nil, err
	}
	turnout, err := s.repo.BallotReceipt.Turnout(ctx, election.ElectionID)
	if err != nil {
		return nil, err
	}

	tieOf := make(map[model.Council]*model.TallyTie)
	if final {
		ties, err := s.repo.TallyTie.ListByElection(ctx, election.ElectionID)
		if err != nil {
			return nil, err
		}
		for i := range ties {
			tieOf[ties[i].Council] = &ties[i]
		}
	}

	byCouncil := make(map[model.Council][]model.Candidate, len(model.Councils))
	for _, c := range candidates {
		byCouncil[c.Council] = append(byCouncil[c.Council], c)
	}

	resp := &dto.ElectionResultsResponse{
		ElectionID: election.ElectionID,
		Status:     string(election.Status),
		Final:      final,
		ClosedAt:   dto.FormatTimePtr(election.ClosedAt),
		Turnout: dto.TurnoutResponse{
			Voters:         turnout.Voters,
			Administration: turnout.Administration,
			Fiscal:         turnout.Fiscal,
			Ethics:         turnout.Ethics,
		},
		Councils: make([]dto.CouncilResultResponse, 0, len(model.Councils)),
	}

	for _, council := range model.Councils {
		list := byCouncil[council]
		if final {
			sort.SliceStable(list, func(i, j int) bool {
				if list[i].VoteTotal != list[j].VoteTotal {
					return list[i].VoteTotal > list[j].VoteTotal
				}
				return list[i].CandidateID < list[j].CandidateID
			})
		}

		cr := dto.CouncilResultResponse{
			Council:    string(council),
			Seats:      election.SeatsFor(council),
			Candidates: make([]dto.CandidateResponse, 0, len(list)),
		}
		if council == model.CouncilFiscal {
			cr.AlternateSeats = election.SeatsFiscalAlternate
		}
		if tie := tieOf[council]; tie != nil {
			cr.Tie = &dto.TieResponse{
				CandidateIDs: []string(tie.CandidateIDs),
				VoteCounts:   []int(tie.VoteCounts),
				Resolved:     tie.Resolved(),
				ResolvedAt:   dto.FormatTimePtr(tie.ResolvedAt),
			}
			cr.Withheld = !tie.Resolved()
		}
		for i := range list {
			cr.Candidates = append(cr.Candidates, toCandidateResponse(&list[i], final && !cr.Withheld))
		}
		resp.Councils = append(resp.Councils, cr)
	}
	return resp, nil
}

// ── 结果缓存（缓存不可用时降级为直接查库） ──

func (s *tallyService) cached(ctx context.Context, electionID string) *dto.ElectionResultsResponse {
	if s.cache == nil {
		return nil
	}
	payload, err := s.cache.GetResults(ctx, electionID)
	if err != nil {
		if !errors.Is(err, redis.ErrCacheMiss) {
			s.logger.Warn("读取结果缓存失败", zap.String("election_id", electionID), zap.Error(err))
		}
		return nil
	}
	var resp dto.ElectionResultsResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		s.logger.Warn("结果缓存内容无效", zap.String("election_id", electionID), zap.Error(err))
		return nil
	}
	return &resp
}

func (s *tallyService) store(ctx context.Context, electionID string, resp *dto.ElectionResultsResponse) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := s.cache.SetResults(ctx, electionID, payload, s.cacheTTL); err != nil {
		s.logger.Warn("写入结果缓存失败", zap.String("election_id", electionID), zap.Error(err))
	}
}

func (s *tallyService) invalidate(ctx context.Context, electionID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateResults(ctx, electionID); err != nil {
		s.logger.Warn("清除结果缓存失败", zap.String("election_id", electionID), zap.Error(err))
	}
}

func isTallyBusinessError(err error) bool {
	return errors.Is(err, ErrElectionNotFound) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrVotingWindowOpen) ||
		errors.Is(err, ErrTallyMismatch) ||
		errors.Is(err, ErrTieNotFound) ||
		errors.Is(err, ErrTieResolutionInvalid)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
