package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"nucleo-coop/backend/internal/model"
	"nucleo-coop/backend/internal/repository"
	pkgerrors "nucleo-coop/backend/pkg/errors"
)

// ── 内存存储 ──
//
// 所有 mock 仓储共享同一份 mockStore；mockTx 以全局锁串行化事务，
// 回调返回错误时恢复快照，模拟数据库事务的原子性。

type mockStore struct {
	txMu sync.Mutex // 串行化事务
	mu   sync.Mutex // 保护下列数据

	users      map[string]*model.User
	elections  map[string]*model.Election
	candidates map[string]*model.Candidate
	votes      []model.Vote
	receipts   map[string]*model.BallotReceipt
	ties       map[string]*model.TallyTie
	seq        int

	// 故障注入
	failVoteInsert error
}

func newMockStore() *mockStore {
	return &mockStore{
		users:      make(map[string]*model.User),
		elections:  make(map[string]*model.Election),
		candidates: make(map[string]*model.Candidate),
		receipts:   make(map[string]*model.BallotReceipt),
		ties:       make(map[string]*model.TallyTie),
	}
}

func (s *mockStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

type storeSnapshot struct {
	elections  map[string]model.Election
	candidates map[string]model.Candidate
	votes      []model.Vote
	receipts   map[string]model.BallotReceipt
	ties       map[string]model.TallyTie
}

func (s *mockStore) snapshot() storeSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := storeSnapshot{
		elections:  make(map[string]model.Election, len(s.elections)),
		candidates: make(map[string]model.Candidate, len(s.candidates)),
		votes:      append([]model.Vote(nil), s.votes...),
		receipts:   make(map[string]model.BallotReceipt, len(s.receipts)),
		ties:       make(map[string]model.TallyTie, len(s.ties)),
	}
	for k, v := range s.elections {
		snap.elections[k] = *v
	}
	for k, v := range s.candidates {
		snap.candidates[k] = *v
	}
	for k, v := range s.receipts {
		snap.receipts[k] = *v
	}
	for k, v := range s.ties {
		snap.ties[k] = *v
	}
	return snap
}

func (s *mockStore) restore(snap storeSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elections = make(map[string]*model.Election, len(snap.elections))
	for k, v := range snap.elections {
		v := v
		s.elections[k] = &v
	}
	s.candidates = make(map[string]*model.Candidate, len(snap.candidates))
	for k, v := range snap.candidates {
		v := v
		s.candidates[k] = &v
	}
	s.votes = snap.votes
	s.receipts = make(map[string]*model.BallotReceipt, len(snap.receipts))
	for k, v := range snap.receipts {
		v := v
		s.receipts[k] = &v
	}
	s.ties = make(map[string]*model.TallyTie, len(snap.ties))
	for k, v := range snap.ties {
		v := v
		s.ties[k] = &v
	}
}

// newMockRepository 组装基于同一存储的 Repository 聚合
func newMockRepository(store *mockStore) *repository.Repository {
	repo := &repository.Repository{
		User:          &mockUserRepo{store: store},
		Election:      &mockElectionRepo{store: store},
		Candidate:     &mockCandidateRepo{store: store},
		Vote:          &mockVoteRepo{store: store},
		BallotReceipt: &mockBallotReceiptRepo{store: store},
		TallyTie:      &mockTallyTieRepo{store: store},
	}
	repo.Tx = &mockTx{store: store, repo: repo}
	return repo
}

// ── Mock Transactor ──

type mockTx struct {
	store *mockStore
	repo  *repository.Repository
}

func (t *mockTx) Transaction(_ context.Context, fn func(txRepo *repository.Repository) error) error {
	t.store.txMu.Lock()
	defer t.store.txMu.Unlock()

	snap := t.store.snapshot()
	if err := fn(t.repo); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

// ── Mock UserRepository ──

type mockUserRepo struct {
	store *mockStore
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if u, ok := m.store.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, u := range m.store.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock ElectionRepository ──

type mockElectionRepo struct {
	store *mockStore
}

func (m *mockElectionRepo) Create(_ context.Context, e *model.Election) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, existing := range m.store.elections {
		if existing.ClassID == e.ClassID && existing.Status != model.StatusClosed {
			return pkgerrors.ErrDuplicate
		}
	}
	if e.ElectionID == "" {
		e.ElectionID = uuid.NewString()
	}
	if e.Status == "" {
		e.Status = model.StatusConfiguration
	}
	e.Version = 1
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	cp := *e
	m.store.elections[e.ElectionID] = &cp
	return nil
}

func (m *mockElectionRepo) GetByID(_ context.Context, id string) (*model.Election, error) {
	// 与 PostgreSQL 一致：uuid 列与非法文本比较时报 22P02，而不是未找到
	if _, err := uuid.Parse(id); err != nil {
		return nil, &pgconn.PgError{Code: "22P02", Message: "invalid input syntax for type uuid"}
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if e, ok := m.store.elections[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockElectionRepo) GetByIDForShare(ctx context.Context, id string) (*model.Election, error) {
	return m.GetByID(ctx, id)
}

func (m *mockElectionRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Election, error) {
	return m.GetByID(ctx, id)
}

func (m *mockElectionRepo) List(_ context.Context, filter repository.ElectionFilter) ([]model.Election, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var result []model.Election
	for _, e := range m.store.elections {
		if filter.ClassID != "" && e.ClassID != filter.ClassID {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		result = append(result, *e)
	}
	return result, nil
}

func (m *mockElectionRepo) ListNonTerminal(_ context.Context) ([]model.Election, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var result []model.Election
	for _, e := range m.store.elections {
		if e.Status != model.StatusClosed {
			result = append(result, *e)
		}
	}
	return result, nil
}

func (m *mockElectionRepo) ExistsOpenForClass(_ context.Context, classID, excludeID string) (bool, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for id, e := range m.store.elections {
		if id != excludeID && e.ClassID == classID && e.Status != model.StatusClosed {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockElectionRepo) Update(_ context.Context, e *model.Election) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	cur, ok := m.store.elections[e.ElectionID]
	if !ok || cur.Version != e.Version {
		return pkgerrors.ErrOptimisticLock
	}
	e.Version++
	cp := *e
	cp.Status = cur.Status
	m.store.elections[e.ElectionID] = &cp
	return nil
}

func (m *mockElectionRepo) UpdateStatus(_ context.Context, id string, from, to model.ElectionStatus, closedAt *time.Time, _ *string) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	e, ok := m.store.elections[id]
	if !ok || e.Status != from {
		return pkgerrors.ErrOptimisticLock
	}
	e.Status = to
	e.Version++
	if closedAt != nil {
		t := *closedAt
		e.ClosedAt = &t
	}
	return nil
}

func (m *mockElectionRepo) Delete(_ context.Context, id string, _ string) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	delete(m.store.elections, id)
	return nil
}

// ── Mock CandidateRepository ──

type mockCandidateRepo struct {
	store *mockStore
}

func (m *mockCandidateRepo) list(match func(c *model.Candidate) bool) []model.Candidate {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var result []model.Candidate
	for _, c := range m.store.candidates {
		if c.Approved && match(c) {
			result = append(result, *c)
		}
	}
	return result
}

func (m *mockCandidateRepo) ListByElectionAndCouncil(_ context.Context, electionID string, council model.Council) ([]model.Candidate, error) {
	return m.list(func(c *model.Candidate) bool {
		return c.ElectionID == electionID && c.Council == council
	}), nil
}

func (m *mockCandidateRepo) ListByElection(_ context.Context, electionID string) ([]model.Candidate, error) {
	return m.list(func(c *model.Candidate) bool { return c.ElectionID == electionID }), nil
}

func (m *mockCandidateRepo) ListByIDs(_ context.Context, electionID string, ids []string) ([]model.Candidate, error) {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return m.list(func(c *model.Candidate) bool {
		return c.ElectionID == electionID && set[c.CandidateID]
	}), nil
}

func (m *mockCandidateRepo) UpdateTally(_ context.Context, candidateID string, voteTotal int, outcome *model.Outcome, position *int) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	c, ok := m.store.candidates[candidateID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.VoteTotal = voteTotal
	c.Outcome = outcome
	c.Position = position
	return nil
}

// ── Mock VoteRepository ──

type mockVoteRepo struct {
	store *mockStore
}

func (m *mockVoteRepo) BatchCreate(_ context.Context, votes []model.Vote) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if m.store.failVoteInsert != nil {
		return m.store.failVoteInsert
	}
	for _, v := range votes {
		v.VoteID = m.store.nextID("vote")
		m.store.votes = append(m.store.votes, v)
	}
	return nil
}

func (m *mockVoteRepo) CountByElection(_ context.Context, electionID string) ([]model.VoteCount, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	counts := make(map[string]int)
	for _, v := range m.store.votes {
		if c, ok := m.store.candidates[v.CandidateID]; ok && c.ElectionID == electionID {
			counts[v.CandidateID]++
		}
	}
	var result []model.VoteCount
	for id, n := range counts {
		result = append(result, model.VoteCount{CandidateID: id, Votes: n})
	}
	return result, nil
}

// ── Mock BallotReceiptRepository ──

type mockBallotReceiptRepo struct {
	store *mockStore
}

func receiptKey(electionID, studentID string) string {
	return electionID + "|" + studentID
}

func (m *mockBallotReceiptRepo) LockForStudent(_ context.Context, electionID, studentID string) (*model.BallotReceipt, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	key := receiptKey(electionID, studentID)
	r, ok := m.store.receipts[key]
	if !ok {
		r = &model.BallotReceipt{
			ReceiptID:  m.store.nextID("receipt"),
			ElectionID: electionID,
			StudentID:  studentID,
			CreatedAt:  time.Now(),
		}
		m.store.receipts[key] = r
	}
	cp := *r
	return &cp, nil
}

func (m *mockBallotReceiptRepo) Get(_ context.Context, electionID, studentID string) (*model.BallotReceipt, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if r, ok := m.store.receipts[receiptKey(electionID, studentID)]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockBallotReceiptRepo) MarkVoted(_ context.Context, receiptID string, councils []model.Council, at time.Time) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, r := range m.store.receipts {
		if r.ReceiptID != receiptID {
			continue
		}
		for _, c := range councils {
			if r.Voted(c) {
				return pkgerrors.ErrOptimisticLock
			}
		}
		for _, c := range councils {
			setVoted(r, c)
		}
		t := at
		r.VotedAt = &t
		return nil
	}
	return pkgerrors.ErrOptimisticLock
}

func (m *mockBallotReceiptRepo) Turnout(_ context.Context, electionID string) (*model.Turnout, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var t model.Turnout
	for _, r := range m.store.receipts {
		if r.ElectionID != electionID {
			continue
		}
		if r.VotedAdministration || r.VotedFiscal || r.VotedEthics {
			t.Voters++
		}
		if r.VotedAdministration {
			t.Administration++
		}
		if r.VotedFiscal {
			t.Fiscal++
		}
		if r.VotedEthics {
			t.Ethics++
		}
	}
	return &t, nil
}

// ── Mock TallyTieRepository ──

type mockTallyTieRepo struct {
	store *mockStore
}

func tieKey(electionID string, council model.Council) string {
	return electionID + "|" + string(council)
}

func (m *mockTallyTieRepo) Create(_ context.Context, tie *model.TallyTie) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	key := tieKey(tie.ElectionID, tie.Council)
	if _, ok := m.store.ties[key]; ok {
		return pkgerrors.ErrDuplicate
	}
	tie.TieID = m.store.nextID("tie")
	cp := *tie
	m.store.ties[key] = &cp
	return nil
}

func (m *mockTallyTieRepo) ListByElection(_ context.Context, electionID string) ([]model.TallyTie, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var result []model.TallyTie
	for _, t := range m.store.ties {
		if t.ElectionID == electionID {
			result = append(result, *t)
		}
	}
	return result, nil
}

func (m *mockTallyTieRepo) GetForUpdate(_ context.Context, electionID string, council model.Council) (*model.TallyTie, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if t, ok := m.store.ties[tieKey(electionID, council)]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTallyTieRepo) MarkResolved(_ context.Context, tieID string, resolvedBy string, at time.Time) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, t := range m.store.ties {
		if t.TieID == tieID {
			if t.ResolvedAt != nil {
				return pkgerrors.ErrOptimisticLock
			}
			ts, by := at, resolvedBy
			t.ResolvedAt = &ts
			t.ResolvedBy = &by
			return nil
		}
	}
	return pkgerrors.ErrOptimisticLock
}

// ── 测试数据构造 ──

var errStorage = errors.New("模拟存储故障")

// seedElection 写入一个选举（默认 voting，席位 3/3/3/3，无时间窗口）
func seedElection(store *mockStore, mutate func(e *model.Election)) *model.Election {
	e := &model.Election{
		ElectionID:           uuid.NewString(),
		ClassID:              uuid.NewString(),
		Status:               model.StatusVoting,
		SeatsAdministration:  3,
		SeatsFiscalEffective: 3,
		SeatsFiscalAlternate: 3,
		SeatsEthics:          3,
	}
	e.Version = 1
	if mutate != nil {
		mutate(e)
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	cp := *e
	store.elections[e.ElectionID] = &cp
	return e
}

// seedCandidates 为选举的某个委员会写入 n 名已审核候选人
func seedCandidates(store *mockStore, electionID string, council model.Council, n int) []string {
	store.mu.Lock()
	defer store.mu.Unlock()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := uuid.NewString()
		store.candidates[id] = &model.Candidate{
			CandidateID: id,
			ElectionID:  electionID,
			Council:     council,
			StudentID:   uuid.NewString(),
			Approved:    true,
			CreatedAt:   time.Now(),
		}
		ids = append(ids, id)
	}
	return ids
}

// seedVotes 直接向账本追加选票
func seedVotes(store *mockStore, candidateID string, n int) {
	store.mu.Lock()
	defer store.mu.Unlock()
	for i := 0; i < n; i++ {
		store.votes = append(store.votes, model.Vote{VoteID: store.nextID("vote"), CandidateID: candidateID})
	}
}

// countVotes 统计某些候选人的选票数
func countVotes(store *mockStore, candidateIDs ...string) int {
	store.mu.Lock()
	defer store.mu.Unlock()
	set := make(map[string]bool, len(candidateIDs))
	for _, id := range candidateIDs {
		set[id] = true
	}
	n := 0
	for _, v := range store.votes {
		if set[v.CandidateID] {
			n++
		}
	}
	return n
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
