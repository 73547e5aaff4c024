package model

import "time"

// ── 选举状态机 ──

// ElectionStatus 选举状态
// configuration → registration → campaign → voting → closed，不可跳跃、不可回退
type ElectionStatus string

const (
	StatusConfiguration ElectionStatus = "configuration"
	StatusRegistration  ElectionStatus = "registration"
	StatusCampaign      ElectionStatus = "campaign"
	StatusVoting        ElectionStatus = "voting"
	StatusClosed        ElectionStatus = "closed"
)

// statusTransitions 合法状态迁移表：key 为当前状态，value 为唯一允许的下一状态
var statusTransitions = map[ElectionStatus]ElectionStatus{
	StatusConfiguration: StatusRegistration,
	StatusRegistration:  StatusCampaign,
	StatusCampaign:      StatusVoting,
	StatusVoting:        StatusClosed,
}

// Valid 是否为已知状态
func (s ElectionStatus) Valid() bool {
	switch s {
	case StatusConfiguration, StatusRegistration, StatusCampaign, StatusVoting, StatusClosed:
		return true
	}
	return false
}

// Next 返回下一状态；closed 为终态，返回 false
func (s ElectionStatus) Next() (ElectionStatus, bool) {
	next, ok := statusTransitions[s]
	return next, ok
}

// CanTransitionTo 判断是否允许迁移到 target
func (s ElectionStatus) CanTransitionTo(target ElectionStatus) bool {
	next, ok := statusTransitions[s]
	return ok && next == target
}

// Terminal 是否为终态
func (s ElectionStatus) Terminal() bool { return s == StatusClosed }

// ── 委员会 ──

// Council 委员会
type Council string

const (
	CouncilAdministration Council = "administration"
	CouncilFiscal         Council = "fiscal"
	CouncilEthics         Council = "ethics"
)

// Councils 固定顺序的全部委员会（计票、导出均按此顺序）
var Councils = []Council{CouncilAdministration, CouncilFiscal, CouncilEthics}

// ParseCouncil 解析委员会标识
func ParseCouncil(s string) (Council, bool) {
	switch c := Council(s); c {
	case CouncilAdministration, CouncilFiscal, CouncilEthics:
		return c, true
	}
	return "", false
}

// ── 计票结果 ──

// Outcome 候选人当选结果
type Outcome string

const (
	OutcomeElectedEffective Outcome = "elected_effective"
	OutcomeElectedAlternate Outcome = "elected_alternate"
	OutcomeNotElected       Outcome = "not_elected"
)

// Election 选举表，对应 elections
type Election struct {
	ElectionID           string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"election_id"`
	ClassID              string         `gorm:"type:uuid;not null"                             json:"class_id"`
	Title                string         `gorm:"type:varchar(200);not null;default:''"          json:"title"`
	Status               ElectionStatus `gorm:"type:varchar(20);not null;default:'configuration'" json:"status"`
	SeatsAdministration  int            `gorm:"not null;default:3"                             json:"seats_administration"`
	SeatsFiscalEffective int            `gorm:"not null;default:3"                             json:"seats_fiscal_effective"`
	SeatsFiscalAlternate int            `gorm:"not null;default:3"                             json:"seats_fiscal_alternate"`
	SeatsEthics          int            `gorm:"not null;default:3"                             json:"seats_ethics"`
	RegistrationStartsAt *time.Time     `json:"registration_starts_at,omitempty"`
	RegistrationEndsAt   *time.Time     `json:"registration_ends_at,omitempty"`
	CampaignStartsAt     *time.Time     `json:"campaign_starts_at,omitempty"`
	CampaignEndsAt       *time.Time     `json:"campaign_ends_at,omitempty"`
	VotingStartsAt       *time.Time     `json:"voting_starts_at,omitempty"`
	VotingEndsAt         *time.Time     `json:"voting_ends_at,omitempty"`
	ClosedAt             *time.Time     `json:"closed_at,omitempty"`
	VersionedModel
}

// TableName 指定表名
func (Election) TableName() string { return "elections" }

// SeatsFor 选票中该委员会可勾选的最大人数（监事会为正式席位数）
func (e *Election) SeatsFor(c Council) int {
	switch c {
	case CouncilAdministration:
		return e.SeatsAdministration
	case CouncilFiscal:
		return e.SeatsFiscalEffective
	case CouncilEthics:
		return e.SeatsEthics
	}
	return 0
}

// Cutoffs 计票分档线：行政/道德委员会只有正式席位，监事会另有候补席位
func (e *Election) Cutoffs(c Council) []int {
	if c == CouncilFiscal {
		return []int{e.SeatsFiscalEffective, e.SeatsFiscalEffective + e.SeatsFiscalAlternate}
	}
	return []int{e.SeatsFor(c)}
}

// VotingWindowContains 投票窗口（若已配置）是否包含 t
func (e *Election) VotingWindowContains(t time.Time) bool {
	if e.VotingStartsAt != nil && t.Before(*e.VotingStartsAt) {
		return false
	}
	if e.VotingEndsAt != nil && !t.Before(*e.VotingEndsAt) {
		return false
	}
	return true
}

// VotingWindowElapsed 投票窗口是否已结束；未配置结束时间视为未结束
func (e *Election) VotingWindowElapsed(t time.Time) bool {
	return e.VotingEndsAt != nil && !t.Before(*e.VotingEndsAt)
}

// WindowStartFor 返回进入 status 状态的计划开始时间（用于调度器）
func (e *Election) WindowStartFor(status ElectionStatus) *time.Time {
	switch status {
	case StatusRegistration:
		return e.RegistrationStartsAt
	case StatusCampaign:
		return e.CampaignStartsAt
	case StatusVoting:
		return e.VotingStartsAt
	}
	return nil
}

// [自证通过] internal/model/election.go
