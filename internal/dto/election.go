package dto

import "time"

// ── 选举模块 DTO ──

// ElectionWindows 报名、竞选、投票三个时间窗口（均可选）
type ElectionWindows struct {
	RegistrationStartsAt *time.Time `json:"registration_starts_at"`
	RegistrationEndsAt   *time.Time `json:"registration_ends_at"`
	CampaignStartsAt     *time.Time `json:"campaign_starts_at"`
	CampaignEndsAt       *time.Time `json:"campaign_ends_at"`
	VotingStartsAt       *time.Time `json:"voting_starts_at"`
	VotingEndsAt         *time.Time `json:"voting_ends_at"`
}

// CreateElectionRequest 创建选举请求；席位未填时默认 3
type CreateElectionRequest struct {
	ClassID              string `json:"class_id"               binding:"required,uuid"`
	Title                string `json:"title"                  binding:"omitempty,max=200"`
	SeatsAdministration  *int   `json:"seats_administration"   binding:"omitempty,min=0,max=50"`
	SeatsFiscalEffective *int   `json:"seats_fiscal_effective" binding:"omitempty,min=0,max=50"`
	SeatsFiscalAlternate *int   `json:"seats_fiscal_alternate" binding:"omitempty,min=0,max=50"`
	SeatsEthics          *int   `json:"seats_ethics"           binding:"omitempty,min=0,max=50"`
	ElectionWindows
}

// UpdateElectionRequest 更新选举请求（仅 configuration / registration 阶段允许）
// 时间窗口字段整体替换：传入的窗口即为最终窗口
type UpdateElectionRequest struct {
	Title                *string          `json:"title"                  binding:"omitempty,max=200"`
	SeatsAdministration  *int             `json:"seats_administration"   binding:"omitempty,min=0,max=50"`
	SeatsFiscalEffective *int             `json:"seats_fiscal_effective" binding:"omitempty,min=0,max=50"`
	SeatsFiscalAlternate *int             `json:"seats_fiscal_alternate" binding:"omitempty,min=0,max=50"`
	SeatsEthics          *int             `json:"seats_ethics"           binding:"omitempty,min=0,max=50"`
	Windows              *ElectionWindows `json:"windows"`
	Version              int              `json:"version"                binding:"required,min=1"`
}

// ListElectionsRequest 选举列表筛选
type ListElectionsRequest struct {
	ClassID string `form:"class_id" binding:"omitempty,uuid"`
	Status  string `form:"status"   binding:"omitempty,oneof=configuration registration campaign voting closed"`
}

// ElectionResponse 选举信息响应
type ElectionResponse struct {
	ID                   string  `json:"id"`
	ClassID              string  `json:"class_id"`
	Title                string  `json:"title"`
	Status               string  `json:"status"`
	NextStatus           *string `json:"next_status,omitempty"`
	SeatsAdministration  int     `json:"seats_administration"`
	SeatsFiscalEffective int     `json:"seats_fiscal_effective"`
	SeatsFiscalAlternate int     `json:"seats_fiscal_alternate"`
	SeatsEthics          int     `json:"seats_ethics"`
	RegistrationStartsAt *string `json:"registration_starts_at,omitempty"`
	RegistrationEndsAt   *string `json:"registration_ends_at,omitempty"`
	CampaignStartsAt     *string `json:"campaign_starts_at,omitempty"`
	CampaignEndsAt       *string `json:"campaign_ends_at,omitempty"`
	VotingStartsAt       *string `json:"voting_starts_at,omitempty"`
	VotingEndsAt         *string `json:"voting_ends_at,omitempty"`
	ClosedAt             *string `json:"closed_at,omitempty"`
	Version              int     `json:"version"`
	CreatedAt            string  `json:"created_at"`
	UpdatedAt            string  `json:"updated_at"`
}
