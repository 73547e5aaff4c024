package dto

// ── 计票模块 DTO ──

// CloseElectionRequest 关闭选举；force=true 时允许在投票窗口结束前提前关闭
type CloseElectionRequest struct {
	Force bool `json:"force"`
}

// ResolveTieRequest 人工裁决平票
// 两个列表为裁决后各档当选名单（含平票组以上已确定当选的候选人）
type ResolveTieRequest struct {
	Council          string   `json:"council"           binding:"required,oneof=administration fiscal ethics"`
	ElectedEffective []string `json:"elected_effective" binding:"required"`
	ElectedAlternate []string `json:"elected_alternate"`
}

// TieResponse 平票信息
type TieResponse struct {
	CandidateIDs []string `json:"candidate_ids"`
	VoteCounts   []int    `json:"vote_counts"`
	Resolved     bool     `json:"resolved"`
	ResolvedAt   *string  `json:"resolved_at,omitempty"`
}

// CouncilResultResponse 单个委员会的计票结果
type CouncilResultResponse struct {
	Council        string              `json:"council"`
	Seats          int                 `json:"seats"`
	AlternateSeats int                 `json:"alternate_seats,omitempty"`
	Withheld       bool                `json:"withheld"` // 平票未裁决，结果暂不公布
	Tie            *TieResponse        `json:"tie,omitempty"`
	Candidates     []CandidateResponse `json:"candidates"`
}

// TurnoutResponse 投票率
type TurnoutResponse struct {
	Voters         int64 `json:"voters"`
	Administration int64 `json:"administration"`
	Fiscal         int64 `json:"fiscal"`
	Ethics         int64 `json:"ethics"`
}

// ElectionResultsResponse 选举结果
// final=false 时为关闭前的概览，不含票数
type ElectionResultsResponse struct {
	ElectionID string                  `json:"election_id"`
	Status     string                  `json:"status"`
	Final      bool                    `json:"final"`
	ClosedAt   *string                 `json:"closed_at,omitempty"`
	Turnout    TurnoutResponse         `json:"turnout"`
	Councils   []CouncilResultResponse `json:"councils"`
}
