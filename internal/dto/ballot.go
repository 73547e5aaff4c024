package dto

// ── 投票模块 DTO ──

// SubmitBallotRequest 提交选票
// selections 的 key 为委员会（administration / fiscal / ethics），缺省的委员会不计入本次提交；
// 空数组表示在该委员会弃权
type SubmitBallotRequest struct {
	Selections map[string][]string `json:"selections" binding:"required"`
}

// ReceiptResponse 投票回执
type ReceiptResponse struct {
	ElectionID          string  `json:"election_id"`
	VotedAdministration bool    `json:"voted_administration"`
	VotedFiscal         bool    `json:"voted_fiscal"`
	VotedEthics         bool    `json:"voted_ethics"`
	VotedAt             *string `json:"voted_at,omitempty"`
	HasVoted            bool    `json:"has_voted"`
}

// BallotResponse 提交选票结果
type BallotResponse struct {
	Receipt  ReceiptResponse `json:"receipt"`
	Recorded map[string]int  `json:"recorded"` // 各委员会写入的票数
}
