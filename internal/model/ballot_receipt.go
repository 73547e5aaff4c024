package model

import "time"

// BallotReceipt 投票回执，对应 ballot_receipts
// 每个 (学生, 选举) 一行；三个委员会标记只能由 false 变为 true
type BallotReceipt struct {
	ReceiptID           string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"receipt_id"`
	ElectionID          string     `gorm:"type:uuid;not null"                             json:"election_id"`
	StudentID           string     `gorm:"type:uuid;not null"                             json:"student_id"`
	VotedAdministration bool       `gorm:"not null;default:false"                         json:"voted_administration"`
	VotedFiscal         bool       `gorm:"not null;default:false"                         json:"voted_fiscal"`
	VotedEthics         bool       `gorm:"not null;default:false"                         json:"voted_ethics"`
	VotedAt             *time.Time `json:"voted_at,omitempty"`
	CreatedAt           time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (BallotReceipt) TableName() string { return "ballot_receipts" }

// Voted 该委员会是否已投票
func (r *BallotReceipt) Voted(c Council) bool {
	switch c {
	case CouncilAdministration:
		return r.VotedAdministration
	case CouncilFiscal:
		return r.VotedFiscal
	case CouncilEthics:
		return r.VotedEthics
	}
	return false
}

// Complete 三个委员会是否均已投票
func (r *BallotReceipt) Complete() bool {
	return r.VotedAdministration && r.VotedFiscal && r.VotedEthics
}

// ReceiptColumn 委员会对应的回执列名
func ReceiptColumn(c Council) string {
	return "voted_" + string(c)
}

// Turnout 投票率统计
type Turnout struct {
	Voters         int64 `gorm:"column:voters"          json:"voters"`
	Administration int64 `gorm:"column:administration"  json:"administration"`
	Fiscal         int64 `gorm:"column:fiscal"          json:"fiscal"`
	Ethics         int64 `gorm:"column:ethics"          json:"ethics"`
}
