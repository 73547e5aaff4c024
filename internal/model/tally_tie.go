package model

import "time"

// TallyTie 计票平票记录，对应 tally_ties
// 平票跨越分档线时记录，结果需人工裁决后才会写入该委员会的 outcome
type TallyTie struct {
	TieID        string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"tie_id"`
	ElectionID   string      `gorm:"type:uuid;not null"                             json:"election_id"`
	Council      Council     `gorm:"type:varchar(20);not null"                      json:"council"`
	CandidateIDs StringArray `gorm:"type:text[];not null"                           json:"candidate_ids"`
	VoteCounts   IntArray    `gorm:"type:int[];not null"                            json:"vote_counts"`
	ResolvedAt   *time.Time  `json:"resolved_at,omitempty"`
	ResolvedBy   *string     `gorm:"type:uuid"                                      json:"resolved_by,omitempty"`
	CreatedAt    time.Time   `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (TallyTie) TableName() string { return "tally_ties" }

// Resolved 是否已人工裁决
func (t *TallyTie) Resolved() bool { return t.ResolvedAt != nil }
