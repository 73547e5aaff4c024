package model

import "time"

// Vote 匿名选票，对应 votes
// 不含学生身份；只追加，数据库触发器拒绝 UPDATE / DELETE
type Vote struct {
	VoteID      string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"vote_id"`
	CandidateID string    `gorm:"type:uuid;not null"                             json:"candidate_id"`
	CreatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (Vote) TableName() string { return "votes" }

// VoteCount 按候选人聚合的票数
type VoteCount struct {
	CandidateID string `gorm:"column:candidate_id"`
	Votes       int    `gorm:"column:votes"`
}
