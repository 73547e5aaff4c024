package model

import "time"

// Candidate 候选人表，对应 candidates
// 由候选登记系统写入；VoteTotal / Outcome / Position 只由计票流程回写
type Candidate struct {
	CandidateID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"candidate_id"`
	ElectionID  string    `gorm:"type:uuid;not null"                             json:"election_id"`
	Council     Council   `gorm:"type:varchar(20);not null"                      json:"council"`
	StudentID   string    `gorm:"type:uuid;not null"                             json:"student_id"`
	Platform    string    `gorm:"type:text;not null;default:''"                  json:"platform"`
	Approved    bool      `gorm:"not null;default:false"                         json:"approved"`
	VoteTotal   int       `gorm:"not null;default:0"                             json:"vote_total"`
	Outcome     *Outcome  `gorm:"type:varchar(20)"                               json:"outcome,omitempty"`
	Position    *int      `json:"position,omitempty"`
	CreatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`

	// 关联
	Student *User `gorm:"foreignKey:StudentID;references:UserID" json:"student,omitempty"`
}

// TableName 指定表名
func (Candidate) TableName() string { return "candidates" }
