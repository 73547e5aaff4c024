package dto

// ── 候选人 DTO ──

// CandidateResponse 候选人信息；计票字段仅在选举关闭后返回
type CandidateResponse struct {
	ID          string  `json:"id"`
	Council     string  `json:"council"`
	StudentID   string  `json:"student_id"`
	StudentName string  `json:"student_name,omitempty"`
	Platform    string  `json:"platform"`
	VoteTotal   *int    `json:"vote_total,omitempty"`
	Outcome     *string `json:"outcome,omitempty"`
	Position    *int    `json:"position,omitempty"`
}

// CouncilCandidatesResponse 按委员会分组的候选人
type CouncilCandidatesResponse struct {
	Council    string              `json:"council"`
	Candidates []CandidateResponse `json:"candidates"`
}
