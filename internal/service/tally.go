package service

import (
	"errors"
	"fmt"
	"sort"

	"nucleo-coop/backend/internal/model"
)

// ErrTieUnresolved 平票跨越席位分档线，需人工裁决
var ErrTieUnresolved = errors.New("平票无法自动裁决")

// CandidateVotes 单个候选人的得票
type CandidateVotes struct {
	CandidateID string
	Votes       int
}

// RankedCandidate 排名结果
// Position 为竞争式排名（票数相同名次相同，下一名次跳过）
type RankedCandidate struct {
	CandidateID string
	Votes       int
	Position    int
	Outcome     model.Outcome // 平票未裁决时为空
}

// TieError 平票详情，errors.Is(err, ErrTieUnresolved) 为 true
type TieError struct {
	Council      model.Council
	CandidateIDs []string
	Votes        []int
}

func (e *TieError) Error() string {
	return fmt.Sprintf("%s: %s 委员会 %d 名候选人平票", ErrTieUnresolved.Error(), e.Council, len(e.CandidateIDs))
}

func (e *TieError) Unwrap() error { return ErrTieUnresolved }

// RankCouncil 对单个委员会计票排名
//
// cutoffs 为各档累计席位线：行政/道德委员会为 [席位数]，监事会为 [正式, 正式+候补]。
// 排序为票数降序、候选人 ID 升序（ID 仅用于稳定展示，不参与当选判定）。
// 若某个同票组跨越任一分档线，返回完整排名（Outcome 为空）与 *TieError；
// 同票组整体落在席位内时全部当选。结果与输入顺序无关。
func RankCouncil(council model.Council, counts []CandidateVotes, cutoffs []int) ([]RankedCandidate, error) {
	ranked := make([]RankedCandidate, len(counts))
	for i, c := range counts {
		ranked[i] = RankedCandidate{CandidateID: c.CandidateID, Votes: c.Votes}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Votes != ranked[j].Votes {
			return ranked[i].Votes > ranked[j].Votes
		}
		return ranked[i].CandidateID < ranked[j].CandidateID
	})

	for i := range ranked {
		if i > 0 && ranked[i].Votes == ranked[i-1].Votes {
			ranked[i].Position = ranked[i-1].Position
		} else {
			ranked[i].Position = i + 1
		}
	}

	var tie *TieError
	for start := 0; start < len(ranked); {
		end := start + 1
		for end < len(ranked) && ranked[end].Votes == ranked[start].Votes {
			end++
		}
		for _, k := range cutoffs {
			if start < k && end > k {
				if tie == nil {
					tie = &TieError{Council: council}
				}
				for _, r := range ranked[start:end] {
					tie.CandidateIDs = append(tie.CandidateIDs, r.CandidateID)
					tie.Votes = append(tie.Votes, r.Votes)
				}
				break
			}
		}
		start = end
	}
	if tie != nil {
		return ranked, tie
	}

	for i := range ranked {
		ranked[i].Outcome = outcomeAt(i, cutoffs)
	}
	return ranked, nil
}

// outcomeAt 第 i 名（0 起）所在档位
func outcomeAt(i int, cutoffs []int) model.Outcome {
	if len(cutoffs) > 0 && i < cutoffs[0] {
		return model.OutcomeElectedEffective
	}
	if len(cutoffs) > 1 && i < cutoffs[1] {
		return model.OutcomeElectedAlternate
	}
	return model.OutcomeNotElected
}
