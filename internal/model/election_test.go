package model

import (
	"testing"
	"time"
)

func TestElectionStatus_Transitions(t *testing.T) {
	order := []ElectionStatus{StatusConfiguration, StatusRegistration, StatusCampaign, StatusVoting, StatusClosed}

	for i, s := range order {
		next, ok := s.Next()
		if i == len(order)-1 {
			if ok {
				t.Errorf("closed 为终态，不应存在下一状态，实际=%s", next)
			}
			if !s.Terminal() {
				t.Error("closed 应为终态")
			}
			continue
		}
		if !ok || next != order[i+1] {
			t.Errorf("%s 的下一状态期望=%s，实际=%s", s, order[i+1], next)
		}
		// 不可跳跃、不可回退
		for j, target := range order {
			want := j == i+1
			if got := s.CanTransitionTo(target); got != want {
				t.Errorf("%s → %s 期望=%v，实际=%v", s, target, want, got)
			}
		}
	}
}

func TestElectionStatus_Valid(t *testing.T) {
	if ElectionStatus("archived").Valid() {
		t.Error("未知状态不应合法")
	}
	if !StatusVoting.Valid() {
		t.Error("voting 应合法")
	}
}

func TestParseCouncil(t *testing.T) {
	if c, ok := ParseCouncil("fiscal"); !ok || c != CouncilFiscal {
		t.Errorf("期望解析为 fiscal，实际=%s,%v", c, ok)
	}
	if _, ok := ParseCouncil("sports"); ok {
		t.Error("未知委员会不应解析成功")
	}
}

func TestElection_SeatsAndCutoffs(t *testing.T) {
	e := &Election{SeatsAdministration: 3, SeatsFiscalEffective: 2, SeatsFiscalAlternate: 1, SeatsEthics: 2}

	if e.SeatsFor(CouncilFiscal) != 2 {
		t.Errorf("监事会可勾选人数应为正式席位数 2，实际=%d", e.SeatsFor(CouncilFiscal))
	}
	cut := e.Cutoffs(CouncilFiscal)
	if len(cut) != 2 || cut[0] != 2 || cut[1] != 3 {
		t.Errorf("监事会分档线期望=[2 3]，实际=%v", cut)
	}
	if cut := e.Cutoffs(CouncilEthics); len(cut) != 1 || cut[0] != 2 {
		t.Errorf("道德委员会分档线期望=[2]，实际=%v", cut)
	}
}

func TestElection_VotingWindow(t *testing.T) {
	start := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	end := time.Date(2026, 10, 2, 18, 0, 0, 0, time.UTC)
	e := &Election{VotingStartsAt: &start, VotingEndsAt: &end}

	if e.VotingWindowContains(start.Add(-time.Second)) {
		t.Error("开始前不应在窗口内")
	}
	if !e.VotingWindowContains(start) {
		t.Error("开始时刻应在窗口内")
	}
	if e.VotingWindowContains(end) {
		t.Error("结束时刻不应在窗口内")
	}
	if !e.VotingWindowElapsed(end) {
		t.Error("结束时刻窗口应视为已结束")
	}

	open := &Election{}
	if !open.VotingWindowContains(start) || open.VotingWindowElapsed(end) {
		t.Error("未配置窗口时应始终可投票且不视为已结束")
	}
}

func TestBallotReceipt_Voted(t *testing.T) {
	r := &BallotReceipt{VotedFiscal: true}
	if !r.Voted(CouncilFiscal) || r.Voted(CouncilEthics) {
		t.Error("Voted 与字段不一致")
	}
	if r.Complete() {
		t.Error("未全部投票时 Complete 应为 false")
	}
	if ReceiptColumn(CouncilAdministration) != "voted_administration" {
		t.Errorf("列名错误: %s", ReceiptColumn(CouncilAdministration))
	}
}

func TestStringArray_ScanValue(t *testing.T) {
	var a StringArray
	if err := a.Scan([]byte(`{"a1",b2}`)); err != nil {
		t.Fatalf("Scan 失败: %v", err)
	}
	if len(a) != 2 || a[0] != "a1" || a[1] != "b2" {
		t.Errorf("期望=[a1 b2]，实际=%v", a)
	}
	v, err := a.Value()
	if err != nil || v != "{a1,b2}" {
		t.Errorf("Value 期望={a1,b2}，实际=%v (%v)", v, err)
	}
	if _, err := (StringArray{"x,y"}).Value(); err == nil {
		t.Error("包含逗号的元素应报错")
	}
}
