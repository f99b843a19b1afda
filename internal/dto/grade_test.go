package dto

import (
	"encoding/json"
	"testing"
)

func TestLenientInt_Unmarshal(t *testing.T) {
	cases := []struct {
		in   string
		want *int
	}{
		{`7`, intPtr(7)},
		{`"8"`, intPtr(8)},
		{`" 10 "`, intPtr(10)},
		{`6.0`, intPtr(6)},
		{`7.5`, nil},
		{`"abc"`, nil},
		{`0`, nil},
		{`11`, nil},
		{`null`, nil},
		{`true`, nil},
		{`""`, nil},
	}

	for _, c := range cases {
		var l LenientInt
		if err := json.Unmarshal([]byte(c.in), &l); err != nil {
			t.Errorf("输入 %s 不应返回错误: %v", c.in, err)
			continue
		}
		switch {
		case c.want == nil && l.Value != nil:
			t.Errorf("输入 %s 期望 nil，实际=%d", c.in, *l.Value)
		case c.want != nil && (l.Value == nil || *l.Value != *c.want):
			t.Errorf("输入 %s 期望 %d，实际=%v", c.in, *c.want, l.Value)
		}
	}
}

func TestGradeEntry_AbsentFieldsAreNil(t *testing.T) {
	var e GradeEntry
	if err := json.Unmarshal([]byte(`{"student_id":"x","final_value":"9"}`), &e); err != nil {
		t.Fatalf("Unmarshal 失败: %v", err)
	}
	if e.Period1Value.Value != nil {
		t.Error("未提交的字段应为 nil")
	}
	if e.FinalValue.Value == nil || *e.FinalValue.Value != 9 {
		t.Errorf("期望 final_value=9，实际=%v", e.FinalValue.Value)
	}
}

func TestLenientInt_Marshal(t *testing.T) {
	b, _ := json.Marshal(LenientInt{})
	if string(b) != "null" {
		t.Errorf("期望 null，实际=%s", b)
	}
	b, _ = json.Marshal(LenientInt{Value: intPtr(4)})
	if string(b) != "4" {
		t.Errorf("期望 4，实际=%s", b)
	}
}

func TestLenientMark_Unmarshal(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`"TEA"`, "TEA"},
		{`" tep "`, "TEP"},
		{`"ted"`, "TED"},
		{`"XYZ"`, ""},
		{`""`, ""},
		{`5`, ""},
		{`true`, ""},
		{`null`, ""},
		{`{"mark":"TEA"}`, ""},
		{`["TEA"]`, ""},
	}

	for _, c := range cases {
		var m LenientMark
		if err := json.Unmarshal([]byte(c.in), &m); err != nil {
			t.Errorf("输入 %s 不应返回错误: %v", c.in, err)
			continue
		}
		switch {
		case c.want == "" && m.Value != nil:
			t.Errorf("输入 %s 期望 nil，实际=%s", c.in, *m.Value)
		case c.want != "" && (m.Value == nil || *m.Value != c.want):
			t.Errorf("输入 %s 期望 %s，实际=%v", c.in, c.want, m.Value)
		}
	}
}

func TestSaveGradesRequest_NonStringMarkKeepsBatch(t *testing.T) {
	body := `{
		"offering_id": "6f1c1a52-8a40-4a8e-9d5e-2f1f3d0b7c11",
		"entries": [
			{"student_id": "a", "period1_mark": 5, "final_value": 8},
			{"student_id": "b", "period1_mark": "TEA", "period2_mark": false}
		]
	}`
	var req SaveGradesRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("数字评价不应使整批解析失败: %v", err)
	}
	if len(req.Entries) != 2 {
		t.Fatalf("期望 2 条，实际 %d", len(req.Entries))
	}
	if req.Entries[0].Period1Mark.Value != nil {
		t.Errorf("数字评价应视为未填写")
	}
	if req.Entries[0].FinalValue.Value == nil || *req.Entries[0].FinalValue.Value != 8 {
		t.Errorf("同一行的其他字段应保留")
	}
	if req.Entries[1].Period1Mark.Value == nil || *req.Entries[1].Period1Mark.Value != "TEA" {
		t.Errorf("第二行评价应保留 TEA")
	}
	if req.Entries[1].Period2Mark.Value != nil {
		t.Errorf("布尔评价应视为未填写")
	}
}

func TestLenientMark_Marshal(t *testing.T) {
	b, _ := json.Marshal(LenientMark{})
	if string(b) != "null" {
		t.Errorf("期望 null，实际=%s", b)
	}
	b, _ = json.Marshal(ParseLenientMark("tea"))
	if string(b) != `"TEA"` {
		t.Errorf("期望 \"TEA\"，实际=%s", b)
	}
}

func intPtr(v int) *int { return &v }
