package dto

import (
	"encoding/json"
	"testing"
)

func TestLenientProgress_Unmarshal(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`"AA"`, "AA"},
		{`" cca "`, "CCA"},
		{`"csa"`, "CSA"},
		{`"TEA"`, ""},
		{`3`, ""},
		{`null`, ""},
		{`""`, ""},
	}

	for _, tc := range cases {
		var p LenientProgress
		if err := json.Unmarshal([]byte(tc.in), &p); err != nil {
			t.Fatalf("%s: 不应返回错误: %v", tc.in, err)
		}
		got := ""
		if p.Value != nil {
			got = *p.Value
		}
		if got != tc.want {
			t.Errorf("%s: 期望 %q，实际 %q", tc.in, tc.want, got)
		}
	}
}

func TestSavePendingGradesRequest_BadValuesKeepBatch(t *testing.T) {
	body := `{"offering_id":"x","entries":[
		{"pending_id":"a","march":"aa","december":{"v":1},"final_value":"12"},
		{"pending_id":"b","february":"CSA","final_value":9}]}`

	var req SavePendingGradesRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("非法取值不应导致整批失败: %v", err)
	}
	if len(req.Entries) != 2 {
		t.Fatalf("期望 2 条，实际 %d", len(req.Entries))
	}
	first := req.Entries[0]
	if first.March.Value == nil || *first.March.Value != "AA" {
		t.Errorf("march 应为 AA，实际 %v", first.March.Value)
	}
	if first.December.Value != nil || first.FinalValue.Value != nil {
		t.Errorf("对象与越界分数应视为未填写")
	}
	second := req.Entries[1]
	if second.February.Value == nil || *second.February.Value != "CSA" || *second.FinalValue.Value != 9 {
		t.Errorf("第二条解析不正确: %+v", second)
	}
}
