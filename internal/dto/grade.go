package dto

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ── 成绩模块 DTO ──

// 数值成绩的有效区间
const (
	MinGradeValue = 1
	MaxGradeValue = 10
)

// LenientInt 宽松解析的 1-10 整数成绩
// 接受 JSON 数字或数字字符串；非整数、非数字、越界值一律视为未填写（nil），不报错
type LenientInt struct {
	Value *int
}

// ParseLenientInt 按同样规则解析文本（表格导入使用）
func ParseLenientInt(s string) LenientInt {
	s = strings.TrimSpace(s)
	if s == "" {
		return LenientInt{}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return LenientInt{}
	}
	if f < MinGradeValue || f > MaxGradeValue {
		return LenientInt{}
	}
	v := int(f)
	return LenientInt{Value: &v}
}

// UnmarshalJSON 实现 json.Unmarshaler
func (l *LenientInt) UnmarshalJSON(b []byte) error {
	l.Value = nil

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil
	}

	switch v := raw.(type) {
	case json.Number:
		*l = ParseLenientInt(v.String())
	case string:
		*l = ParseLenientInt(v)
	}
	return nil
}

// MarshalJSON 实现 json.Marshaler
func (l LenientInt) MarshalJSON() ([]byte, error) {
	if l.Value == nil {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(*l.Value)), nil
}

// LenientMark 宽松解析的定性评价
// 任意 JSON 值均可接受；仅去空格、转大写后为 TEA/TEP/TED 的字符串保留，其余视为未填写
type LenientMark struct {
	Value *string
}

// ParseLenientMark 按同样规则解析文本（表格导入使用）
func ParseLenientMark(s string) LenientMark {
	return LenientMark{Value: pickCode(s, "TEA", "TEP", "TED")}
}

// UnmarshalJSON 实现 json.Unmarshaler
func (l *LenientMark) UnmarshalJSON(b []byte) error {
	*l = ParseLenientMark(jsonString(b))
	return nil
}

// MarshalJSON 实现 json.Marshaler
func (l LenientMark) MarshalJSON() ([]byte, error) {
	return marshalCode(l.Value)
}

// pickCode 去空格、转大写后属于 allowed 时返回，否则 nil
func pickCode(s string, allowed ...string) *string {
	code := strings.ToUpper(strings.TrimSpace(s))
	for _, a := range allowed {
		if code == a {
			return &code
		}
	}
	return nil
}

// jsonString 取 JSON 字符串值；其他类型或非法 JSON 返回空串
func jsonString(b []byte) string {
	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return ""
	}
	s, _ := raw.(string)
	return s
}

func marshalCode(v *string) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*v)
}

// GradeEntry 单个学生的成绩输入
type GradeEntry struct {
	StudentID            string      `json:"student_id"            binding:"required,uuid"`
	Period1Mark          LenientMark `json:"period1_mark"`
	Period1Value         LenientInt  `json:"period1_value"`
	Period2Mark          LenientMark `json:"period2_mark"`
	Period2Value         LenientInt  `json:"period2_value"`
	IntensificationValue LenientInt  `json:"intensification_value"`
	FinalValue           LenientInt  `json:"final_value"`
	Notes                string      `json:"notes"                 binding:"max=1000"`
	CursationType        string      `json:"cursation_type"`
}

// SaveGradesRequest 批量保存成绩请求
type SaveGradesRequest struct {
	OfferingID string       `json:"offering_id" binding:"required,uuid"`
	TermID     string       `json:"term_id"     binding:"omitempty,uuid"` // 为空时使用当前学年
	Entries    []GradeEntry `json:"entries"     binding:"required,min=1,dive"`
}

// SkippedEntry 未写入的输入行
type SkippedEntry struct {
	StudentID string `json:"student_id"`
	Reason    string `json:"reason"`
}

// SaveGradesResult 批量保存结果
type SaveGradesResult struct {
	Created   int            `json:"created"`
	Updated   int            `json:"updated"`
	Unchanged int            `json:"unchanged"`
	Skipped   []SkippedEntry `json:"skipped"`
}

// GradeResponse 成绩记录响应
type GradeResponse struct {
	ID                   string  `json:"id"`
	StudentID            string  `json:"student_id"`
	OfferingID           string  `json:"offering_id"`
	SubjectName          string  `json:"subject_name,omitempty"`
	TermID               string  `json:"term_id"`
	Period1Mark          *string `json:"period1_mark"`
	Period1Value         *int    `json:"period1_value"`
	Period2Mark          *string `json:"period2_mark"`
	Period2Value         *int    `json:"period2_value"`
	IntensificationValue *int    `json:"intensification_value"`
	FinalValue           *int    `json:"final_value"`
	CursationType        string  `json:"cursation_type"`
	Notes                string  `json:"notes"`
	FinalStatus          string  `json:"final_status"`
}

// StudentReportRequest 学生成绩单查询参数
type StudentReportRequest struct {
	StudentID string `form:"student_id" binding:"omitempty,uuid"` // 学生本人查询时忽略
	Mark      string `form:"mark"       binding:"omitempty,qualitative_mark"`
}

// StudentReportResponse 学生成绩单
type StudentReportResponse struct {
	StudentID string          `json:"student_id"`
	Term      TermResponse    `json:"term"`
	Period    int             `json:"period"`
	Grades    []GradeResponse `json:"grades"`
}
