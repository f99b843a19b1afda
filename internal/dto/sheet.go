package dto

// ── 成绩表格导入导出 DTO ──

// ImportGradesRequest 成绩表导入参数（multipart 表单，文件字段名 file）
type ImportGradesRequest struct {
	OfferingID string `form:"offering_id" binding:"required,uuid"`
	TermID     string `form:"term_id"     binding:"omitempty,uuid"`
}

// ImportGradesResult 导入结果
type ImportGradesResult struct {
	Rows int `json:"rows"` // 解析出的非空数据行
	SaveGradesResult
}
