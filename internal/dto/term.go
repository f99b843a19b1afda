package dto

// ── 学年模块 DTO ──

// CreateTermRequest 创建学年请求
type CreateTermRequest struct {
	Year      int    `json:"year"       binding:"required,min=2000,max=2100"`
	StartDate string `json:"start_date" binding:"required"` // "2025-03-01"
	EndDate   string `json:"end_date"   binding:"required"` // "2025-12-15"
}

// UpdateTermRequest 更新学年请求
type UpdateTermRequest struct {
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
}

// TermResponse 学年信息响应
type TermResponse struct {
	ID        string `json:"id"`
	Year      int    `json:"year"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	IsActive  bool   `json:"is_active"`
}

// ActivePeriodResponse 当前学年与学段
type ActivePeriodResponse struct {
	Term   TermResponse `json:"term"`
	Period int          `json:"period"` // 1 | 2
}
