package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"sistema-notas/backend/internal/dto"
	"sistema-notas/backend/internal/service"
	"sistema-notas/backend/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SheetHandler 成绩表导出 / 导入 HTTP 处理器
type SheetHandler struct {
	sheetSvc service.SheetService
}

// NewSheetHandler 创建 SheetHandler
func NewSheetHandler(sheetSvc service.SheetService) *SheetHandler {
	return &SheetHandler{sheetSvc: sheetSvc}
}

// ExportSheet 导出成绩表
// GET /api/v1/grades/sheet?course_id=xxx&offering_id=xxx&term_id=xxx
func (h *SheetHandler) ExportSheet(c *gin.Context) {
	var req dto.RosterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	identity, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	buf, filename, err := h.sheetSvc.Export(c.Request.Context(), identity, &req)
	if err != nil {
		h.handleSheetError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Header("Content-Type", xlsxContentType)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ImportSheet 导入填好的成绩表
// POST /api/v1/grades/sheet
// multipart/form-data: file, offering_id, term_id(可选)
func (h *SheetHandler) ImportSheet(c *gin.Context) {
	var req dto.ImportGradesRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	identity, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, 17001, "请上传 Excel 文件")
		return
	}
	defer file.Close()

	result, err := h.sheetSvc.Import(c.Request.Context(), identity, &req, file)
	if err != nil {
		h.handleSheetError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *SheetHandler) handleSheetError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrImportDisabled):
		response.ServiceUnavailable(c, 17002, "成绩表导入功能未开启")
	case errors.Is(err, service.ErrImportUnreadable):
		response.BadRequest(c, 17003, "无法解析Excel文件")
	case errors.Is(err, service.ErrImportBadHeader):
		response.BadRequest(c, 17004, "Excel表头缺少证件号列")
	case errors.Is(err, service.ErrImportNoData):
		response.BadRequest(c, 17005, "Excel文件无数据行")
	case errors.Is(err, service.ErrImportTooManyRows):
		response.BadRequest(c, 17006, err.Error())
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		handleGradeError(c, err)
	}
}
