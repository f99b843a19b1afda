package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"sistema-notas/backend/internal/dto"
	"sistema-notas/backend/internal/model"
	"sistema-notas/backend/internal/repository"
	pkgerrors "sistema-notas/backend/pkg/errors"
)

// ── 成绩表格模块业务错误 ──

const maxImportRows = 500

var (
	ErrImportDisabled     = errors.New("成绩表导入功能未开启")
	ErrImportNoData       = errors.New("Excel文件无数据行")
	ErrImportTooManyRows  = fmt.Errorf("数据行数超过上限 %d 行", maxImportRows)
	ErrImportBadHeader    = errors.New("Excel表头缺少证件号列")
	ErrImportUnreadable   = errors.New("无法解析Excel文件")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// 跳过原因
const skipUnknownNationalID = "证件号不在该开课的名单中"

// SheetService 成绩表格导入导出接口
//
//   - 导出：名单 + 现有成绩，一行一名学生，表头固定
//   - 导入：按证件号匹配名单后交给 GradeService.Save，宽松转换、锁定、名单校验与手工录入一致
type SheetService interface {
	Export(ctx context.Context, identity Identity, req *dto.RosterRequest) (*bytes.Buffer, string, error)
	Import(ctx context.Context, identity Identity, req *dto.ImportGradesRequest, reader io.Reader) (*dto.ImportGradesResult, error)
}

type sheetService struct {
	repo          *repository.Repository
	roster        RosterService
	grades        GradeService
	importEnabled bool
	logger        *zap.Logger
}

// NewSheetService 创建 SheetService 实例
func NewSheetService(repo *repository.Repository, roster RosterService, grades GradeService, importEnabled bool, logger *zap.Logger) SheetService {
	return &sheetService{
		repo:          repo,
		roster:        roster,
		grades:        grades,
		importEnabled: importEnabled,
		logger:        logger,
	}
}

// sheetColumns 导出表头，导入时按名称匹配（不依赖列序）
var sheetColumns = []struct {
	key   string
	title string
	width float64
}{
	{"national_id", "证件号", 14},
	{"surname", "姓", 16},
	{"name", "名", 16},
	{"cursation", "修读类型", 10},
	{"reference_course", "参照班级", 10},
	{"period1_mark", "第一学段评价", 12},
	{"period1_value", "第一学段成绩", 12},
	{"period2_mark", "第二学段评价", 12},
	{"period2_value", "第二学段成绩", 12},
	{"intensification", "强化成绩", 10},
	{"final", "期末成绩", 10},
	{"notes", "备注", 30},
}

var cursationTitles = map[string]string{
	model.CursationFirstTime: "首次修读",
	model.CursationRetake:    "重修",
}

// ═══════════════════════════════════════════════════════════
// Export
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 第 1 行：标题（科目 · 班级 · 学年），合并单元格
//   - 第 2 行：表头
//   - 第 3 行起：名单顺序的学生与现有成绩

func (s *sheetService) Export(ctx context.Context, identity Identity, req *dto.RosterRequest) (*bytes.Buffer, string, error) {
	sheet, err := s.roster.ResolveWithGrades(ctx, identity, req)
	if err != nil {
		return nil, "", err
	}

	title := fmt.Sprintf("%s · %s · %d", sheet.Offering.SubjectName, sheet.Offering.CourseName, sheet.Term.Year)

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "成绩表"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	for i, col := range sheetColumns {
		name := colName(i)
		f.SetColWidth(sheetName, name, name, col.width)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", title)
	f.MergeCell(sheetName, "A1", cell(colName(len(sheetColumns)-1), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	for i, col := range sheetColumns {
		f.SetCellValue(sheetName, cell(colName(i), 2), col.title)
	}
	f.SetCellStyle(sheetName, "A2", cell(colName(len(sheetColumns)-1), 2), headerStyle)

	// 数据行
	row := 3
	for _, e := range sheet.Entries {
		values := map[string]interface{}{
			"national_id":      e.NationalID,
			"surname":          e.Surname,
			"name":             e.Name,
			"cursation":        cursationTitles[e.CursationType],
			"reference_course": e.ReferenceCourse,
		}
		if g := e.Grade; g != nil {
			values["period1_mark"] = strOrEmpty(g.Period1Mark)
			values["period1_value"] = intOrEmpty(g.Period1Value)
			values["period2_mark"] = strOrEmpty(g.Period2Mark)
			values["period2_value"] = intOrEmpty(g.Period2Value)
			values["intensification"] = intOrEmpty(g.IntensificationValue)
			values["final"] = intOrEmpty(g.FinalValue)
			values["notes"] = g.Notes
		}
		for i, col := range sheetColumns {
			if v, ok := values[col.key]; ok {
				f.SetCellValue(sheetName, cell(colName(i), row), v)
			}
		}
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("成绩表_%s_%s_%d.xlsx", sheet.Offering.SubjectName, sheet.Offering.CourseName, sheet.Term.Year)
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// Import
// ═══════════════════════════════════════════════════════════

func (s *sheetService) Import(ctx context.Context, identity Identity, req *dto.ImportGradesRequest, reader io.Reader) (*dto.ImportGradesResult, error) {
	if !s.importEnabled {
		return nil, ErrImportDisabled
	}

	rows, err := parseGradeSheet(reader)
	if err != nil {
		return nil, err
	}

	offering, err := s.repo.Offering.GetByID(ctx, req.OfferingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOfferingNotFound
		}
		s.logger.Error("查询开课失败", zap.Error(err))
		return nil, pkgerrors.Store("查询开课", err)
	}
	if !identity.CanManageOffering(offering) {
		return nil, ErrOfferingForbidden
	}

	// 证件号 → 学生（名单内）
	sheet, err := s.roster.ResolveWithGrades(ctx, identity, &dto.RosterRequest{
		CourseID:   offering.CourseID,
		OfferingID: offering.OfferingID,
		TermID:     req.TermID,
	})
	if err != nil {
		return nil, err
	}
	byNationalID := make(map[string]string, len(sheet.Entries))
	for _, e := range sheet.Entries {
		byNationalID[e.NationalID] = e.StudentID
	}

	var unknown []dto.SkippedEntry
	entries := make([]dto.GradeEntry, 0, len(rows))
	for _, r := range rows {
		studentID, ok := byNationalID[r.nationalID]
		if !ok {
			unknown = append(unknown, dto.SkippedEntry{
				StudentID: r.nationalID,
				Reason:    fmt.Sprintf("第%d行：%s", r.row, skipUnknownNationalID),
			})
			continue
		}
		r.entry.StudentID = studentID
		entries = append(entries, r.entry)
	}

	result := &dto.ImportGradesResult{Rows: len(rows)}
	if len(entries) > 0 {
		saved, err := s.grades.Save(ctx, identity, &dto.SaveGradesRequest{
			OfferingID: offering.OfferingID,
			TermID:     sheet.Term.ID,
			Entries:    entries,
		})
		if err != nil {
			return nil, err
		}
		result.SaveGradesResult = *saved
	}
	if result.Skipped == nil {
		result.Skipped = []dto.SkippedEntry{}
	}
	result.Skipped = append(result.Skipped, unknown...)

	s.logger.Info("成绩表已导入",
		zap.String("offering_id", offering.OfferingID),
		zap.Int("rows", result.Rows),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", len(result.Skipped)),
		zap.String("by", identity.UserID),
	)
	return result, nil
}

// importRow 解析后的单行
type importRow struct {
	row        int
	nationalID string
	entry      dto.GradeEntry
}

// parseGradeSheet 读取第一个工作表；表头行为前 3 行中第一个包含证件号列的行
func parseGradeSheet(reader io.Reader) ([]importRow, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportUnreadable, err)
	}
	defer f.Close()

	excelRows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportUnreadable, err)
	}

	headerAt := -1
	var colIndex map[string]int
	for i := 0; i < len(excelRows) && i < 3; i++ {
		idx := parseHeaderIndex(excelRows[i])
		if idx["national_id"] >= 0 {
			headerAt, colIndex = i, idx
			break
		}
	}
	if headerAt < 0 {
		return nil, ErrImportBadHeader
	}

	var rows []importRow
	for i := headerAt + 1; i < len(excelRows); i++ {
		row := excelRows[i]
		get := func(key string) string {
			if idx := colIndex[key]; idx >= 0 && idx < len(row) {
				return strings.TrimSpace(row[idx])
			}
			return ""
		}

		nationalID := get("national_id")
		// 跳过全空行
		if nationalID == "" {
			continue
		}

		rows = append(rows, importRow{
			row:        i + 1,
			nationalID: nationalID,
			entry: dto.GradeEntry{
				Period1Mark:          dto.ParseLenientMark(get("period1_mark")),
				Period1Value:         dto.ParseLenientInt(get("period1_value")),
				Period2Mark:          dto.ParseLenientMark(get("period2_mark")),
				Period2Value:         dto.ParseLenientInt(get("period2_value")),
				IntensificationValue: dto.ParseLenientInt(get("intensification")),
				FinalValue:           dto.ParseLenientInt(get("final")),
				Notes:                get("notes"),
				CursationType:        parseCursation(get("cursation")),
			},
		})
	}

	if len(rows) == 0 {
		return nil, ErrImportNoData
	}
	if len(rows) > maxImportRows {
		return nil, ErrImportTooManyRows
	}
	return rows, nil
}

// parseHeaderIndex 解析表头，返回列键 -> 列索引映射（缺失为 -1）
func parseHeaderIndex(header []string) map[string]int {
	idx := make(map[string]int, len(sheetColumns))
	for _, col := range sheetColumns {
		idx[col.key] = -1
	}
	for i, h := range header {
		lower := strings.ToLower(strings.TrimSpace(h))
		for _, col := range sheetColumns {
			if lower == col.title || lower == col.key {
				idx[col.key] = i
			}
		}
		if lower == "dni" {
			idx["national_id"] = i
		}
	}
	return idx
}

// parseCursation 接受中文标题或内部值，其余返回空串（由 Save 按名单分类补全）
func parseCursation(s string) string {
	for value, title := range cursationTitles {
		if s == title || strings.EqualFold(s, value) {
			return value
		}
	}
	return ""
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func strOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func intOrEmpty(p *int) interface{} {
	if p == nil {
		return ""
	}
	return *p
}
