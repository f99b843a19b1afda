package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"sistema-notas/backend/internal/dto"
	"sistema-notas/backend/internal/model"
	"sistema-notas/backend/internal/repository"
	"sistema-notas/backend/internal/repository/repotest"
)

func newTestSheetService(repo *repository.Repository, importEnabled bool) SheetService {
	roster := NewRosterServiceWithClock(repo, allCaps, 3, fixedNow, zap.NewNop())
	grades := newTestGradeService(repo, allCaps)
	return NewSheetService(repo, roster, grades, importEnabled, zap.NewNop())
}

func TestSheetExport(t *testing.T) {
	db, repo, s := seedSchool(t)
	repotest.NewFixture(t, db).Grade(s.S.UserID, s.Math2A.OfferingID, s.Term.TermID, repotest.IntPtr(8))
	svc := newTestSheetService(repo, false)

	buf, filename, err := svc.Export(context.Background(), teacherIdentity(s.Teacher), &dto.RosterRequest{
		CourseID:   s.Course2A.CourseID,
		OfferingID: s.Math2A.OfferingID,
	})
	if err != nil {
		t.Fatalf("Export 失败: %v", err)
	}
	if filename != "成绩表_Matemática_2°A_2025.xlsx" {
		t.Errorf("文件名不正确: %s", filename)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("打开导出文件失败: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("成绩表")
	if err != nil {
		t.Fatalf("读取工作表失败: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("期望标题 + 表头 + 2 名学生，实际=%d 行", len(rows))
	}
	if rows[1][0] != "证件号" {
		t.Errorf("表头第一列应为证件号，实际=%s", rows[1][0])
	}
	// 名单顺序：Díaz, Pérez
	if rows[2][0] != "40000003" || rows[3][0] != "40000001" {
		t.Errorf("数据行顺序不正确: %v / %v", rows[2], rows[3])
	}
	if rows[3][3] != "重修" {
		t.Errorf("S 的修读类型应为重修，实际=%s", rows[3][3])
	}
	if rows[3][10] != "8" {
		t.Errorf("S 的期末成绩应为 8，实际=%s", rows[3][10])
	}
}

func buildImportFile(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	header := []interface{}{"DNI", "第一学段评价", "期末成绩", "备注"}
	if err := f.SetSheetRow("Sheet1", "A1", &header); err != nil {
		t.Fatalf("写入表头失败: %v", err)
	}
	for i, r := range rows {
		row := r
		if err := f.SetSheetRow("Sheet1", cell("A", i+2), &row); err != nil {
			t.Fatalf("写入数据失败: %v", err)
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		t.Fatalf("生成 Excel 失败: %v", err)
	}
	return buf
}

func TestSheetImport(t *testing.T) {
	db, repo, s := seedSchool(t)
	svc := newTestSheetService(repo, true)

	file := buildImportFile(t, [][]interface{}{
		{"40000001", "tea", 8, "importado"},
		{"40000003", "", "9.5", ""},
		{"99999999", "TEA", 7, ""},
		{"", "", "", ""},
	})

	result, err := svc.Import(context.Background(), teacherIdentity(s.Teacher), &dto.ImportGradesRequest{
		OfferingID: s.Math2A.OfferingID,
	}, file)
	if err != nil {
		t.Fatalf("Import 失败: %v", err)
	}
	if result.Rows != 3 {
		t.Errorf("期望解析 3 行（跳过空行），实际=%d", result.Rows)
	}
	if result.Created != 2 {
		t.Errorf("期望新建 2 条成绩，实际=%d", result.Created)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].StudentID != "99999999" {
		t.Errorf("未知证件号应被跳过，实际=%+v", result.Skipped)
	}

	g := loadGrade(t, db, s.S.UserID, s.Math2A.OfferingID)
	if g.FinalValue == nil || *g.FinalValue != 8 || g.Period1Mark == nil || *g.Period1Mark != model.MarkTEA {
		t.Errorf("导入成绩不正确: %+v", g)
	}
	if g.CursationType != model.CursationRetake {
		t.Errorf("修读类型应按名单取 retake，实际=%s", g.CursationType)
	}
	if other := loadGrade(t, db, s.Student2A.UserID, s.Math2A.OfferingID); other.FinalValue != nil {
		t.Errorf("非整数成绩应视为未填写，实际=%d", *other.FinalValue)
	}
}

func TestSheetImport_Disabled(t *testing.T) {
	_, repo, s := seedSchool(t)
	svc := newTestSheetService(repo, false)

	_, err := svc.Import(context.Background(), adminIdentity(), &dto.ImportGradesRequest{OfferingID: s.Math2A.OfferingID}, bytes.NewReader(nil))
	if !errors.Is(err, ErrImportDisabled) {
		t.Errorf("期望 ErrImportDisabled，实际: %v", err)
	}
}

func TestSheetImport_BadHeader(t *testing.T) {
	_, repo, s := seedSchool(t)
	svc := newTestSheetService(repo, true)

	f := excelize.NewFile()
	f.SetCellValue("Sheet1", "A1", "nombre")
	f.SetCellValue("Sheet1", "A2", "Sofía")
	buf := new(bytes.Buffer)
	_ = f.Write(buf)
	f.Close()

	_, err := svc.Import(context.Background(), adminIdentity(), &dto.ImportGradesRequest{OfferingID: s.Math2A.OfferingID}, buf)
	if !errors.Is(err, ErrImportBadHeader) {
		t.Errorf("期望 ErrImportBadHeader，实际: %v", err)
	}
}
