package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"sistema-notas/backend/internal/dto"
	"sistema-notas/backend/internal/model"
	"sistema-notas/backend/internal/repository/repotest"
	"sistema-notas/backend/pkg/database"
)

func names(entries []dto.RosterEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Surname+", "+e.Name)
	}
	return out
}

func findEntry(entries []dto.RosterEntry, studentID string) (dto.RosterEntry, int) {
	var found dto.RosterEntry
	count := 0
	for _, e := range entries {
		if e.StudentID == studentID {
			found = e
			count++
		}
	}
	return found, count
}

// 3°B 的学生 S 重修 2°A 数学并免修 3°B 历史
func TestRosterResolve_RetakeExample(t *testing.T) {
	_, repo, s := seedSchool(t)
	svc := NewRosterServiceWithClock(repo, allCaps, 3, fixedNow, zap.NewNop())
	ctx := context.Background()

	// 2°A 数学：本班学生 + 重修学生 S
	math, err := svc.Resolve(ctx, s.Course2A.CourseID, s.Math2A.OfferingID, s.Term.TermID)
	if err != nil {
		t.Fatalf("Resolve(Math2A) 失败: %v", err)
	}
	if len(math) != 2 {
		t.Fatalf("期望 2 名学生，实际=%v", names(math))
	}
	if math[0].StudentID != s.Student2A.UserID || math[1].StudentID != s.S.UserID {
		t.Errorf("期望按姓排序 [Díaz, Pérez]，实际=%v", names(math))
	}
	entry, n := findEntry(math, s.S.UserID)
	if n != 1 {
		t.Fatalf("S 应恰好出现一次，实际=%d", n)
	}
	if entry.CursationType != model.CursationRetake {
		t.Errorf("S 应为重修，实际=%s", entry.CursationType)
	}
	if entry.ReferenceGradeLevel != 2 || entry.ReferenceCourseID != s.Course2A.CourseID {
		t.Errorf("S 的参照班级应为 2°A（年级 2），实际=%s/%d", entry.ReferenceCourse, entry.ReferenceGradeLevel)
	}
	if classmate, _ := findEntry(math, s.Student2A.UserID); classmate.CursationType != model.CursationFirstTime {
		t.Errorf("2°A 本班学生应为首次修读，实际=%s", classmate.CursationType)
	}

	// 3°B 历史：S 被免修
	history, err := svc.Resolve(ctx, s.Course3B.CourseID, s.History3B.OfferingID, s.Term.TermID)
	if err != nil {
		t.Fatalf("Resolve(History3B) 失败: %v", err)
	}
	if _, n := findEntry(history, s.S.UserID); n != 0 {
		t.Errorf("S 不应出现在免修开课名单中，实际=%v", names(history))
	}
	if _, n := findEntry(history, s.Classmate3B.UserID); n != 1 {
		t.Errorf("同班同学应出现在历史名单中，实际=%v", names(history))
	}

	// 3°B 语文：S 仍为本班首次修读
	language, err := svc.Resolve(ctx, s.Course3B.CourseID, s.Language3B.OfferingID, s.Term.TermID)
	if err != nil {
		t.Fatalf("Resolve(Language3B) 失败: %v", err)
	}
	entry, n = findEntry(language, s.S.UserID)
	if n != 1 || entry.CursationType != model.CursationFirstTime || entry.ReferenceGradeLevel != 3 {
		t.Errorf("S 在 3°B 语文中应为首次修读（年级 3），实际=%+v", entry)
	}
	if len(language) != 2 {
		t.Errorf("期望 2 名学生，实际=%v", names(language))
	}
}

func TestRosterResolve_InactiveRetakeIgnored(t *testing.T) {
	db, repo, s := seedSchool(t)
	svc := NewRosterServiceWithClock(repo, allCaps, 3, fixedNow, zap.NewNop())
	ctx := context.Background()

	if err := db.Model(&model.RetakeAssignment{}).
		Where("retake_id = ?", s.Retake.RetakeID).
		Update("status", model.RetakeStatusFinished).Error; err != nil {
		t.Fatalf("更新重修状态失败: %v", err)
	}

	math, _ := svc.Resolve(ctx, s.Course2A.CourseID, s.Math2A.OfferingID, s.Term.TermID)
	if _, n := findEntry(math, s.S.UserID); n != 0 {
		t.Errorf("已结束的重修不应进入目标名单，实际=%v", names(math))
	}
	history, _ := svc.Resolve(ctx, s.Course3B.CourseID, s.History3B.OfferingID, s.Term.TermID)
	if _, n := findEntry(history, s.S.UserID); n != 1 {
		t.Errorf("重修结束后 S 应回到历史名单，实际=%v", names(history))
	}
}

func TestRosterResolve_WithoutRetakeCapability(t *testing.T) {
	_, repo, s := seedSchool(t)
	svc := NewRosterServiceWithClock(repo, database.Capabilities{}, 3, fixedNow, zap.NewNop())
	ctx := context.Background()

	math, err := svc.Resolve(ctx, s.Course2A.CourseID, s.Math2A.OfferingID, s.Term.TermID)
	if err != nil {
		t.Fatalf("Resolve 失败: %v", err)
	}
	if len(math) != 1 || math[0].StudentID != s.Student2A.UserID {
		t.Errorf("重修表不可用时只应有本班学生，实际=%v", names(math))
	}
	history, _ := svc.Resolve(ctx, s.Course3B.CourseID, s.History3B.OfferingID, s.Term.TermID)
	if len(history) != 2 {
		t.Errorf("重修表不可用时免修不生效，实际=%v", names(history))
	}
}

func TestRosterResolve_OfferingOutsideCourse(t *testing.T) {
	_, repo, s := seedSchool(t)
	svc := NewRosterServiceWithClock(repo, allCaps, 3, fixedNow, zap.NewNop())

	_, err := svc.Resolve(context.Background(), s.Course3B.CourseID, s.Math2A.OfferingID, s.Term.TermID)
	if !errors.Is(err, ErrOfferingNotFound) {
		t.Errorf("期望 ErrOfferingNotFound，实际: %v", err)
	}
	_, err = svc.Resolve(context.Background(), "00000000-0000-0000-0000-000000000000", s.Math2A.OfferingID, s.Term.TermID)
	if !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("期望 ErrCourseNotFound，实际: %v", err)
	}
}

func TestRosterResolve_SubgroupOffering(t *testing.T) {
	db, repo, s := seedSchool(t)
	f := repotest.NewFixture(t, db)
	pe := f.Subject("Educación Física", "EDF")
	offering := f.Offering(s.Course3B.CourseID, pe.SubjectID, &s.Teacher.UserID)
	if err := db.Model(offering).Update("requires_subgroups", true).Error; err != nil {
		t.Fatalf("设置分组开课失败: %v", err)
	}

	courses := NewCourseService(repo, zap.NewNop())
	err := courses.SetSubgroupMembers(context.Background(), teacherIdentity(s.Teacher), offering.OfferingID, &dto.SetSubgroupMembersRequest{
		TermID:  s.Term.TermID,
		Members: []dto.SubgroupMember{{StudentID: s.Classmate3B.UserID, Subgroup: "A"}},
	})
	if err != nil {
		t.Fatalf("设置分组成员失败: %v", err)
	}

	svc := NewRosterServiceWithClock(repo, allCaps, 3, fixedNow, zap.NewNop())
	roster, err := svc.Resolve(context.Background(), s.Course3B.CourseID, offering.OfferingID, s.Term.TermID)
	if err != nil {
		t.Fatalf("Resolve 失败: %v", err)
	}
	if len(roster) != 1 || roster[0].StudentID != s.Classmate3B.UserID || roster[0].Subgroup != "A" {
		t.Errorf("分组开课只应包含分组成员，实际=%+v", roster)
	}
}

func TestRosterResolveWithGrades_Authorization(t *testing.T) {
	db, repo, s := seedSchool(t)
	svc := NewRosterServiceWithClock(repo, allCaps, 3, fixedNow, zap.NewNop())
	other := repotest.NewFixture(t, db).User("Pablo", "Suárez", "20000002", model.RoleTeacher)
	repotest.NewFixture(t, db).Grade(s.S.UserID, s.Math2A.OfferingID, s.Term.TermID, repotest.IntPtr(8))

	req := &dto.RosterRequest{CourseID: s.Course2A.CourseID, OfferingID: s.Math2A.OfferingID}

	if _, err := svc.ResolveWithGrades(context.Background(), teacherIdentity(other), req); !errors.Is(err, ErrOfferingForbidden) {
		t.Errorf("非任课教师期望 ErrOfferingForbidden，实际: %v", err)
	}
	student := Identity{UserID: s.S.UserID, Role: model.RoleStudent}
	if _, err := svc.ResolveWithGrades(context.Background(), student, req); !errors.Is(err, ErrOfferingForbidden) {
		t.Errorf("学生期望 ErrOfferingForbidden，实际: %v", err)
	}

	sheet, err := svc.ResolveWithGrades(context.Background(), teacherIdentity(s.Teacher), req)
	if err != nil {
		t.Fatalf("任课教师应可查看: %v", err)
	}
	if !sheet.Editable {
		t.Error("启用学年的名单应可编辑")
	}
	if sheet.Period != 1 {
		t.Errorf("4 月应为第 1 学段，实际=%d", sheet.Period)
	}
	for _, e := range sheet.Entries {
		switch e.StudentID {
		case s.S.UserID:
			if e.Grade == nil || e.Grade.FinalValue == nil || *e.Grade.FinalValue != 8 {
				t.Errorf("S 应带出已有成绩 8，实际=%+v", e.Grade)
			}
		default:
			if e.Grade != nil {
				t.Errorf("无成绩的学生 Grade 应为 nil，实际=%+v", e.Grade)
			}
		}
	}
}
