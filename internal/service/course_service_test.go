package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"sistema-notas/backend/internal/dto"
	"sistema-notas/backend/internal/model"
	"sistema-notas/backend/internal/repository/repotest"
)

func TestDeleteCourse_Guards(t *testing.T) {
	db, repo, s := seedSchool(t)
	svc := NewCourseService(repo, zap.NewNop())
	ctx := context.Background()

	if err := svc.DeleteCourse(ctx, s.Course3B.CourseID); !errors.Is(err, ErrCourseHasEnrollments) {
		t.Errorf("有注册的班级期望 ErrCourseHasEnrollments，实际: %v", err)
	}

	f := repotest.NewFixture(t, db)
	withOffering := f.Course(s.Term.TermID, "1°C", 1)
	art := f.Subject("Arte", "ART")
	f.Offering(withOffering.CourseID, art.SubjectID, nil)
	if err := svc.DeleteCourse(ctx, withOffering.CourseID); !errors.Is(err, ErrCourseHasOfferings) {
		t.Errorf("有开课的班级期望 ErrCourseHasOfferings，实际: %v", err)
	}

	empty := f.Course(s.Term.TermID, "1°D", 1)
	if err := svc.DeleteCourse(ctx, empty.CourseID); err != nil {
		t.Errorf("空班级应可删除: %v", err)
	}
	if _, err := svc.GetCourse(ctx, empty.CourseID); !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("删除后期望 ErrCourseNotFound，实际: %v", err)
	}
}

func TestCourseDeleteConflict_ByConstraint(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"开课外键", fmt.Errorf("删除班级: %w", &pgconn.PgError{Code: "23503", ConstraintName: "subject_offerings_course_id_fkey"}), ErrCourseHasOfferings},
		{"注册外键", &pgconn.PgError{Code: "23503", ConstraintName: "enrollments_course_id_fkey"}, ErrCourseHasEnrollments},
		{"SQLite 无约束名", errors.New("FOREIGN KEY constraint failed"), ErrCourseHasEnrollments},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := courseDeleteConflict(tt.err); !errors.Is(got, tt.want) {
				t.Errorf("期望 %v，实际 %v", tt.want, got)
			}
		})
	}
}

func TestEnroll_TransfersStudent(t *testing.T) {
	db, repo, s := seedSchool(t)
	svc := NewCourseService(repo, zap.NewNop())

	resp, err := svc.Enroll(context.Background(), s.Course2A.CourseID, &dto.EnrollRequest{StudentID: s.S.UserID}, adminIdentity().UserID)
	if err != nil {
		t.Fatalf("Enroll 应成功: %v", err)
	}
	if resp.CourseID != s.Course2A.CourseID || resp.Status != model.EnrollmentActive {
		t.Errorf("注册结果不正确: %+v", resp)
	}

	if n := countRows(t, db, &model.Enrollment{}, "student_id = ? AND status = ?", s.S.UserID, model.EnrollmentActive); n != 1 {
		t.Errorf("学生应只有一条 active 注册，实际=%d", n)
	}

	students, err := svc.ListStudents(context.Background(), s.Course3B.CourseID)
	if err != nil {
		t.Fatalf("ListStudents 失败: %v", err)
	}
	if len(students) != 1 || students[0].ID != s.Classmate3B.UserID {
		t.Errorf("转班后 3°B 只应剩同班同学，实际=%+v", students)
	}
}

func TestEnroll_RejectsNonStudent(t *testing.T) {
	_, repo, s := seedSchool(t)
	svc := NewCourseService(repo, zap.NewNop())

	_, err := svc.Enroll(context.Background(), s.Course2A.CourseID, &dto.EnrollRequest{StudentID: s.Teacher.UserID}, adminIdentity().UserID)
	if !errors.Is(err, ErrEnrollmentInvalidReference) {
		t.Errorf("期望 ErrEnrollmentInvalidReference，实际: %v", err)
	}
}

func TestCreateOffering_Duplicate(t *testing.T) {
	_, repo, s := seedSchool(t)
	svc := NewCourseService(repo, zap.NewNop())

	_, err := svc.CreateOffering(context.Background(), s.Course2A.CourseID, &dto.CreateOfferingRequest{
		SubjectID: s.Math2A.SubjectID,
	}, adminIdentity().UserID)
	if !errors.Is(err, ErrOfferingDuplicate) {
		t.Errorf("期望 ErrOfferingDuplicate，实际: %v", err)
	}
}

func TestAssignTeacher(t *testing.T) {
	_, repo, s := seedSchool(t)
	svc := NewCourseService(repo, zap.NewNop())
	ctx := context.Background()

	if err := svc.AssignTeacher(ctx, s.History3B.OfferingID, &dto.AssignTeacherRequest{TeacherID: &s.S.UserID}, adminIdentity().UserID); !errors.Is(err, ErrTeacherInvalid) {
		t.Errorf("指派学生为教师期望 ErrTeacherInvalid，实际: %v", err)
	}

	if err := svc.AssignTeacher(ctx, s.History3B.OfferingID, &dto.AssignTeacherRequest{TeacherID: &s.Teacher.UserID}, adminIdentity().UserID); err != nil {
		t.Fatalf("指派教师失败: %v", err)
	}
	mine, err := svc.ListMyOfferings(ctx, teacherIdentity(s.Teacher))
	if err != nil {
		t.Fatalf("ListMyOfferings 失败: %v", err)
	}
	if len(mine) != 3 {
		t.Errorf("教师应任课 3 门（数学 2°A、语文 3°B、历史 3°B），实际=%d", len(mine))
	}
}
