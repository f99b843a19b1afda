// Package repotest 提供基于 SQLite 内存库的测试数据库与数据构造器，
// 供 repository 与 service 包的测试共用。
package repotest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"sistema-notas/backend/internal/model"
	"sistema-notas/backend/pkg/database"
)

// NewDB 创建独立的 SQLite 内存库并完成建表
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("打开 SQLite 失败: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("获取 sql.DB 失败: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.AutoMigrate(db, model.All()...); err != nil {
		t.Fatalf("建表失败: %v", err)
	}
	return db
}

// Fixture 测试数据构造器，任一步失败直接 Fatal
type Fixture struct {
	t  *testing.T
	DB *gorm.DB
}

// NewFixture 绑定测试与数据库
func NewFixture(t *testing.T, db *gorm.DB) *Fixture {
	return &Fixture{t: t, DB: db}
}

func (f *Fixture) create(v interface{}) {
	f.t.Helper()
	if err := f.DB.Create(v).Error; err != nil {
		f.t.Fatalf("构造测试数据失败 (%T): %v", v, err)
	}
}

// Term 创建学年
func (f *Fixture) Term(year int, active bool) *model.AcademicTerm {
	f.t.Helper()
	term := &model.AcademicTerm{
		Year:      year,
		StartDate: time.Date(year, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(year, 12, 15, 0, 0, 0, 0, time.UTC),
		IsActive:  active,
	}
	f.create(term)
	return term
}

// User 创建用户
func (f *Fixture) User(name, surname, nationalID, role string) *model.User {
	f.t.Helper()
	user := &model.User{
		Name:         name,
		Surname:      surname,
		NationalID:   nationalID,
		PasswordHash: "$2a$10$placeholder",
		Role:         role,
		IsActive:     true,
	}
	f.create(user)
	return user
}

// Student 创建学生
func (f *Fixture) Student(name, surname, nationalID string) *model.User {
	f.t.Helper()
	return f.User(name, surname, nationalID, model.RoleStudent)
}

// Course 创建班级
func (f *Fixture) Course(termID, name string, gradeLevel int) *model.Course {
	f.t.Helper()
	course := &model.Course{Name: name, GradeLevel: gradeLevel, TermID: termID}
	f.create(course)
	return course
}

// Subject 创建科目
func (f *Fixture) Subject(name, code string) *model.Subject {
	f.t.Helper()
	subject := &model.Subject{Name: name, Code: code}
	f.create(subject)
	return subject
}

// Offering 创建开课
func (f *Fixture) Offering(courseID, subjectID string, teacherID *string) *model.SubjectOffering {
	f.t.Helper()
	offering := &model.SubjectOffering{CourseID: courseID, SubjectID: subjectID, TeacherID: teacherID}
	f.create(offering)
	return offering
}

// Enroll 创建 active 注册
func (f *Fixture) Enroll(studentID, courseID string) *model.Enrollment {
	f.t.Helper()
	enrollment := &model.Enrollment{
		StudentID:  studentID,
		CourseID:   courseID,
		Status:     model.EnrollmentActive,
		EnrolledAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	f.create(enrollment)
	return enrollment
}

// Retake 创建 active 重修
func (f *Fixture) Retake(studentID, targetID string, liberatedID *string, termID string) *model.RetakeAssignment {
	f.t.Helper()
	retake := &model.RetakeAssignment{
		StudentID:           studentID,
		TargetOfferingID:    targetID,
		LiberatedOfferingID: liberatedID,
		TermID:              termID,
		Status:              model.RetakeStatusActive,
		AssignedAt:          time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	f.create(retake)
	return retake
}

// Pending 创建 active 状态的待补科目
func (f *Fixture) Pending(studentID, offeringID, termID string, originalYear int) *model.PendingSubject {
	f.t.Helper()
	pending := &model.PendingSubject{
		StudentID:        studentID,
		OfferingID:       offeringID,
		TermID:           termID,
		OriginalYear:     originalYear,
		InitialKnowledge: "saberes iniciales",
		Status:           model.PendingActive,
	}
	f.create(pending)
	return pending
}

// Grade 创建成绩
func (f *Fixture) Grade(studentID, offeringID, termID string, final *int) *model.GradeRecord {
	f.t.Helper()
	grade := &model.GradeRecord{
		StudentID:     studentID,
		OfferingID:    offeringID,
		TermID:        termID,
		FinalValue:    final,
		CursationType: model.CursationFirstTime,
		FinalStatus:   model.DeriveFinalStatus(final, 4),
	}
	f.create(grade)
	return grade
}

// School 重修示例数据集：
// 学生 S 注册于 3°B，重修 2°A 的数学并免修 3°B 的历史
type School struct {
	Term        *model.AcademicTerm
	Course3B    *model.Course
	Course2A    *model.Course
	Math2A      *model.SubjectOffering
	History3B   *model.SubjectOffering
	Language3B  *model.SubjectOffering
	S           *model.User
	Classmate3B *model.User
	Student2A   *model.User
	Teacher     *model.User
	Retake      *model.RetakeAssignment
}

// SeedSchool 写入重修示例数据集
func SeedSchool(t *testing.T, db *gorm.DB) *School {
	t.Helper()
	f := NewFixture(t, db)

	s := &School{}
	s.Term = f.Term(2025, true)
	s.Teacher = f.User("Laura", "Gómez", "20000001", model.RoleTeacher)
	s.Course3B = f.Course(s.Term.TermID, "3°B", 3)
	s.Course2A = f.Course(s.Term.TermID, "2°A", 2)

	math := f.Subject("Matemática", "MAT")
	history := f.Subject("Historia", "HIS")
	language := f.Subject("Lengua", "LEN")

	s.Math2A = f.Offering(s.Course2A.CourseID, math.SubjectID, &s.Teacher.UserID)
	s.History3B = f.Offering(s.Course3B.CourseID, history.SubjectID, nil)
	s.Language3B = f.Offering(s.Course3B.CourseID, language.SubjectID, &s.Teacher.UserID)
	f.Offering(s.Course3B.CourseID, math.SubjectID, nil)

	s.S = f.Student("Sofía", "Pérez", "40000001")
	s.Classmate3B = f.Student("Bruno", "Acosta", "40000002")
	s.Student2A = f.Student("Carla", "Díaz", "40000003")

	f.Enroll(s.S.UserID, s.Course3B.CourseID)
	f.Enroll(s.Classmate3B.UserID, s.Course3B.CourseID)
	f.Enroll(s.Student2A.UserID, s.Course2A.CourseID)

	s.Retake = f.Retake(s.S.UserID, s.Math2A.OfferingID, &s.History3B.OfferingID, s.Term.TermID)
	return s
}

// IntPtr 测试用 *int
func IntPtr(v int) *int { return &v }

// StrPtr 测试用 *string
func StrPtr(v string) *string { return &v }
