package dto

// ── 班级 / 科目 / 开课 / 注册 DTO ──

// CreateCourseRequest 创建班级请求
type CreateCourseRequest struct {
	Name       string `json:"name"        binding:"required,max=50"`
	GradeLevel int    `json:"grade_level" binding:"required,grade_level"`
	TermID     string `json:"term_id"     binding:"omitempty,uuid"` // 为空时使用当前学年
}

// CourseResponse 班级信息响应
type CourseResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	GradeLevel int    `json:"grade_level"`
	TermID     string `json:"term_id"`
}

// CreateSubjectRequest 创建科目请求
type CreateSubjectRequest struct {
	Name string `json:"name" binding:"required,max=100"`
	Code string `json:"code" binding:"required,alphanum,max=20"`
}

// SubjectResponse 科目信息响应
type SubjectResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// CreateOfferingRequest 在班级下开课请求
type CreateOfferingRequest struct {
	SubjectID         string  `json:"subject_id"         binding:"required,uuid"`
	TeacherID         *string `json:"teacher_id"         binding:"omitempty,uuid"`
	RequiresSubgroups bool    `json:"requires_subgroups"`
}

// AssignTeacherRequest 指派任课教师，teacher_id 为 null 表示取消指派
type AssignTeacherRequest struct {
	TeacherID *string `json:"teacher_id" binding:"omitempty,uuid"`
}

// OfferingResponse 开课信息响应
type OfferingResponse struct {
	ID                string `json:"id"`
	SubjectID         string `json:"subject_id"`
	SubjectName       string `json:"subject_name"`
	CourseID          string `json:"course_id"`
	CourseName        string `json:"course_name,omitempty"`
	GradeLevel        int    `json:"grade_level,omitempty"`
	TeacherID         string `json:"teacher_id,omitempty"`
	TeacherName       string `json:"teacher_name,omitempty"`
	RequiresSubgroups bool   `json:"requires_subgroups"`
}

// EnrollRequest 注册学生到班级；已有 active 注册时自动转班
type EnrollRequest struct {
	StudentID string `json:"student_id" binding:"required,uuid"`
}

// EnrollmentResponse 注册信息响应
type EnrollmentResponse struct {
	ID         string `json:"id"`
	StudentID  string `json:"student_id"`
	CourseID   string `json:"course_id"`
	Status     string `json:"status"`
	EnrolledAt string `json:"enrolled_at"`
}

// SubgroupMember 分组成员
type SubgroupMember struct {
	StudentID string `json:"student_id" binding:"required,uuid"`
	Subgroup  string `json:"subgroup"   binding:"omitempty,max=20"`
}

// SetSubgroupMembersRequest 整体替换分组开课的成员名单
type SetSubgroupMembersRequest struct {
	TermID  string           `json:"term_id" binding:"omitempty,uuid"`
	Members []SubgroupMember `json:"members" binding:"dive"`
}
