package handler

import (
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"sistema-notas/backend/internal/model"
)

// RegisterValidators 在 gin 的校验引擎上注册自定义标签，启动时调用一次
//   - qualitative_mark: TEA / TEP / TED（不区分大小写），允许为空
//   - grade_level: 年级 1–7
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	if err := v.RegisterValidation("qualitative_mark", validQualitativeMark); err != nil {
		return err
	}
	return v.RegisterValidation("grade_level", validGradeLevel)
}

func validQualitativeMark(fl validator.FieldLevel) bool {
	mark := strings.ToUpper(strings.TrimSpace(fl.Field().String()))
	return mark == "" || model.ValidMark(mark)
}

func validGradeLevel(fl validator.FieldLevel) bool {
	level := fl.Field().Int()
	return level >= 1 && level <= 7
}
