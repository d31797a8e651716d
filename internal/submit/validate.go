package submit

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// emailPattern 为基础邮箱格式：非空白非@ + @ + 非空白非@ + . + 非空白非@。
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// MaxMessageLen 为留言最大字符数。
const MaxMessageLen = 500

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// 错误中的字段名使用 JSON 标签
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("basicemail", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	return v
}

// ValidEmail 报告邮箱是否符合基础格式。
func ValidEmail(s string) bool { return emailPattern.MatchString(s) }

// check 校验表单；必填缺失优先于邮箱格式，邮箱格式优先于留言长度。
func check(in RawFormInput) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	byKind := map[Kind][]string{}
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			byKind[IncompleteFields] = append(byKind[IncompleteFields], fe.Field())
		case "basicemail":
			byKind[BadEmailFormat] = append(byKind[BadEmailFormat], fe.Field())
		case "max":
			byKind[MessageTooLong] = append(byKind[MessageTooLong], fe.Field())
		}
	}
	for _, k := range []Kind{IncompleteFields, BadEmailFormat, MessageTooLong} {
		if fields, ok := byKind[k]; ok {
			return &ValidationError{Kind: k, Fields: fields}
		}
	}
	return err
}
