package submit

import (
	"fmt"
	"strings"
)

// Kind 为表单校验失败的类别。
type Kind int

const (
	IncompleteFields Kind = iota + 1
	BadEmailFormat
	MessageTooLong
)

func (k Kind) String() string {
	switch k {
	case IncompleteFields:
		return "incomplete fields"
	case BadEmailFormat:
		return "bad email format"
	case MessageTooLong:
		return "message too long"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ValidationError 表示用户输入不完整或格式错误，提交在任何写入前中止。
type ValidationError struct {
	Kind   Kind
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s (%s)", e.Kind, strings.Join(e.Fields, ", "))
}

// PersistenceError 表示请求未能持久化，是唯一会阻止"提交成功"的失败。
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string { return "persist request: " + e.Err.Error() }
func (e *PersistenceError) Unwrap() error { return e.Err }
