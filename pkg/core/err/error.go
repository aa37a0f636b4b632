package errorc

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"pipelinehealth/pkg/core/consts"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	enableFullStack = true
	stackBufferPool = sync.Pool{
		New: func() interface{} {
			return make([]byte, 4096)
		},
	}
)

var notfounds = []error{gorm.ErrRecordNotFound, redis.Nil}

type ErrorBuilder struct {
	entryName string
}

func NewErrorBuilder(entryName string) *ErrorBuilder {
	return &ErrorBuilder{entryName: entryName}
}

func (e *ErrorBuilder) New(msg string, err error) *Error {
	stack := getStack(2)
	stack.Msg = msg
	stack.Cause = err
	stack.Entry = e.entryName
	stack.ErrorCode = getErrCode(err)
	return stack
}

// New err or msg can nil
func New(msg string, err error) *Error {
	stack := getStack(2)
	stack.Msg = msg
	stack.Cause = err
	stack.ErrorCode = getErrCode(err)
	return stack
}

func (e *Error) WithTraceID(ctx context.Context) *Error {
	if ctx == nil {
		return e
	}
	if traceID, ok := ctx.Value(consts.TraceKey).(string); ok {
		e.TraceID = traceID
	}
	return e
}

func (e *Error) WithCode(code *ErrorCode) *Error {
	e.ErrorCode = code
	return e
}

// DB 标记为数据库错误，已识别的 NotFound 保持不变
func (e *Error) DB() *Error {
	if e.ErrorCode == ErrorCodeNotFound {
		return e
	}
	e.ErrorCode = ErrorCodeDB
	return e
}

func (e *Error) Third() *Error {
	e.ErrorCode = ErrorCodeThird
	return e
}

func (e *Error) ValidWithCtx() *Error {
	e.ErrorCode = ErrorCodeValid
	return e
}

func (e *Error) NoAuth() *Error {
	e.ErrorCode = ErrorCodeNoAuth
	return e
}

func (e *Error) Forbidden() *Error {
	e.ErrorCode = ErrorCodeForbidden
	return e
}

func (e *Error) NotFound() *Error {
	e.ErrorCode = ErrorCodeNotFound
	return e
}

func (e *Error) Conflict() *Error {
	e.ErrorCode = ErrorCodeConflict
	return e
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	chain := e.chain()
	root, original := rootOf(chain)

	var sb strings.Builder
	sb.WriteString("========================= Root Cause =========================\n")
	if original != nil {
		sb.WriteString(fmt.Sprintf("Error: %s\n", original.Error()))
	}
	if root.FileName != "" {
		sb.WriteString(fmt.Sprintf("Location: %s:%d\n", root.FileName, root.Line))
	}
	if root.FuncName != "" {
		sb.WriteString(fmt.Sprintf("Function: %s\n", root.FuncName))
	}
	if root.Msg != "" {
		sb.WriteString(fmt.Sprintf("Message: %s\n", root.Msg))
	}
	if root.TraceID != "" {
		sb.WriteString(fmt.Sprintf("Trace ID: %s\n", root.TraceID))
	}

	sb.WriteString("\n======================= Full Error Trace =======================\n")
	for i, err := range chain {
		sb.WriteString(fmt.Sprintf("%d: ", i+1))
		if err.ErrorCode != nil {
			sb.WriteString(fmt.Sprintf("[%s] ", err.ErrorCode.String()))
		}
		sb.WriteString(err.Msg)
		if err.FileName != "" {
			sb.WriteString(fmt.Sprintf("\n   at %s:%d", err.FileName, err.Line))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("==============================================================\n")

	return sb.String()
}

// RootCause 返回根因的简短描述
func (e *Error) RootCause() string {
	if e == nil {
		return ""
	}

	root, original := rootOf(e.chain())

	var sb strings.Builder
	sb.WriteString(root.Msg)
	if original != nil {
		sb.WriteString(fmt.Sprintf(": %v", original))
	}
	if root.FileName != "" {
		sb.WriteString(fmt.Sprintf(" at %s:%d", root.FileName, root.Line))
	}
	return sb.String()
}

func (e *Error) ToLog(log *logrus.Entry, msgs ...string) *Error {
	if e == nil {
		return nil
	}

	chain := e.chain()
	root, original := rootOf(chain)

	fields := make(map[string]interface{})
	fields["root_cause_file"] = root.FileName
	fields["root_cause_line"] = root.Line
	fields["root_cause_func"] = root.FuncName
	fields["root_cause_msg"] = root.Msg
	if original != nil {
		fields["root_cause_original_error"] = original.Error()
	}
	if root.ErrorCode != nil {
		fields["root_cause_error_code"] = root.ErrorCode.String()
	}

	levels := make([]map[string]interface{}, 0, len(chain))
	for _, err := range chain {
		level := map[string]interface{}{
			"file": err.FileName,
			"line": err.Line,
			"func": err.FuncName,
			"msg":  err.Msg,
		}
		if err.ErrorCode != nil {
			level["code"] = err.ErrorCode.String()
		}
		if err.TraceID != "" {
			level["trace_id"] = err.TraceID
		}
		if err == e && enableFullStack {
			if stack := err.getFullStack(); stack != "" {
				level["stack_trace"] = stack
			}
		}
		levels = append(levels, level)
	}
	fields["error_chain"] = levels
	if e.TraceID != "" {
		fields["trace_id"] = e.TraceID
	}

	finalMsg := e.Msg
	if len(msgs) > 0 {
		finalMsg = strings.Join(msgs, ", ")
	}
	if finalMsg == "" {
		finalMsg = "An error occurred"
	}

	log.WithFields(fields).Error(finalMsg)
	return e
}

// chain 收集 *Error 包装链，最外层在前
func (e *Error) chain() []*Error {
	var errChain []*Error
	curr := e
	for {
		errChain = append(errChain, curr)
		cause, ok := curr.Cause.(*Error)
		if !ok {
			break
		}
		curr = cause
	}
	return errChain
}

// rootOf 第一个包装了非 *Error 错误的节点即为根因，找不到时取最内层
func rootOf(chain []*Error) (*Error, error) {
	for i := len(chain) - 1; i >= 0; i-- {
		if chain[i].Cause != nil {
			if _, ok := chain[i].Cause.(*Error); !ok {
				return chain[i], chain[i].Cause
			}
		}
	}
	last := chain[len(chain)-1]
	return last, last.Cause
}

func getStack(skip int) *Error {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return &Error{
			FileName: "<unknown>",
			FuncName: "<unknown>",
		}
	}

	funcName := "<unknown>"
	if details := runtime.FuncForPC(pc); details != nil {
		funcName = details.Name()
	}

	return &Error{
		FileName: file,
		Line:     line,
		FuncName: funcName,
	}
}

func (e *Error) getFullStack() string {
	if e.Stack != "" {
		return e.Stack
	}
	if !enableFullStack {
		return ""
	}

	buf := stackBufferPool.Get().([]byte)
	defer stackBufferPool.Put(buf)

	n := runtime.Stack(buf, false)
	e.Stack = string(buf[:n])
	return e.Stack
}

// SetStackTraceEnabled 控制是否启用完整堆栈跟踪
func SetStackTraceEnabled(enabled bool) {
	enableFullStack = enabled
}

func getErrCode(err error) *ErrorCode {
	if err == nil {
		return ErrorCodeUnknown
	}

	var inner *Error
	if errors.As(err, &inner) && inner.ErrorCode != nil {
		return inner.ErrorCode
	}

	for _, e := range notfounds {
		if errors.Is(err, e) {
			return ErrorCodeNotFound
		}
	}

	return ErrorCodeUnknown
}

// Quick 不采集调用位置，适用于高频路径
func (e *ErrorBuilder) Quick(msg string, err error) *Error {
	return &Error{
		Msg:       msg,
		Cause:     err,
		Entry:     e.entryName,
		ErrorCode: getErrCode(err),
	}
}

func Quick(msg string, err error) *Error {
	return &Error{
		Msg:       msg,
		Cause:     err,
		ErrorCode: getErrCode(err),
	}
}

func (e *ErrorBuilder) NotFound(msg string) *Error {
	return &Error{Msg: msg, Entry: e.entryName, ErrorCode: ErrorCodeNotFound}
}

func (e *ErrorBuilder) BadRequest(msg string) *Error {
	return &Error{Msg: msg, Entry: e.entryName, ErrorCode: ErrorCodeValid}
}

func (e *ErrorBuilder) Unauthorized(msg string) *Error {
	return &Error{Msg: msg, Entry: e.entryName, ErrorCode: ErrorCodeNoAuth}
}

func (e *ErrorBuilder) Forbidden(msg string) *Error {
	return &Error{Msg: msg, Entry: e.entryName, ErrorCode: ErrorCodeForbidden}
}

func (e *ErrorBuilder) Conflict(msg string) *Error {
	return &Error{Msg: msg, Entry: e.entryName, ErrorCode: ErrorCodeConflict}
}

func ParseError(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	return Quick(err.Error(), err)
}

func IsNotFound(err error) bool {
	if err == nil {
		return false
	}

	var e *Error
	if errors.As(err, &e) && e.ErrorCode == ErrorCodeNotFound {
		return true
	}

	for _, target := range notfounds {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}
