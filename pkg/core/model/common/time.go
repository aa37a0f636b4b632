package common

import (
	"fmt"
	"strings"
	"time"
)

// FlexTime 兼容多种格式的时间，用于接收各 CI 平台及前端提交的时间字段
type FlexTime struct {
	time.Time
}

var timeFormats = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime 依次尝试支持的格式，GitLab 的 "2019-11-12 15:27:35 UTC" 也在其中
func ParseTime(str string) (time.Time, error) {
	str = strings.TrimSpace(str)
	if str == "" {
		return time.Time{}, fmt.Errorf("时间为空")
	}

	var parseErr error
	for _, format := range timeFormats {
		parsed, err := time.Parse(format, str)
		if err == nil {
			return parsed.UTC(), nil
		}
		parseErr = err
	}
	return time.Time{}, fmt.Errorf("无法解析时间格式: %s, 错误: %v", str, parseErr)
}

func (t *FlexTime) UnmarshalJSON(data []byte) error {
	str := strings.Trim(string(data), "\"")
	if str == "" || str == "null" {
		t.Time = time.Time{}
		return nil
	}

	parsed, err := ParseTime(str)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t FlexTime) MarshalJSON() ([]byte, error) {
	if t.Time.IsZero() {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("\"%s\"", t.Time.Format(time.RFC3339))), nil
}

// ToTime 零值返回 nil，便于直接赋给可空列
func (t *FlexTime) ToTime() *time.Time {
	if t == nil || t.Time.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}
