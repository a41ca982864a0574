package protocol

import (
	"strings"

	"pagetap/pkg/model"
)

// ParseRawHeaders 解析 CRLF 连接的原始响应头块。
// 每行按全部冒号切分，恰好两段的行才保留，名与值去除首尾空白；
// 值内含冒号的行会被整行丢弃。
func ParseRawHeaders(raw string) []model.HeaderPair {
	pairs := make([]model.HeaderPair, 0)
	for _, line := range strings.Split(raw, "\r\n") {
		parts := strings.Split(line, ":")
		if len(parts) != 2 {
			continue
		}
		pairs = append(pairs, model.HeaderPair{
			Name:  strings.TrimSpace(parts[0]),
			Value: strings.TrimSpace(parts[1]),
		})
	}
	return pairs
}
