package recorder

import "time"

// RecordRow 拦截记录历史表。Payload 保存脱敏后的完整记录 JSON，
// Method/StatusCode/Timestamp 是从 props 抽出的查询列。
type RecordRow struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TapID      string    `gorm:"index" json:"tapId"`
	RequestID  string    `gorm:"index" json:"requestId"`
	Type       string    `gorm:"index" json:"type"`
	URL        string    `json:"url"`
	Method     string    `json:"method"`
	StatusCode int       `json:"statusCode"`
	Timestamp  int64     `gorm:"index" json:"timestamp"`
	Payload    string    `gorm:"type:text" json:"payload"`
	CreatedAt  time.Time `json:"createdAt"`
}
