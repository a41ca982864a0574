package model

type TapID string

// PhaseType 拦截记录的阶段标签（固定枚举）
type PhaseType string

const (
	PhaseOpen             PhaseType = "open"
	PhaseSetRequestHeader PhaseType = "setRequestHeader"
	PhaseSend             PhaseType = "send"
	PhaseComplete         PhaseType = "complete"
	PhaseError            PhaseType = "error"
	PhaseTracking         PhaseType = "tracking"
)

// HeaderPair 由单行冒号分隔的头部解析而来，名称与值均已去除首尾空白
type HeaderPair struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Record 领域模型：每个被观测阶段发布一条拦截记录
type Record struct {
	RequestID string         `json:"requestId"`
	URL       string         `json:"url"`
	Type      PhaseType      `json:"type"`
	Props     map[string]any `json:"props"`
}

type TapConfig struct {
	SubscriberBuffer int `json:"subscriberBuffer"`
}

type TapInfo struct {
	ID        TapID  `json:"id"`
	Origin    string `json:"origin"`
	Installed bool   `json:"installed"`
}

// TapStats 单个 Tap 的发布统计
type TapStats struct {
	Total  int64               `json:"total"`
	ByType map[PhaseType]int64 `json:"byType"`
}
