package queue

import "time"

// EventHeader 定义所有事件的通用头部元数据.
type EventHeader struct {
	// Topic 冗余记录消息主题，便于离线处理或转储后定位来源主题.
	Topic string `json:"topic"`
	// TraceID 分布式追踪/关联 ID.
	TraceID string `json:"trace_id,omitempty"`
	// Producer 生产者服务名或节点标识.
	Producer string `json:"producer,omitempty"`
	// OccurredAt 事件发生时间（UTC，RFC3339）.
	OccurredAt time.Time `json:"occurred_at"`
	// Version 事件负载版本.
	Version string `json:"version,omitempty"`
}

// Message 是统一的消息封装，Header + Payload.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// Identified 负载可提供确定性的消息 ID.
type Identified interface {
	MessageID() string
}

// UserLoadRequested 请求分析用户时间线.
type UserLoadRequested struct {
	Name      string `json:"name"`
	RequestID string `json:"request_id"`
}

// MessageID 实现 Identified.
func (p UserLoadRequested) MessageID() string { return p.RequestID }

// UserLoadFinished 分析结束通知，Status 为 done 或 error.
type UserLoadFinished struct {
	Name      string `json:"name"`
	RequestID string `json:"request_id,omitempty"`
	Status    string `json:"status"`
	Header    string `json:"header,omitempty"`
	Total     int    `json:"total,omitempty"`
}
