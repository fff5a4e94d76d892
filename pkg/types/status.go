// Package types 定义状态资源与用户统计负载的线上格式，服务端与轮询客户端共用.
package types

// Status 状态资源的 status 字段.
type Status string

const (
	StatusQueued  Status = "queued"  // 已排队，等待 worker 处理
	StatusRunning Status = "running" // 正在抓取或分析
	StatusDone    Status = "done"    // 完成，data 字段可用
	StatusError   Status = "error"   // 失败，header/message 描述原因
)

// Pending 除 done 与 error 之外的状态都视为进行中.
func (s Status) Pending() bool {
	return s != StatusDone && s != StatusError
}

// StatusResponse 状态资源 /u/<name>.json 的响应体.
type StatusResponse struct {
	Status  Status      `json:"status"`
	Header  string      `json:"header"`
	Message string      `json:"message"`
	Code    int         `json:"code,omitempty"`
	Data    *UserReport `json:"data,omitempty"`
}

// NewStatus 构造不含数据的状态记录.
func NewStatus(status Status, header, message string, code int) StatusResponse {
	return StatusResponse{Status: status, Header: header, Message: message, Code: code}
}
