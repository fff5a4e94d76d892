// Package types 定义 HTTP 接口的请求与响应结构.
package types

// ErrorResponse 错误响应.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse 组件健康检查结果.
type HealthResponse struct {
	Component string `json:"component"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// LookupForm 首页查询表单，允许带 @ 前缀.
type LookupForm struct {
	Name string `form:"name" rule:"required,max=17"`
}
