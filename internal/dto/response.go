package dto

// ── 通用响应 ──

// CountResponse 计数结果
type CountResponse struct {
	Count int `json:"count"`
}

// ChildBrief 儿童简要信息
type ChildBrief struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}
