package models

// APIResponse is the uniform JSON envelope returned by the HTTP API.
type APIResponse struct {
	Status bool        `json:"status"`
	Msg    string      `json:"msg"`
	Obj    interface{} `json:"obj"`
}

// PaginatedResponse wraps list payloads.
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}
