package http

// Contact DTOs
type ContactRequest struct {
	Name    string `json:"name" form:"name" binding:"required"`
	Email   string `json:"email" form:"email" binding:"required,email"`
	Message string `json:"message" form:"message" binding:"required"`
}

// Health DTOs
type HealthResponse struct {
	OK         bool   `json:"ok"`
	ReadyState string `json:"readyState"`
	HasBucket  bool   `json:"hasBucket"`
	Driver     string `json:"driver"`
	Cache      string `json:"cache"`
	Events     string `json:"events"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
