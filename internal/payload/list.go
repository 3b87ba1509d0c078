package payload

// Sort order constants for list endpoints.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

type (
	// ListReqQuery carries the shared pagination parameters (from query).
	// Endpoints that need extra filters define them on their own struct;
	// embedding breaks Gin's binding validation.
	ListReqQuery struct {
		PageIndex *int `form:"page_index" binding:"required"`
		PageSize  *int `form:"page_size" binding:"required"`
	}
	ListResp[T any] struct {
		Rows  []T   `json:"rows"`
		Count int64 `json:"count"`
	}
)
