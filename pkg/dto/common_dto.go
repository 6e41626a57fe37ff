package dto

// PaginationQuery binds ?page=&limit= query parameters.
type PaginationQuery struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// Normalize fills defaults and returns the row offset.
func (q *PaginationQuery) Normalize(defaultLimit int) int {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultLimit
	}
	return (q.Page - 1) * q.Limit
}

// Meta describes the page that was returned for this query.
func (q PaginationQuery) Meta(returned int) PaginationMeta {
	return PaginationMeta{
		CurrentPage: q.Page,
		Limit:       q.Limit,
		HasMore:     returned == q.Limit,
	}
}

type PaginationMeta struct {
	CurrentPage int  `json:"current_page"`
	Limit       int  `json:"limit"`
	HasMore     bool `json:"has_more"`
}
