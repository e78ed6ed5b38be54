package domain

// SampleQuery is a curated analytics query offered to dashboard pages
type SampleQuery struct {
	ID          string `json:"id"`
	Page        string `json:"page"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	SQL         string `json:"sql"`
}
