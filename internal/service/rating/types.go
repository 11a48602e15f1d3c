package rating

// DTOs
type SubmitRequest struct {
	Score    int    `json:"score" binding:"required,min=1,max=5"`
	Feedback string `json:"feedback" binding:"omitempty,max=2000"`
}
