package dto

// SubmitAnswerRequest - ответ команды на текущий вопрос
type SubmitAnswerRequest struct {
	TeamID     uint   `json:"teamId" binding:"required"`
	QuestionID uint   `json:"questionId" binding:"required"`
	Response   string `json:"response" binding:"required"`
}

// GradeAnswerRequest - оценка ответа ведущим.
// Points задает начисленные очки явно; без него берется стоимость вопроса.
type GradeAnswerRequest struct {
	Correct *bool `json:"correct" binding:"required"`
	Points  *int  `json:"points"`
}
