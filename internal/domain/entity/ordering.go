package entity

import "sort"

// OrderedQuestion - позиция вопроса в общем порядке игры
type OrderedQuestion struct {
	QuestionID     uint `json:"questionId"`
	RoundID        uint `json:"roundId"`
	RoundSortOrder int  `json:"roundSortOrder"`
	SortOrder      int  `json:"sortOrder"`
}

// Less задает строгий порядок: (раунд.sortOrder, раунд.id, вопрос.sortOrder, вопрос.id).
// ID выдаются по порядку создания, поэтому при одинаковых ключах сортировки
// раньше идет то, что раньше создано.
func (q OrderedQuestion) Less(other OrderedQuestion) bool {
	if q.RoundSortOrder != other.RoundSortOrder {
		return q.RoundSortOrder < other.RoundSortOrder
	}
	if q.RoundID != other.RoundID {
		return q.RoundID < other.RoundID
	}
	if q.SortOrder != other.SortOrder {
		return q.SortOrder < other.SortOrder
	}
	return q.QuestionID < other.QuestionID
}

// SortQuestions сортирует вопросы игры в порядке прохождения
func SortQuestions(questions []OrderedQuestion) {
	sort.Slice(questions, func(i, j int) bool {
		return questions[i].Less(questions[j])
	})
}

// IndexOfQuestion возвращает позицию вопроса в упорядоченном списке или -1
func IndexOfQuestion(questions []OrderedQuestion, questionID uint) int {
	for i, q := range questions {
		if q.QuestionID == questionID {
			return i
		}
	}
	return -1
}
