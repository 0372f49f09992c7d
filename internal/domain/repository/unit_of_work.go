package repository

import "context"

// Repositories объединяет репозитории, работающие в одной транзакции
type Repositories struct {
	Games     GameRepository
	States    GameStateRepository
	Questions QuestionRepository
	Answers   AnswerRepository
	Teams     TeamRepository
}

// UnitOfWork выполняет fn атомарно: либо применяются все изменения, либо ни одного.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(repos Repositories) error) error
}
