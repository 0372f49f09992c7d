package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/yourusername/trivia-host/internal/pkg/errors"
)

// Ошибки прогресса игры и приема ответов
var (
	// ErrNoActiveQuestion - у игры не выбран текущий вопрос
	ErrNoActiveQuestion = fmt.Errorf("%w: no active question", apperrors.ErrValidation)
	// ErrAlreadyAtEnd - текущий вопрос последний в порядке игры
	ErrAlreadyAtEnd = fmt.Errorf("%w: already at the last question", apperrors.ErrConflict)
	// ErrGameNotStarted - у игры нет состояния (игра не запускалась или сброшена)
	ErrGameNotStarted = fmt.Errorf("%w: game has not been started", apperrors.ErrNotFound)
	// ErrAnswersClosed - прием ответов закрыт
	ErrAnswersClosed = fmt.Errorf("%w: answers are not being accepted", apperrors.ErrConflict)
	// ErrNotCurrentQuestion - ответ прислан не на текущий вопрос
	ErrNotCurrentQuestion = fmt.Errorf("%w: question is not the current one", apperrors.ErrConflict)
	// ErrScoresHidden - ведущий не открыл таблицу очков игрокам
	ErrScoresHidden = fmt.Errorf("%w: scores are hidden", apperrors.ErrForbidden)
)

// operationContext ограничивает операцию по времени, если таймаут задан
func operationContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// translateCtxErr превращает истекший дедлайн в повторяемую ошибку ErrTimeout
func translateCtxErr(err error) error {
	if err == nil || errors.Is(err, apperrors.ErrTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", apperrors.ErrTimeout, err)
	}
	return err
}
