package repository

import (
	"fmt"

	apperrors "github.com/yourusername/trivia-host/internal/pkg/errors"
)

var (
	// ErrGameAlreadyLive означает, что игра уже в статусе LIVE.
	ErrGameAlreadyLive = fmt.Errorf("%w: game is already live", apperrors.ErrConflict)
	// ErrGameNotLive означает, что операция требует идущей игры.
	ErrGameNotLive = fmt.Errorf("%w: game is not live", apperrors.ErrConflict)
	// ErrStaleGameState означает, что состояние игры изменилось после чтения (версия не совпала).
	ErrStaleGameState = fmt.Errorf("%w: game state was modified concurrently", apperrors.ErrConflict)
	// ErrDuplicateAnswer означает, что команда уже ответила на этот вопрос.
	ErrDuplicateAnswer = fmt.Errorf("%w: team already answered this question", apperrors.ErrConflict)
)
