package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется, когда нет валидной сессии.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden используется, когда у пользователя недостаточно прав для действия.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrExpiredToken используется, когда срок действия токена истек.
	ErrExpiredToken = errors.New("token is expired")

	// ErrConflict используется для недопустимых переходов состояния
	// (игра уже идет, последний вопрос, конкурентное изменение состояния).
	ErrConflict = errors.New("resource state conflict")

	// ErrTimeout используется, когда внешний вызов (БД, Redis) не уложился в отведенное время.
	// Клиент может повторить запрос.
	ErrTimeout = errors.New("operation timed out")
)
