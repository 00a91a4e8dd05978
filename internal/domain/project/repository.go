package project

import (
	"context"

	"github.com/Grihladin/42Connect/internal/domain/student"
)

// Repository определяет контракт персистентности записей проектов.
// Реализация - internal/infrastructure/persistence/postgres.
type Repository interface {
	// ReplaceForStudent атомарно заменяет все записи студента свежим снимком
	// синхронизации. Записи, исчезнувшие на платформе, удаляются.
	ReplaceForStudent(ctx context.Context, login student.Login, records []Record) error

	// ListForStudent возвращает все записи студента.
	// Порядок не гарантируется - сортировка выполняется доменом.
	ListForStudent(ctx context.Context, login student.Login) ([]Record, error)
}
