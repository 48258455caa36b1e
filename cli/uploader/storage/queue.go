package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/daniil11ru/tracker/cli/uploader/types"
	log "github.com/sirupsen/logrus"
)

var ErrStorageFailure = errors.New("ошибка хранилища")

// Queue упорядоченная очередь точек с доставкой не менее одного раза
type Queue struct {
	store Keeper
}

func NewQueue(store Keeper) *Queue {
	return &Queue{store: store}
}

// Enqueue сохраняет точку, ошибка означает что точка не попала в очередь
func (q *Queue) Enqueue(ctx context.Context, p types.Position) (int64, error) {
	id, err := q.store.Insert(ctx, p)
	if err != nil {
		return 0, fmt.Errorf("%w: не удалось сохранить точку: %v", ErrStorageFailure, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%w: хранилище вернуло некорректный идентификатор %d", ErrStorageFailure, id)
	}

	log.WithField("id", id).Debug("Точка добавлена в очередь")
	return id, nil
}

// PeekBatch возвращает до n самых старых точек, не удаляя их
func (q *Queue) PeekBatch(ctx context.Context, n int) ([]types.Position, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: некорректный размер пакета %d", ErrStorageFailure, n)
	}

	positions, err := q.store.SelectBatch(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("%w: не удалось прочитать точки: %v", ErrStorageFailure, err)
	}
	if len(positions) > n {
		return nil, fmt.Errorf("%w: хранилище вернуло %d точек вместо не более %d", ErrStorageFailure, len(positions), n)
	}

	return positions, nil
}

// DeleteBatch удаляет ровно указанный набор точек
func (q *Queue) DeleteBatch(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: идентификатор %d повторяется в пакете", ErrStorageFailure, id)
		}
		seen[id] = struct{}{}
	}

	deleted, err := q.store.DeleteBatch(ctx, ids)
	if err != nil {
		return fmt.Errorf("%w: не удалось удалить точки: %v", ErrStorageFailure, err)
	}
	if deleted != int64(len(ids)) {
		return fmt.Errorf("%w: удалено %d точек вместо %d", ErrStorageFailure, deleted, len(ids))
	}

	log.WithField("ids", ids).Debug("Точки удалены из очереди")
	return nil
}
