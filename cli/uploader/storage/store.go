package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/daniil11ru/tracker/cli/uploader/connector"
	"github.com/daniil11ru/tracker/cli/uploader/storage/store/mysql"
	"github.com/daniil11ru/tracker/cli/uploader/storage/store/postgresql"
	"github.com/daniil11ru/tracker/cli/uploader/storage/store/redis"
	"github.com/daniil11ru/tracker/cli/uploader/storage/store/sqlite"
	"github.com/daniil11ru/tracker/cli/uploader/types"
)

var ErrInvalidStorage = errors.New("storage not found")
var ErrUnknownStorage = errors.New("storage isn't support yet")

// Store долговременное хранилище очереди точек
type Store interface {
	connector.Connector
	Keeper
}

// Keeper операции над сохраненными точками
type Keeper interface {
	// Insert сохраняет точку и возвращает присвоенный идентификатор
	Insert(ctx context.Context, p types.Position) (int64, error)

	// SelectBatch возвращает не более limit самых старых точек в порядке вставки
	SelectBatch(ctx context.Context, limit int) ([]types.Position, error)

	// DeleteBatch удаляет точки с указанными идентификаторами целиком или не удаляет ничего
	DeleteBatch(ctx context.Context, ids []int64) (int64, error)
}

// LoadStore создает хранилище по структуре конфига
func LoadStore(storages map[string]map[string]string) (Store, error) {
	if len(storages) == 0 {
		return nil, ErrInvalidStorage
	}

	var db Store
	for store, params := range storages {
		switch store {
		case "sqlite":
			db = &sqlite.Connector{}
		case "postgresql":
			db = &postgresql.Connector{}
		case "mysql":
			db = &mysql.Connector{}
		case "redis":
			db = &redis.Connector{}
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnknownStorage, store)
		}

		if err := db.Init(params); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
		}
		break
	}
	return db, nil
}
