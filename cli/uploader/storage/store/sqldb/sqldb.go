package sqldb

/*
Общая часть SQL хранилищ очереди точек. Схема таблицы создается миграциями
конкретного хранилища:

positions (id, device_id, time, latitude, longitude, horizontal_accuracy,
           altitude, speed, course, battery)
*/

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/daniil11ru/tracker/cli/uploader/types"
)

var ErrCountMismatch = errors.New("количество удаленных записей не совпадает с запрошенным")

// Dialect различия SQL диалектов
type Dialect struct {
	// Placeholder возвращает плейсхолдер параметра с номером n, начиная с 1
	Placeholder func(n int) string
	// Returning вставка возвращает id через RETURNING вместо LastInsertId
	Returning bool
}

var Question = func(int) string { return "?" }

var Dollar = func(n int) string { return fmt.Sprintf("$%d", n) }

const columns = "device_id, time, latitude, longitude, horizontal_accuracy, altitude, speed, course, battery"

type Queue struct {
	DB      *sql.DB
	Dialect Dialect
}

func (q *Queue) placeholders(from, count int) string {
	parts := make([]string, count)
	for i := 0; i < count; i++ {
		parts[i] = q.Dialect.Placeholder(from + i)
	}
	return strings.Join(parts, ", ")
}

func (q *Queue) Insert(ctx context.Context, p types.Position) (int64, error) {
	if q.DB == nil {
		return 0, fmt.Errorf("соединение с базой не установлено")
	}

	query := fmt.Sprintf("INSERT INTO positions (%s) VALUES (%s)", columns, q.placeholders(1, 9))
	args := []interface{}{
		p.DeviceID,
		p.Timestamp(),
		p.Latitude,
		p.Longitude,
		p.HorizontalAccuracy,
		p.Altitude,
		p.Speed,
		p.Course,
		p.Battery,
	}

	if q.Dialect.Returning {
		var id int64
		if err := q.DB.QueryRowContext(ctx, query+" RETURNING id", args...).Scan(&id); err != nil {
			return 0, fmt.Errorf("не удалось вставить запись: %w", err)
		}
		return id, nil
	}

	result, err := q.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("не удалось вставить запись: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("не удалось получить идентификатор записи: %w", err)
	}
	return id, nil
}

func (q *Queue) SelectBatch(ctx context.Context, limit int) (positions []types.Position, err error) {
	if q.DB == nil {
		return nil, fmt.Errorf("соединение с базой не установлено")
	}

	query := fmt.Sprintf("SELECT id, %s FROM positions ORDER BY id ASC LIMIT %d", columns, limit)
	rows, err := q.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("не удалось выполнить выборку: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var (
			p      types.Position
			millis int64
		)
		if err = rows.Scan(&p.ID, &p.DeviceID, &millis, &p.Latitude, &p.Longitude,
			&p.HorizontalAccuracy, &p.Altitude, &p.Speed, &p.Course, &p.Battery); err != nil {
			return nil, fmt.Errorf("не удалось прочитать запись: %w", err)
		}
		p.Time = time.UnixMilli(millis).UTC()
		positions = append(positions, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения выборки: %w", err)
	}

	return positions, nil
}

// DeleteBatch удаляет записи в транзакции, при несовпадении количества транзакция откатывается
func (q *Queue) DeleteBatch(ctx context.Context, ids []int64) (deleted int64, err error) {
	if q.DB == nil {
		return 0, fmt.Errorf("соединение с базой не установлено")
	}
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := q.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("не удалось начать транзакцию: %w", err)
	}
	defer rollbackWithError(tx, &err)

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query := fmt.Sprintf("DELETE FROM positions WHERE id IN (%s)", q.placeholders(1, len(ids)))
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("не удалось удалить записи: %w", err)
	}

	deleted, err = result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("не удалось получить количество удаленных записей: %w", err)
	}
	if deleted != int64(len(ids)) {
		err = fmt.Errorf("%w: %d из %d", ErrCountMismatch, deleted, len(ids))
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("не удалось зафиксировать транзакцию: %w", err)
	}
	return deleted, nil
}

func (q *Queue) Close() error {
	if q.DB == nil {
		return nil
	}
	return q.DB.Close()
}

func closeWithError(c interface{ Close() error }, err *error) {
	if cerr := c.Close(); cerr != nil && *err == nil {
		*err = cerr
	}
}

func rollbackWithError(tx *sql.Tx, err *error) {
	if *err == nil {
		return
	}
	if rerr := tx.Rollback(); rerr != nil && !errors.Is(rerr, sql.ErrTxDone) {
		*err = errors.Join(*err, rerr)
	}
}
