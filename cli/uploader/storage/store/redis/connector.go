package redis

/*
Очередь точек в Redis. Идентификаторы выдаются счетчиком <prefix>:seq, порядок
хранится в сортированном множестве <prefix>:queue (score = id), сами точки
в хэше <prefix>:positions в формате msgpack.

Раздел настроек в конфиге:

server = "localhost:6379"
password = ""
db = "0"
key_prefix = "tracker"
*/

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/daniil11ru/tracker/cli/uploader/connector"
	"github.com/daniil11ru/tracker/cli/uploader/types"
	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
	"gopkg.in/vmihailenco/msgpack.v2"
)

const deleteAttempts = 5

var ErrCountMismatch = errors.New("часть записей отсутствует в очереди")

type record struct {
	DeviceID           string  `msgpack:"device_id"`
	Time               int64   `msgpack:"time"`
	Latitude           float64 `msgpack:"lat"`
	Longitude          float64 `msgpack:"lon"`
	HorizontalAccuracy float64 `msgpack:"hacc"`
	Altitude           float64 `msgpack:"alt"`
	Speed              float64 `msgpack:"speed"`
	Course             float64 `msgpack:"course"`
	Battery            float64 `msgpack:"batt"`
}

type Connector struct {
	client    *redis.Client
	seqKey    string
	queueKey  string
	recordKey string
}

func (c *Connector) Init(cfg map[string]string) error {
	if cfg == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}

	db, err := strconv.Atoi(connector.GetOptionValue("db", "0", cfg))
	if err != nil {
		return fmt.Errorf("некорректный номер базы Redis: %v", err)
	}

	prefix := connector.GetOptionValue("key_prefix", "tracker", cfg)
	c.seqKey = prefix + ":seq"
	c.queueKey = prefix + ":queue"
	c.recordKey = prefix + ":positions"

	c.client = redis.NewClient(&redis.Options{
		Addr:     connector.GetOptionValue("server", "localhost:6379", cfg),
		Password: cfg["password"],
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("Redis недоступен: %v", err)
	}
	return nil
}

func (c *Connector) Insert(ctx context.Context, p types.Position) (int64, error) {
	if c.client == nil {
		return 0, fmt.Errorf("соединение с Redis не установлено")
	}

	data, err := msgpack.Marshal(record{
		DeviceID:           p.DeviceID,
		Time:               p.Timestamp(),
		Latitude:           p.Latitude,
		Longitude:          p.Longitude,
		HorizontalAccuracy: p.HorizontalAccuracy,
		Altitude:           p.Altitude,
		Speed:              p.Speed,
		Course:             p.Course,
		Battery:            p.Battery,
	})
	if err != nil {
		return 0, fmt.Errorf("ошибка сериализации точки: %v", err)
	}

	id, err := c.client.Incr(ctx, c.seqKey).Result()
	if err != nil {
		return 0, fmt.Errorf("не удалось получить идентификатор: %w", err)
	}

	member := strconv.FormatInt(id, 10)
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, c.recordKey, member, data)
		pipe.ZAdd(ctx, c.queueKey, &redis.Z{Score: float64(id), Member: member})
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("не удалось вставить запись: %w", err)
	}
	return id, nil
}

func (c *Connector) SelectBatch(ctx context.Context, limit int) ([]types.Position, error) {
	if c.client == nil {
		return nil, fmt.Errorf("соединение с Redis не установлено")
	}

	members, err := c.client.ZRange(ctx, c.queueKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("не удалось выполнить выборку: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	values, err := c.client.HMGet(ctx, c.recordKey, members...).Result()
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать записи: %w", err)
	}

	positions := make([]types.Position, 0, len(members))
	for i, member := range members {
		raw, ok := values[i].(string)
		if !ok {
			return nil, fmt.Errorf("запись %s отсутствует в хэше %s", member, c.recordKey)
		}

		var r record
		if err = msgpack.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("ошибка разбора записи %s: %v", member, err)
		}
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("некорректный идентификатор %s: %v", member, err)
		}

		positions = append(positions, types.Position{
			ID:                 id,
			DeviceID:           r.DeviceID,
			Time:               time.UnixMilli(r.Time).UTC(),
			Latitude:           r.Latitude,
			Longitude:          r.Longitude,
			HorizontalAccuracy: r.HorizontalAccuracy,
			Altitude:           r.Altitude,
			Speed:              r.Speed,
			Course:             r.Course,
			Battery:            r.Battery,
		})
	}
	return positions, nil
}

// DeleteBatch удаляет записи под WATCH: если хотя бы одной записи нет, ничего не удаляется
func (c *Connector) DeleteBatch(ctx context.Context, ids []int64) (int64, error) {
	if c.client == nil {
		return 0, fmt.Errorf("соединение с Redis не установлено")
	}
	if len(ids) == 0 {
		return 0, nil
	}

	members := make([]string, len(ids))
	zmembers := make([]interface{}, len(ids))
	for i, id := range ids {
		members[i] = strconv.FormatInt(id, 10)
		zmembers[i] = members[i]
	}

	remove := func(tx *redis.Tx) error {
		values, err := tx.HMGet(ctx, c.recordKey, members...).Result()
		if err != nil {
			return err
		}
		for i, v := range values {
			if v == nil {
				return fmt.Errorf("%w: id %s", ErrCountMismatch, members[i])
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.ZRem(ctx, c.queueKey, zmembers...)
			pipe.HDel(ctx, c.recordKey, members...)
			return nil
		})
		return err
	}

	for i := 0; i < deleteAttempts; i++ {
		err := c.client.Watch(ctx, remove, c.queueKey, c.recordKey)
		if err == nil {
			return int64(len(ids)), nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return 0, fmt.Errorf("не удалось удалить записи: %w", err)
		}
		log.WithField("attempt", i+1).Debug("Очередь Redis изменилась во время удаления, повтор")
	}
	return 0, fmt.Errorf("не удалось удалить записи за %d попыток", deleteAttempts)
}

func (c *Connector) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
