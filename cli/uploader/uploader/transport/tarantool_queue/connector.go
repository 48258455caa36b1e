package tarantool_queue

/*
Плагин для отправки пакетов точек в Tarantool queue.

Раздел настроек, которые должны быть в конфиге для подключения транспорта:

host = "localhost"
port = "3301"
user = "user"
password = "pass"
max_recons = "5"
timeout = "1"
reconnect = "1"
queue = "positions"
*/

import (
	"context"
	"fmt"
	"time"

	"github.com/daniil11ru/tracker/cli/uploader/connector"
	"github.com/daniil11ru/tracker/cli/uploader/uploader/transport"
	"github.com/tarantool/go-tarantool"
	"github.com/tarantool/go-tarantool/queue"
)

type Connector struct {
	connection *tarantool.Connection
	queue      queue.Queue
}

func (c *Connector) Init(cfg map[string]string) error {
	if cfg == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}

	conStr := fmt.Sprintf("%s:%s", connector.GetOptionValue("host", "localhost", cfg), connector.GetOptionValue("port", "3301", cfg))

	maxRecons, err := connector.GetIntOptionValue("max_recons", 5, cfg)
	if err != nil {
		return err
	}
	timeout, err := connector.GetIntOptionValue("timeout", 1, cfg)
	if err != nil {
		return err
	}
	reconnect, err := connector.GetIntOptionValue("reconnect", 1, cfg)
	if err != nil {
		return err
	}
	opts := tarantool.Opts{
		Timeout:       time.Duration(timeout) * time.Second,
		Reconnect:     time.Duration(reconnect) * time.Second,
		MaxReconnects: uint(maxRecons),
		User:          cfg["user"],
		Pass:          cfg["password"],
	}

	c.connection, err = tarantool.Connect(conStr, opts)
	if err != nil {
		return fmt.Errorf("не удалось подключиться к Tarantool: %v", err)
	}
	c.queue = queue.New(c.connection, connector.GetOptionValue("queue", "positions", cfg))

	return err
}

// Send кладет пакет в очередь, ожидание ограничено таймаутом соединения
func (c *Connector) Send(ctx context.Context, req transport.Request) error {
	if c.queue == nil {
		return fmt.Errorf("транспорт не инициализирован")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := c.queue.Put(string(req.Body())); err != nil {
		return fmt.Errorf("не удалось отправить сообщение: %v", err)
	}
	return nil
}

func (c *Connector) Close() error {
	if c.connection == nil {
		return nil
	}
	return c.connection.Close()
}
