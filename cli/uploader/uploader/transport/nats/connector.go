package nats

/*
Публикация пакетов точек в NATS. Сообщение содержит строки параметров точек,
разделенные переводом строки, в том же формате что и тело HTTP запроса.

Раздел настроек в конфиге:

servers = "nats://localhost:4222"
subject = "tracker.positions"
user = ""
password = ""
max_reconnects = "60"
*/

import (
	"context"
	"fmt"

	"github.com/daniil11ru/tracker/cli/uploader/connector"
	"github.com/daniil11ru/tracker/cli/uploader/uploader/transport"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

type Connector struct {
	connection *nats.Conn
	subject    string
}

func (c *Connector) Init(cfg map[string]string) error {
	if cfg == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}

	maxReconnects, err := connector.GetIntOptionValue("max_reconnects", 60, cfg)
	if err != nil {
		return err
	}
	c.subject = connector.GetOptionValue("subject", "tracker.positions", cfg)

	opts := []nats.Option{
		nats.Name("tracker uploader"),
		nats.MaxReconnects(maxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.WithField("err", err).Warn("Соединение с NATS потеряно")
		}),
	}
	if user := cfg["user"]; user != "" {
		opts = append(opts, nats.UserInfo(user, cfg["password"]))
	}

	c.connection, err = nats.Connect(connector.GetOptionValue("servers", nats.DefaultURL, cfg), opts...)
	if err != nil {
		return fmt.Errorf("не удалось подключиться к NATS: %v", err)
	}
	return nil
}

// Send публикует пакет и ждет подтверждения сервера через Flush
func (c *Connector) Send(ctx context.Context, req transport.Request) error {
	if c.connection == nil {
		return fmt.Errorf("транспорт не инициализирован")
	}

	if err := c.connection.Publish(c.subject, req.Body()); err != nil {
		return fmt.Errorf("не удалось отправить сообщение: %v", err)
	}
	if err := c.connection.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("сервер NATS не подтвердил сообщение: %v", err)
	}
	return nil
}

func (c *Connector) Close() error {
	if c.connection != nil {
		c.connection.Close()
	}
	return nil
}
