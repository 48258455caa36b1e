package rabbitmq

/*
Публикация пакетов точек в RabbitMQ с подтверждениями издателя (publisher confirms).

Раздел настроек в конфиге:

host = "localhost"
port = "5672"
user = "guest"
password = "guest"
vhost = "/"
exchange = ""
key = "tracker.positions"
*/

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"sync"

	"github.com/daniil11ru/tracker/cli/uploader/connector"
	"github.com/daniil11ru/tracker/cli/uploader/uploader/transport"
	"github.com/streadway/amqp"
)

type Connector struct {
	mu         sync.Mutex
	connection *amqp.Connection
	channel    *amqp.Channel
	confirms   chan amqp.Confirmation
	exchange   string
	key        string
	published  uint64
}

func (c *Connector) Init(cfg map[string]string) error {
	var err error
	if cfg == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}

	c.exchange = cfg["exchange"]
	c.key = connector.GetOptionValue("key", "tracker.positions", cfg)

	dsn := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(connector.GetOptionValue("user", "guest", cfg), connector.GetOptionValue("password", "guest", cfg)),
		Host:   net.JoinHostPort(connector.GetOptionValue("host", "localhost", cfg), connector.GetOptionValue("port", "5672", cfg)),
		Path:   connector.GetOptionValue("vhost", "/", cfg),
	}

	if c.connection, err = amqp.Dial(dsn.String()); err != nil {
		return fmt.Errorf("не удалось подключиться к RabbitMQ: %v", err)
	}
	if c.channel, err = c.connection.Channel(); err != nil {
		return fmt.Errorf("не удалось открыть канал RabbitMQ: %v", err)
	}

	if c.exchange == "" {
		if _, err = c.channel.QueueDeclare(c.key, true, false, false, false, nil); err != nil {
			return fmt.Errorf("не удалось объявить очередь %s: %v", c.key, err)
		}
	}

	if err = c.channel.Confirm(false); err != nil {
		return fmt.Errorf("RabbitMQ не поддерживает подтверждения: %v", err)
	}
	c.confirms = c.channel.NotifyPublish(make(chan amqp.Confirmation, 16))
	return nil
}

// Send публикует пакет и ждет подтверждения брокера именно для этой публикации
func (c *Connector) Send(ctx context.Context, req transport.Request) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel == nil {
		return fmt.Errorf("транспорт не инициализирован")
	}

	err := c.channel.Publish(c.exchange, c.key, false, false, amqp.Publishing{
		ContentType:  "text/plain",
		DeliveryMode: amqp.Persistent,
		Body:         req.Body(),
	})
	if err != nil {
		return fmt.Errorf("не удалось отправить сообщение: %v", err)
	}
	c.published++

	for {
		select {
		case confirm, ok := <-c.confirms:
			if !ok {
				return fmt.Errorf("канал RabbitMQ закрыт")
			}
			if confirm.DeliveryTag < c.published {
				// подтверждение публикации, которую уже перестали ждать
				continue
			}
			if !confirm.Ack {
				return fmt.Errorf("брокер отклонил сообщение %d", confirm.DeliveryTag)
			}
			return nil
		case <-ctx.Done():
			return fmt.Errorf("не дождались подтверждения брокера: %v", ctx.Err())
		}
	}
}

func (c *Connector) Close() error {
	if c.connection == nil {
		return nil
	}
	return c.connection.Close()
}
