package uploader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/daniil11ru/tracker/cli/uploader/connector"
	"github.com/daniil11ru/tracker/cli/uploader/types"
	"github.com/daniil11ru/tracker/cli/uploader/uploader/transport"
	"github.com/daniil11ru/tracker/cli/uploader/uploader/transport/http"
	"github.com/daniil11ru/tracker/cli/uploader/uploader/transport/nats"
	"github.com/daniil11ru/tracker/cli/uploader/uploader/transport/rabbitmq"
	"github.com/daniil11ru/tracker/cli/uploader/uploader/transport/tarantool_queue"
	log "github.com/sirupsen/logrus"
)

var ErrTransportFailure = errors.New("ошибка отправки")
var ErrUnknownTransport = errors.New("transport isn't support yet")

const DefaultTimeout = 15 * time.Second

// Transport доставляет сформированный запрос до сервера
type Transport interface {
	connector.Connector
	Send(ctx context.Context, req transport.Request) error
}

// LoadTransport создает и подключает транспорт по имени из конфига
func LoadTransport(name string, params map[string]string) (Transport, error) {
	var t Transport
	switch name {
	case "http":
		t = &http.Connector{}
	case "nats":
		t = &nats.Connector{}
	case "rabbitmq":
		t = &rabbitmq.Connector{}
	case "tarantool_queue":
		t = &tarantool_queue.Connector{}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTransport, name)
	}

	if err := t.Init(params); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransportFailure, err)
	}
	return t, nil
}

// Uploader не хранит состояния между вызовами и не меняет порядок точек в пакете
type Uploader struct {
	transport Transport
	timeout   time.Duration
}

func New(t Transport, timeout time.Duration) *Uploader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Uploader{transport: t, timeout: timeout}
}

func (u *Uploader) Send(ctx context.Context, batch []types.Position) error {
	if len(batch) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	if err := u.transport.Send(ctx, FormatRequest(batch)); err != nil {
		return fmt.Errorf("%w: %v", ErrTransportFailure, err)
	}

	log.WithField("count", len(batch)).Debug("Пакет точек отправлен")
	return nil
}

func (u *Uploader) Close() error {
	return u.transport.Close()
}
