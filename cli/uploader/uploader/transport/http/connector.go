package http

/*
Отправка точек на HTTP сервер. Одна точка отправляется GET запросом
http://<address>:<port>/?id=..&timestamp=.., несколько точек одним POST запросом
на http://<address>:<port>/, в теле по одной строке параметров на точку.

Раздел настроек в конфиге (address и port по умолчанию берутся из основных настроек):

address = "demo.example.com"
port = "5055"
timeout = "15"
*/

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/daniil11ru/tracker/cli/uploader/connector"
	"github.com/daniil11ru/tracker/cli/uploader/uploader/transport"
)

type Connector struct {
	client  *http.Client
	baseUrl string
}

func (c *Connector) Init(cfg map[string]string) error {
	if cfg == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}

	address := cfg["address"]
	if address == "" {
		return fmt.Errorf("не задан адрес сервера")
	}
	port := connector.GetOptionValue("port", "5055", cfg)

	timeoutSec, err := connector.GetIntOptionValue("timeout", 15, cfg)
	if err != nil {
		return err
	}
	timeout := time.Duration(timeoutSec) * time.Second

	c.baseUrl = fmt.Sprintf("http://%s/", net.JoinHostPort(address, port))
	c.client = &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: timeout}).DialContext,
			ResponseHeaderTimeout: timeout,
		},
	}
	return nil
}

func (c *Connector) newRequest(ctx context.Context, req transport.Request) (*http.Request, error) {
	if req.Single() {
		return http.NewRequestWithContext(ctx, http.MethodGet, c.baseUrl+"?"+req.Records[0], nil)
	}

	body := req.Body()
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseUrl, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	r.ContentLength = int64(len(body))
	return r, nil
}

func (c *Connector) Send(ctx context.Context, req transport.Request) error {
	if c.client == nil {
		return fmt.Errorf("транспорт не инициализирован")
	}
	if len(req.Records) == 0 {
		return fmt.Errorf("пустой запрос")
	}

	r, err := c.newRequest(ctx, req)
	if err != nil {
		return fmt.Errorf("ошибка формирования запроса: %v", err)
	}

	resp, err := c.client.Do(r)
	if err != nil {
		return fmt.Errorf("ошибка запроса: %w", err)
	}
	defer resp.Body.Close()

	if _, err = io.Copy(io.Discard, resp.Body); err != nil {
		return fmt.Errorf("ошибка чтения ответа: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("сервер вернул статус %d", resp.StatusCode)
	}
	return nil
}

func (c *Connector) Close() error {
	if c.client != nil {
		c.client.CloseIdleConnections()
	}
	return nil
}
