package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/daniil11ru/tracker/cli/uploader/types"
	"github.com/daniil11ru/tracker/cli/uploader/uploader"
)

/*
Генератор точек.

Формирует одну точку по параметрам и отправляет ее через выбранный транспорт,
так же как это делает трекер.

Usage:
  -id string
    	Идентификатор устройства (обязательно)
  -time string
    	Метка времени в формате RFC 3339, по умолчанию текущее время
  -lat float
    	Широта
  -lon float
    	Долгота
  -hacc float
    	Погрешность в метрах
  -speed float
    	Скорость в м/с
  -bearing float
    	Курс в градусах
  -altitude float
    	Высота
  -batt float
    	Заряд батареи в процентах
  -server string
    	Адрес сервера в формате <host>:<port> (default "localhost:5055")
  -transport string
    	Транспорт: http, nats, rabbitmq, tarantool_queue (default "http")
  -param value
    	Параметр транспорта key=value, можно указывать несколько раз
  -timeout int
    	Время ожидания ответа в секундах, по умолчанию 15

Example

```
./position-gen --id D1 --lat 55.7558 --lon 37.6173 --hacc 5 --server localhost:5055
```
*/

type params map[string]string

func (p params) String() string {
	return fmt.Sprint(map[string]string(p))
}

func (p params) Set(value string) error {
	key, val, ok := strings.Cut(value, "=")
	if !ok || key == "" {
		return fmt.Errorf("ожидается key=value, получено %q", value)
	}
	p[key] = val
	return nil
}

func main() {
	deviceID := ""
	ts := ""
	lat := 0.0
	lon := 0.0
	hacc := 0.0
	speed := 0.0
	bearing := 0.0
	altitude := 0.0
	batt := 0.0
	server := ""
	transportName := ""
	timeout := 0
	transportParams := params{}

	flag.StringVar(&deviceID, "id", "", "Идентификатор устройства (обязательно)")
	flag.StringVar(&ts, "time", "", "Метка времени в формате RFC 3339, по умолчанию текущее время")
	flag.Float64Var(&lat, "lat", 0, "Широта")
	flag.Float64Var(&lon, "lon", 0, "Долгота")
	flag.Float64Var(&hacc, "hacc", 0, "Погрешность в метрах")
	flag.Float64Var(&speed, "speed", 0, "Скорость в м/с")
	flag.Float64Var(&bearing, "bearing", 0, "Курс в градусах")
	flag.Float64Var(&altitude, "altitude", 0, "Высота")
	flag.Float64Var(&batt, "batt", 0, "Заряд батареи в процентах")
	flag.StringVar(&server, "server", "localhost:5055", "Адрес сервера в формате <host>:<port>")
	flag.StringVar(&transportName, "transport", "http", "Транспорт: http, nats, rabbitmq, tarantool_queue")
	flag.Var(transportParams, "param", "Параметр транспорта key=value, можно указывать несколько раз")
	flag.IntVar(&timeout, "timeout", 0, "Время ожидания ответа в секундах, по умолчанию 15")

	flag.Parse()

	if deviceID == "" {
		fmt.Println("Требуется идентификатор устройства, смотрите помощь (-h)")
		os.Exit(1)
	}

	timestamp := time.Now().UTC()
	if ts != "" {
		var err error
		if timestamp, err = time.Parse(time.RFC3339, ts); err != nil {
			fmt.Println("Ошибка парсинга метки времени: ", ts)
			os.Exit(1)
		}
	}

	if transportName == "http" {
		host, port, err := net.SplitHostPort(server)
		if err != nil {
			fmt.Println("Некорректный адрес сервера: ", err)
			os.Exit(1)
		}
		if _, ok := transportParams["address"]; !ok {
			transportParams["address"] = host
		}
		if _, ok := transportParams["port"]; !ok {
			transportParams["port"] = port
		}
	}

	t, err := uploader.LoadTransport(transportName, transportParams)
	if err != nil {
		fmt.Println("Ошибка подключения транспорта: ", err)
		os.Exit(1)
	}
	up := uploader.New(t, time.Duration(timeout)*time.Second)
	defer up.Close()

	position := types.Position{
		DeviceID:           deviceID,
		Time:               timestamp,
		Latitude:           lat,
		Longitude:          lon,
		HorizontalAccuracy: hacc,
		Altitude:           altitude,
		Speed:              speed,
		Course:             bearing,
		Battery:            batt,
	}

	fmt.Println("Отправка: ", uploader.FormatRecord(position))
	if err = up.Send(context.Background(), []types.Position{position}); err != nil {
		fmt.Println("Ошибка отправки: ", err)
		up.Close()
		os.Exit(1)
	}

	fmt.Println("Точка принята сервером")
}
