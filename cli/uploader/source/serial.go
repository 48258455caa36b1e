package source

/*
Приемник GNSS на последовательном порту.

Раздел настроек в конфиге:

port = "/dev/ttyUSB0"
baud_rate = "9600"
data_bits = "8"
stop_bits = "1"
parity = "N"
*/

import (
	"context"
	"fmt"
	"strings"

	"github.com/daniil11ru/tracker/cli/uploader/connector"
	"github.com/daniil11ru/tracker/cli/uploader/types"
	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

type PortOptions struct {
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
}

func (o PortOptions) normalize() (PortOptions, error) {
	if o.BaudRate == 0 {
		o.BaudRate = 9600
	}
	if o.DataBits == 0 {
		o.DataBits = 8
	}
	if o.StopBits == 0 {
		o.StopBits = 1
	}
	if o.Parity == "" {
		o.Parity = "N"
	}
	o.Parity = strings.ToUpper(o.Parity)

	if o.BaudRate < 0 {
		return o, fmt.Errorf("некорректная скорость порта: %d", o.BaudRate)
	}
	if o.DataBits < 5 || o.DataBits > 8 {
		return o, fmt.Errorf("некорректное число бит данных: %d", o.DataBits)
	}
	if o.StopBits != 1 && o.StopBits != 2 {
		return o, fmt.Errorf("некорректное число стоп-бит: %d", o.StopBits)
	}
	switch o.Parity {
	case "N", "E", "O":
	default:
		return o, fmt.Errorf("некорректная четность: %s", o.Parity)
	}
	return o, nil
}

func (o PortOptions) mode() *serial.Mode {
	mode := &serial.Mode{
		BaudRate: o.BaudRate,
		DataBits: o.DataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	switch o.Parity {
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	}
	if o.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}
	return mode
}

type SerialReader struct {
	name    string
	path    string
	options PortOptions
	open    func(path string, mode *serial.Mode) (serial.Port, error)
}

func NewSerialReader(name string, params map[string]string) (*SerialReader, error) {
	path := params["port"]
	if path == "" {
		return nil, fmt.Errorf("не задан port для источника %s", name)
	}

	var (
		opts PortOptions
		err  error
	)
	if opts.BaudRate, err = connector.GetIntOptionValue("baud_rate", 9600, params); err != nil {
		return nil, err
	}
	if opts.DataBits, err = connector.GetIntOptionValue("data_bits", 8, params); err != nil {
		return nil, err
	}
	if opts.StopBits, err = connector.GetIntOptionValue("stop_bits", 1, params); err != nil {
		return nil, err
	}
	opts.Parity = connector.GetOptionValue("parity", "N", params)

	if opts, err = opts.normalize(); err != nil {
		return nil, fmt.Errorf("источник %s: %v", name, err)
	}

	return &SerialReader{name: name, path: path, options: opts, open: serial.Open}, nil
}

func (r *SerialReader) Run(ctx context.Context, out chan<- types.Sample) error {
	port, err := r.open(r.path, r.options.mode())
	if err != nil {
		return fmt.Errorf("не удалось открыть порт %s: %w", r.path, err)
	}
	log.WithFields(log.Fields{"source": r.name, "port": r.path, "baud": r.options.BaudRate}).Info("Порт приемника открыт")

	// закрытие порта прерывает блокирующее чтение
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		port.Close()
	}()

	return scan(ctx, port, &Parser{Provider: r.name}, out, nil)
}
