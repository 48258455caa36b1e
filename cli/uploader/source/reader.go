package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/daniil11ru/tracker/cli/uploader/types"
	log "github.com/sirupsen/logrus"
)

const (
	TypeSerial = "nmea_serial"
	TypeFile   = "nmea_file"
)

var ErrUnknownSource = errors.New("неизвестный тип источника")

// Reader источник показаний. Run отдает показания в out до отмены контекста,
// ошибки чтения или конца данных (тогда возвращается nil).
type Reader interface {
	Run(ctx context.Context, out chan<- types.Sample) error
}

// NewReader создает читатель по разделу настроек source. Тип берется из параметра
// type, по умолчанию из имени раздела.
func NewReader(name string, params map[string]string) (Reader, error) {
	if params == nil {
		params = map[string]string{}
	}

	kind := params["type"]
	if kind == "" {
		kind = name
	}

	var (
		reader Reader
		err    error
	)
	switch kind {
	case TypeSerial:
		reader, err = NewSerialReader(name, params)
	case TypeFile:
		reader, err = NewFileReader(name, params)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, kind)
	}
	if err != nil {
		return nil, err
	}
	return reader, nil
}

// scan разбирает строки NMEA из r. pace вызывается перед отдачей каждого показания.
func scan(ctx context.Context, r io.Reader, parser *Parser, out chan<- types.Sample, pace func(types.Sample) error) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}

		sample, ok, err := parser.Parse(scanner.Text())
		if err != nil {
			log.WithFields(log.Fields{"source": parser.Provider, "err": err}).Debug("Пропущено предложение NMEA")
			continue
		}
		if !ok {
			continue
		}

		if pace != nil {
			if err = pace(sample); err != nil {
				return nil
			}
		}

		select {
		case out <- sample:
		case <-ctx.Done():
			return nil
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	return scanner.Err()
}
