package connector

import (
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"
)

// Connector подключаемый плагин (хранилище или транспорт), настраиваемый разделом конфига
type Connector interface {
	Init(map[string]string) error
	Close() error
}

func GetOptionValue(optionName string, optionDefaultValue string, settings map[string]string) string {
	optionValue := settings[optionName]
	if optionValue == "" {
		log.Warnf("Ключ '%s' не найден в конфигурации. Используется значение по умолчанию '%s'.", optionName, optionDefaultValue)
		optionValue = optionDefaultValue
	}

	return optionValue
}

func GetIntOptionValue(optionName string, optionDefaultValue int, settings map[string]string) (int, error) {
	value := GetOptionValue(optionName, strconv.Itoa(optionDefaultValue), settings)
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("не удалось получить %s: %v", optionName, err)
	}
	return n, nil
}
