package transport

import "strings"

// Request сформированный запрос к серверу: одна строка параметров на каждую точку пакета
type Request struct {
	Records []string
}

// Single пакет из одной точки отправляется GET запросом с параметрами в адресе
func (r Request) Single() bool {
	return len(r.Records) == 1
}

// Body тело POST запроса, записи разделены переводом строки
func (r Request) Body() []byte {
	return []byte(strings.Join(r.Records, "\n"))
}
