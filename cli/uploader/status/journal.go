package status

import (
	"sync"
	"time"
)

const DefaultCapacity = 20

type Message struct {
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

// Journal последние сообщения о работе трекера, старые вытесняются новыми
type Journal struct {
	mu       sync.Mutex
	messages []Message
	next     int
	full     bool
}

func NewJournal(capacity int) *Journal {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Journal{messages: make([]Message, capacity)}
}

func (j *Journal) Add(text string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.messages[j.next] = Message{Time: time.Now(), Text: text}
	j.next = (j.next + 1) % len(j.messages)
	if j.next == 0 {
		j.full = true
	}
}

// Messages сообщения от старых к новым
func (j *Journal) Messages() []Message {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.full {
		return append([]Message(nil), j.messages[:j.next]...)
	}
	result := make([]Message, 0, len(j.messages))
	result = append(result, j.messages[j.next:]...)
	return append(result, j.messages[:j.next]...)
}
