package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func texts(messages []Message) []string {
	result := make([]string, len(messages))
	for i, m := range messages {
		result[i] = m.Text
	}
	return result
}

func TestJournal(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		add      []string
		expected []string
	}{
		{name: "empty", capacity: 3, expected: []string{}},
		{name: "partially filled", capacity: 3, add: []string{"a", "b"}, expected: []string{"a", "b"}},
		{name: "exactly full", capacity: 3, add: []string{"a", "b", "c"}, expected: []string{"a", "b", "c"}},
		{name: "wrapped", capacity: 3, add: []string{"a", "b", "c", "d", "e"}, expected: []string{"c", "d", "e"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := NewJournal(tt.capacity)
			for _, text := range tt.add {
				j.Add(text)
			}
			assert.Equal(t, tt.expected, texts(j.Messages()))
		})
	}
}

func TestJournalDefaultCapacity(t *testing.T) {
	j := NewJournal(0)
	for i := 0; i < DefaultCapacity+5; i++ {
		j.Add("message")
	}
	assert.Len(t, j.Messages(), DefaultCapacity)
}
