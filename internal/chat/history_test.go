package chat

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryAdd(t *testing.T) {
	history := NewHistory(10)

	history.Add(Message{Role: RoleUser, Content: "hello"})
	history.Add(Message{Role: RoleAssistant, Content: "hi there"})

	messages := history.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, RoleUser, messages[0].Role)
	assert.Equal(t, "hello", messages[0].Content)
	assert.Equal(t, RoleAssistant, messages[1].Role)
}

func TestHistoryEvictsOldestFirst(t *testing.T) {
	history := NewHistory(3)

	for i := 0; i < 5; i++ {
		history.Add(Message{Role: RoleUser, Content: fmt.Sprintf("message-%d", i)})
	}

	messages := history.Messages()
	require.Len(t, messages, 3)
	assert.Equal(t, "message-2", messages[0].Content)
	assert.Equal(t, "message-3", messages[1].Content)
	assert.Equal(t, "message-4", messages[2].Content)
	assert.Equal(t, 3, history.Len())
}

func TestHistoryDefaultCap(t *testing.T) {
	history := NewHistory(0)

	for i := 0; i < 25; i++ {
		history.Add(Message{Role: RoleUser, Content: fmt.Sprintf("message-%d", i)})
	}

	assert.Equal(t, 20, history.Len())
	assert.Equal(t, "message-5", history.Messages()[0].Content)
}

func TestHistoryMessagesReturnsCopy(t *testing.T) {
	history := NewHistory(5)
	history.Add(Message{Role: RoleUser, Content: "original"})

	messages := history.Messages()
	messages[0].Content = "mutated"

	assert.Equal(t, "original", history.Messages()[0].Content)
}

func TestHistoryConcurrentAdds(t *testing.T) {
	history := NewHistory(50)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			history.Add(Message{Role: RoleUser, Content: fmt.Sprintf("message-%d", n)})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, history.Len())
}
