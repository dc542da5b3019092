package memory

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter counts message tokens with the model's tiktoken encoding.
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
	model    string
}

var (
	encodingCache = make(map[string]*tiktoken.Tiktoken)
	encodingMu    sync.Mutex
)

func NewTokenCounter(model string) (*TokenCounter, error) {
	encodingMu.Lock()
	defer encodingMu.Unlock()

	if cached, ok := encodingCache[model]; ok {
		return &TokenCounter{encoding: cached, model: model}, nil
	}

	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// cl100k_base covers models tiktoken does not know about.
		encoding, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("failed to get encoding: %w", err)
		}
	}
	encodingCache[model] = encoding
	return &TokenCounter{encoding: encoding, model: model}, nil
}

func (tc *TokenCounter) Count(text string) int {
	return len(tc.encoding.Encode(text, nil, nil))
}

// CountMessages follows the OpenAI chat token accounting: a fixed
// per-message overhead plus the reply priming tokens.
func (tc *TokenCounter) CountMessages(messages []Message) int {
	const tokensPerMessage = 3

	total := 0
	for _, msg := range messages {
		total += tokensPerMessage
		total += tc.Count(msg.Role)
		total += tc.Count(msg.Content)
	}
	total += 3
	return total
}

// TrimToTokenBudget drops the oldest messages until the remainder fits the
// budget. The newest messages always survive first.
func TrimToTokenBudget(history []Message, model string, budget int) ([]Message, error) {
	if len(history) == 0 || budget <= 0 {
		return nil, nil
	}

	tc, err := NewTokenCounter(model)
	if err != nil {
		return nil, err
	}

	fitted := make([]Message, 0, len(history))
	currentTokens := 3
	for i := len(history) - 1; i >= 0; i-- {
		msgTokens := 3 + tc.Count(history[i].Role) + tc.Count(history[i].Content)
		if currentTokens+msgTokens > budget {
			break
		}
		fitted = append([]Message{history[i]}, fitted...)
		currentTokens += msgTokens
	}
	return fitted, nil
}
