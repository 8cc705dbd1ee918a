package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cafemesh/cafemesh/types"
)

// Verdict is the reflection judgment: whether the conversation should
// continue and why.
type Verdict struct {
	ShouldContinue bool   `json:"should_continue"`
	Reason         string `json:"reason"`
}

// ReflectionVerdict asks the provider a structured yes/no question about the
// transcript. The system instruction pins the output to a JSON object so the
// answer can be decoded instead of pattern-matched.
func ReflectionVerdict(ctx context.Context, p Provider, transcript []types.Message) (Verdict, error) {
	sys := types.NewSystemMessage(
		"Decide whether the user query has been satisfied or if we need to continue. " +
			"Do not continue if the last message is a question or requires user input. " +
			`Respond ONLY with a JSON object: {"should_continue": <bool>, "reason": "<short reason>"}.`)

	msgs := append([]types.Message{sys}, transcript...)
	resp, err := p.Completion(ctx, &ChatRequest{
		Messages:       msgs,
		ResponseFormat: "json_object",
	})
	if err != nil {
		return Verdict{}, err
	}

	var v Verdict
	content := strings.TrimSpace(resp.Message.Content)
	if err := json.Unmarshal([]byte(content), &v); err != nil {
		// A malformed verdict must not wedge the conversation open.
		return Verdict{ShouldContinue: false, Reason: "unparseable reflection verdict"}, nil
	}
	return v, nil
}
