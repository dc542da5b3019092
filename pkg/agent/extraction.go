package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// UnknownIntent is the fallback when extraction cannot produce a label.
const UnknownIntent = "unknown"

const extractionInstruction = `Analyze the user message and respond with a single JSON object of the form
{"intent": "<short_intent_label>", "entities": {"<param>": "<value>"}}.
Only include parameters explicitly present in the message.%s
Respond with JSON only, no prose and no code fences.`

func buildExtractionPrompt(promptTemplate string, parameters []string) string {
	known := ""
	if len(parameters) > 0 {
		known = fmt.Sprintf("\nKnown parameter names: %s.", strings.Join(parameters, ", "))
	}
	instruction := fmt.Sprintf(extractionInstruction, known)
	if promptTemplate == "" {
		return instruction
	}
	return promptTemplate + "\n\n" + instruction
}

// parseExtraction reads the model's extraction answer. It tolerates code
// fences and surrounding prose by parsing the outermost JSON object; any
// parse failure degrades to UnknownIntent with no entities.
func parseExtraction(answer string) (string, map[string]string) {
	start := strings.Index(answer, "{")
	end := strings.LastIndex(answer, "}")
	if start < 0 || end <= start {
		return UnknownIntent, map[string]string{}
	}

	var parsed struct {
		Intent   string         `json:"intent"`
		Entities map[string]any `json:"entities"`
	}
	if err := json.Unmarshal([]byte(answer[start:end+1]), &parsed); err != nil {
		return UnknownIntent, map[string]string{}
	}

	intent := strings.TrimSpace(parsed.Intent)
	if intent == "" {
		intent = UnknownIntent
	}
	entities := make(map[string]string, len(parsed.Entities))
	for key, value := range parsed.Entities {
		if value == nil {
			continue
		}
		entities[key] = fmt.Sprint(value)
	}
	return intent, entities
}
