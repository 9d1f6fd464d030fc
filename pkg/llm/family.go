package llm

import "strings"

// Family selects the request and response shape of a model
type Family int

const (
	// FamilyDefault is the OpenAI-compatible chat/completions shape
	FamilyDefault Family = iota
	FamilyQwen
	FamilyGLM
)

func (f Family) String() string {
	switch f {
	case FamilyQwen:
		return "qwen"
	case FamilyGLM:
		return "glm"
	default:
		return "default"
	}
}

// ResolveFamily maps a model name to its family by case-insensitive prefix.
// "qwen-turbo" -> FamilyQwen, "GLM-4" -> FamilyGLM, anything else -> FamilyDefault.
func ResolveFamily(modelName string) Family {
	name := strings.ToLower(strings.TrimSpace(modelName))
	switch {
	case strings.HasPrefix(name, "qwen"):
		return FamilyQwen
	case strings.HasPrefix(name, "glm"):
		return FamilyGLM
	default:
		return FamilyDefault
	}
}

// NewBody builds the family-specific payload for a single user prompt
func (f Family) NewBody(model, prompt string, temperature float64) any {
	switch f {
	case FamilyQwen:
		return QwenBody{
			Model: model,
			Input: QwenInput{Prompt: prompt},
			Parameters: QwenParameters{
				Temperature: temperature,
				MaxTokens:   MaxTokens,
			},
		}
	case FamilyGLM:
		return GLMBody{
			Model:       model,
			Messages:    []Message{{Role: "user", Content: prompt}},
			Temperature: temperature,
			MaxTokens:   MaxTokens,
		}
	default:
		return ChatBody{
			Model:       model,
			Messages:    []Message{{Role: "user", Content: prompt}},
			Temperature: temperature,
		}
	}
}

// ParseContent extracts the annotation text from a response body.
// qwen answers at output.text, every other family at choices[0].message.content.
func (f Family) ParseContent(body []byte) (string, error) {
	if f == FamilyQwen {
		return parseQwen(body)
	}
	return parseChat(body)
}
