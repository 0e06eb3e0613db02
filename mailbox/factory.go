package mailbox

import "fmt"

// NewFromConfig builds a Mailbox from a provider type string, grounded on
// the teacher's llms/registry.go CreateLLMFromConfig factory dispatch.
func NewFromConfig(providerType, apiKey, model, host string) (Mailbox, error) {
	switch providerType {
	case "anthropic":
		return NewAnthropic(apiKey, model), nil
	case "openai":
		return NewOpenAI(apiKey, model), nil
	case "ollama":
		return NewOllama(host, model), nil
	default:
		return nil, fmt.Errorf("mailbox: unknown provider type %q", providerType)
	}
}
