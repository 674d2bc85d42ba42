package ai

import "context"

// Provider names accepted in guild settings.
const (
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderGrok       = "grok"
	ProviderGemini     = "gemini"
)

type Options struct {
	MaxTokens   int
	Temperature float32
}

func DefaultOptions() Options {
	return Options{MaxTokens: 1000, Temperature: 0.7}
}

// Provider is a text-generation backend. Keys are per-guild and supplied per
// call; providers hold no credential state.
type Provider interface {
	Name() string
	Generate(ctx context.Context, apiKey, prompt string, opts Options) (string, error)
	Test(ctx context.Context, apiKey string) error
}

// Registry maps provider names to implementations, looked up once per call.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry() *Registry {
	r := &Registry{providers: make(map[string]Provider)}
	r.Register(newOpenAICompatible(ProviderOpenAI, "", "gpt-4o-mini"))
	r.Register(newOpenAICompatible(ProviderOpenRouter, "https://openrouter.ai/api/v1", "openai/gpt-4o-mini"))
	r.Register(newOpenAICompatible(ProviderGrok, "https://api.x.ai/v1", "grok-2-latest"))
	r.Register(newGemini("gemini-2.0-flash"))
	return r
}

func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

func (r *Registry) Lookup(name string) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
