package adapter

// ProviderSet is the registration map from provider identifier to adapter.
// Adapters whose credentials are absent at startup are simply not present.
// Streaming is a typed optional: GetStream reports whether the provider
// supports it rather than probing at call time.
type ProviderSet interface {
	Get(provider string) (TextProvider, bool)
	GetStream(provider string) (StreamProvider, bool)
	Names() []string
}
