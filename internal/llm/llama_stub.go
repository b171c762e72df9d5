//go:build !llama

package llm

// No-CGO stub compiled when the 'llama' tag is not set. Keeps default builds
// and CI CGO-free; inference fails fast instead of being mocked.

func load(path string, opts LoadOptions) (Model, error) {
	return nil, ErrNotBuilt
}
