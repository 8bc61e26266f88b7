package ai

import "errors"

// CompositeProvider joins independently constructed services into a Provider.
type CompositeProvider struct {
	embedder  Embedder
	generator Generator
	closers   []func() error
}

var _ Provider = (*CompositeProvider)(nil)

// NewProvider combines an embedder and a generator. The closers run on Close
// in reverse order.
func NewProvider(embedder Embedder, generator Generator, closers ...func() error) *CompositeProvider {
	return &CompositeProvider{
		embedder:  embedder,
		generator: generator,
		closers:   closers,
	}
}

// Embedder returns the text embedding service.
func (p *CompositeProvider) Embedder() Embedder {
	return p.embedder
}

// Generator returns the text generation service.
func (p *CompositeProvider) Generator() Generator {
	return p.generator
}

// Close runs the registered closers and joins their errors.
func (p *CompositeProvider) Close() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	return errors.Join(errs...)
}
