package generation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tubeseo-agent/pkg/logger"
)

// fakeProvider is a scriptable chain member. Each GenerateText call pops
// the next error from errs; a nil entry (or exhausted list) succeeds.
type fakeProvider struct {
	name      string
	priority  int
	available bool
	errs      []error
	calls     int
}

func (p *fakeProvider) Name() string    { return p.name }
func (p *fakeProvider) Priority() int   { return p.priority }
func (p *fakeProvider) Available() bool { return p.available }

func (p *fakeProvider) GenerateText(ctx context.Context, prompt string) (string, error) {
	p.calls++
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		if err != nil {
			return "", err
		}
	}
	return "text from " + p.name, nil
}

func (p *fakeProvider) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	p.calls++
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return []byte("image from " + p.name), nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "json", Output: "stdout"})
}

func TestChainFallsOverInPriorityOrder(t *testing.T) {
	a := &fakeProvider{name: "a", priority: 1, available: true,
		errs: []error{&ProviderError{Provider: "a", Err: errors.New("boom")}}}
	b := &fakeProvider{name: "b", priority: 2, available: true}
	c := &fakeProvider{name: "c", priority: 3, available: true}

	chain := NewChain([]Provider{c, a, b}, 0, testLogger())

	result, err := chain.Generate(context.Background(), Request{Kind: KindText, Prompt: "p"})
	require.NoError(t, err)

	assert.Equal(t, "b", result.Provider)
	assert.Equal(t, "text from b", result.Text)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
	assert.Zero(t, c.calls, "lower-priority provider must not run after a success")
}

func TestChainSkipsUnavailableProviders(t *testing.T) {
	a := &fakeProvider{name: "a", priority: 1, available: false}
	b := &fakeProvider{name: "b", priority: 2, available: true}

	chain := NewChain([]Provider{a, b}, 0, testLogger())

	result, err := chain.Generate(context.Background(), Request{Kind: KindText, Prompt: "p"})
	require.NoError(t, err)

	assert.Equal(t, "b", result.Provider)
	assert.Zero(t, a.calls)
}

func TestChainRetriesTransientFailureOnce(t *testing.T) {
	a := &fakeProvider{name: "a", priority: 1, available: true,
		errs: []error{
			&ProviderError{Provider: "a", StatusCode: 503, Transient: true, Err: errors.New("model loading")},
			nil,
		}}

	chain := NewChain([]Provider{a}, 1, testLogger())

	result, err := chain.Generate(context.Background(), Request{Kind: KindText, Prompt: "p"})
	require.NoError(t, err)

	assert.Equal(t, "a", result.Provider)
	assert.Equal(t, 2, a.calls)
}

func TestChainTransientFailureRetriedOnlyOnce(t *testing.T) {
	transient := &ProviderError{Provider: "a", StatusCode: 503, Transient: true, Err: errors.New("still loading")}
	a := &fakeProvider{name: "a", priority: 1, available: true,
		errs: []error{transient, transient}}
	b := &fakeProvider{name: "b", priority: 2, available: true}

	chain := NewChain([]Provider{a, b}, 1, testLogger())

	result, err := chain.Generate(context.Background(), Request{Kind: KindText, Prompt: "p"})
	require.NoError(t, err)

	assert.Equal(t, "b", result.Provider)
	assert.Equal(t, 2, a.calls)
}

func TestChainNonTransientFailureNotRetried(t *testing.T) {
	a := &fakeProvider{name: "a", priority: 1, available: true,
		errs: []error{&ProviderError{Provider: "a", StatusCode: 401, Err: errors.New("bad key")}}}
	b := &fakeProvider{name: "b", priority: 2, available: true}

	chain := NewChain([]Provider{a, b}, 1, testLogger())

	result, err := chain.Generate(context.Background(), Request{Kind: KindText, Prompt: "p"})
	require.NoError(t, err)

	assert.Equal(t, 1, a.calls)
	assert.Equal(t, "b", result.Provider)
}

func TestChainAllProvidersFailed(t *testing.T) {
	errA := &ProviderError{Provider: "a", Err: errors.New("down")}
	errB := &ProviderError{Provider: "b", Err: errors.New("also down")}
	a := &fakeProvider{name: "a", priority: 1, available: true, errs: []error{errA}}
	b := &fakeProvider{name: "b", priority: 2, available: true, errs: []error{errB}}

	chain := NewChain([]Provider{a, b}, 0, testLogger())

	_, err := chain.Generate(context.Background(), Request{Kind: KindText, Prompt: "p"})
	require.Error(t, err)

	var allFailed *AllProvidersFailedError
	require.ErrorAs(t, err, &allFailed)
	assert.Len(t, allFailed.Errors, 2)
	assert.Equal(t, errA, allFailed.Errors["a"])
	assert.Equal(t, errB, allFailed.Errors["b"])
}

func TestChainExplicitProviderBypassesFallback(t *testing.T) {
	errB := &ProviderError{Provider: "b", Err: errors.New("down")}
	a := &fakeProvider{name: "a", priority: 1, available: true}
	b := &fakeProvider{name: "b", priority: 2, available: true, errs: []error{errB}}

	chain := NewChain([]Provider{a, b}, 0, testLogger())

	_, err := chain.Generate(context.Background(), Request{Kind: KindText, Prompt: "p", Provider: "b"})

	// The pinned provider's failure comes back untouched; nothing falls
	// over to the healthy provider.
	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "b", provErr.Provider)
	assert.Zero(t, a.calls)
}

func TestChainExplicitProviderUnknown(t *testing.T) {
	a := &fakeProvider{name: "a", priority: 1, available: true}

	chain := NewChain([]Provider{a}, 0, testLogger())

	_, err := chain.Generate(context.Background(), Request{Kind: KindText, Prompt: "p", Provider: "missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestChainImageRequests(t *testing.T) {
	a := &fakeProvider{name: "a", priority: 1, available: true}

	chain := NewChain([]Provider{a}, 0, testLogger())

	result, err := chain.Generate(context.Background(), Request{Kind: KindImage, Prompt: "p"})
	require.NoError(t, err)

	assert.Equal(t, []byte("image from a"), result.Image)
	assert.Empty(t, result.Text)
}
