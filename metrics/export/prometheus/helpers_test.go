package prometheus

import (
	"testing"

	"github.com/MrEthical07/scopeAuth"
	"github.com/MrEthical07/scopeAuth/directory/memory"
)

func newEngine(t *testing.T) *scopeAuth.Engine {
	t.Helper()

	engine, err := scopeAuth.New().
		WithSecret([]byte("0123456789abcdef0123456789abcdef")).
		WithUserDirectory(memory.New()).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}
