package identity

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_GeneratesV4UUID(t *testing.T) {
	p := New()

	id, err := uuid.Parse(p.Current())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), id.Version())
}

func TestCurrent_StableUntilReset(t *testing.T) {
	p := New()
	first := p.Current()

	assert.Equal(t, first, p.Current())

	next := p.Reset()
	assert.NotEqual(t, first, next)
	assert.Equal(t, next, p.Current())
}

func TestReset_CapturedValueUnchanged(t *testing.T) {
	p := NewFixed("user-a")
	captured := p.Current()

	p.Reset()

	assert.Equal(t, "user-a", captured)
	assert.NotEqual(t, "user-a", p.Current())
}

func TestNewWithGenerator(t *testing.T) {
	n := 0
	p := NewWithGenerator(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	})

	assert.Equal(t, "id-1", p.Current())
	assert.Equal(t, "id-2", p.Reset())
	assert.Equal(t, "id-2", p.Current())
}

func TestProvider_ConcurrentAccess(t *testing.T) {
	p := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = p.Current()
		}()
		go func() {
			defer wg.Done()
			_ = p.Reset()
		}()
	}
	wg.Wait()

	_, err := uuid.Parse(p.Current())
	assert.NoError(t, err)
}
