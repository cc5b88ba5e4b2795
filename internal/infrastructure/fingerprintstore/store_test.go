package fingerprintstore

import (
	"context"
	"sync"
	"testing"

	"github.com/matryer/is"

	"multichain_wallet/internal/infrastructure/configloader"
	"multichain_wallet/internal/pkg/logger"
)

func TestMemoryStore(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	s := NewMemoryStore()
	is.NoErr(s.Add(ctx, "b"))
	is.NoErr(s.Add(ctx, "a"))
	is.NoErr(s.Add(ctx, "b"))

	got, err := s.List(ctx)
	is.NoErr(err)
	is.Equal(got, []string{"b", "a"})

	got[0] = "mutated"
	again, _ := s.List(ctx)
	is.Equal(again[0], "b")
}

func TestMemoryStoreConcurrentAdd(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	s := NewMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Add(ctx, "same")
		}()
	}
	wg.Wait()
	got, _ := s.List(ctx)
	is.Equal(len(got), 1)
}

func TestNewSelectsDriver(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	s, closeFn, err := New(ctx, configloader.FingerprintConfig{Driver: "memory"}, logger.NewNop())
	is.NoErr(err)
	_, ok := s.(*MemoryStore)
	is.True(ok)
	is.NoErr(closeFn(ctx))

	_, _, err = New(ctx, configloader.FingerprintConfig{Driver: "redis"}, logger.NewNop())
	is.True(err != nil)
}
