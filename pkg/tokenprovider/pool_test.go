package tokenprovider

import (
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

func poolIdentity(clientID string) Identity {
	return Identity{
		ClientID:      clientID,
		AuthServer:    "https://auth.test",
		TokenEndpoint: "/v1/auth/oauth/token",
		CacheKind:     "none",
	}
}

func TestPool_SharesProviderForSameIdentity(t *testing.T) {
	pool := NewPool()

	var constructed atomic.Int32
	construct := func() (*Provider, error) {
		constructed.Add(1)
		return New(poolIdentity("abc"), "secret"), nil
	}

	first, err := pool.GetOrCreate(poolIdentity("abc"), construct)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	second, err := pool.GetOrCreate(poolIdentity("abc"), construct)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	if first != second {
		t.Error("expected the same provider instance for identical identities")
	}
	if got := constructed.Load(); got != 1 {
		t.Errorf("expected 1 construction, got %d", got)
	}
	if got := pool.Len(); got != 1 {
		t.Errorf("expected pool size 1, got %d", got)
	}
}

func TestPool_DistinctProvidersForDistinctIdentities(t *testing.T) {
	pool := NewPool()

	first, err := pool.GetOrCreate(poolIdentity("abc"), func() (*Provider, error) {
		return New(poolIdentity("abc"), "secret"), nil
	})
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	second, err := pool.GetOrCreate(poolIdentity("xyz"), func() (*Provider, error) {
		return New(poolIdentity("xyz"), "secret"), nil
	})
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	if first == second {
		t.Error("expected distinct providers for distinct client ids")
	}
	if got := pool.Len(); got != 2 {
		t.Errorf("expected pool size 2, got %d", got)
	}
}

func TestPool_SingleConstructionUnderConcurrency(t *testing.T) {
	pool := NewPool()

	var constructed atomic.Int32
	providers := make([]*Provider, 20)

	var g errgroup.Group
	for i := range providers {
		g.Go(func() error {
			prov, err := pool.GetOrCreate(poolIdentity("abc"), func() (*Provider, error) {
				constructed.Add(1)
				return New(poolIdentity("abc"), "secret"), nil
			})
			providers[i] = prov
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent GetOrCreate failed: %v", err)
	}

	if got := constructed.Load(); got != 1 {
		t.Errorf("expected exactly 1 construction, got %d", got)
	}
	for i, prov := range providers {
		if prov != providers[0] {
			t.Fatalf("caller %d observed a different provider instance", i)
		}
	}
}

func TestPool_ConstructionErrorIsNotRegistered(t *testing.T) {
	pool := NewPool()

	wantErr := errTest
	_, err := pool.GetOrCreate(poolIdentity("abc"), func() (*Provider, error) {
		return nil, wantErr
	})
	if err != wantErr {
		t.Fatalf("expected construction error, got %v", err)
	}
	if got := pool.Len(); got != 0 {
		t.Errorf("expected empty pool after failed construction, got %d", got)
	}

	// A later call constructs normally.
	prov, err := pool.GetOrCreate(poolIdentity("abc"), func() (*Provider, error) {
		return New(poolIdentity("abc"), "secret"), nil
	})
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if prov == nil {
		t.Fatal("expected a provider")
	}
}

var errTest = errors.New("construction failed")

func TestPool_ReclaimsUnreferencedProviders(t *testing.T) {
	pool := NewPool()

	var constructed atomic.Int32
	construct := func() (*Provider, error) {
		constructed.Add(1)
		return New(poolIdentity("abc"), "secret"), nil
	}

	// Construct in a scope that drops the only strong reference.
	func() {
		prov, err := pool.GetOrCreate(poolIdentity("abc"), construct)
		if err != nil {
			t.Fatalf("GetOrCreate failed: %v", err)
		}
		if prov.Identity().ClientID != "abc" {
			t.Fatalf("unexpected identity %v", prov.Identity())
		}
	}()

	deadline := time.Now().Add(5 * time.Second)
	for pool.Len() > 0 && time.Now().Before(deadline) {
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}
	if got := pool.Len(); got != 0 {
		t.Fatalf("expected pool to drop unreferenced provider, still holds %d", got)
	}

	// A new lookup constructs afresh rather than reusing garbage.
	prov, err := pool.GetOrCreate(poolIdentity("abc"), construct)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if prov == nil {
		t.Fatal("expected a provider")
	}
	if got := constructed.Load(); got != 2 {
		t.Errorf("expected a second construction after reclamation, got %d", got)
	}
}
