package mono

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"trans/internal/source"
	"trans/internal/tir"
	"trans/internal/types"
)

func TestResolveCreatesOncePerKey(t *testing.T) {
	c := NewCache()
	key := NewKey(7, []types.TypeID{3, 4}, []tir.Cap{{Kind: tir.CapImpl, Impl: 2, Args: []types.TypeID{3}}})

	var calls atomic.Int32
	start := make(chan struct{})
	const workers = 16
	got := make([]*Instance, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			inst, err := c.Resolve(key, func() (*Instance, error) {
				calls.Add(1)
				return &Instance{Key: key, Symbol: Mangle("id", key)}, nil
			})
			if err != nil {
				t.Errorf("resolve: %v", err)
				return
			}
			got[i] = inst
		}(i)
	}
	close(start)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Fatalf("create ran %d times, want 1", n)
	}
	for i := 1; i < workers; i++ {
		if got[i] != got[0] {
			t.Fatalf("worker %d got a different instance", i)
		}
	}
	st := c.Stats()
	if st.Entries != 1 || st.Misses != 1 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestResolveDistinctKeys(t *testing.T) {
	c := NewCache()
	mk := func(key Key) func() (*Instance, error) {
		return func() (*Instance, error) {
			return &Instance{Key: key, Symbol: Mangle("id", key)}, nil
		}
	}
	k1 := NewKey(1, []types.TypeID{10}, nil)
	k2 := NewKey(1, []types.TypeID{11}, nil)
	k3 := NewKey(1, []types.TypeID{10}, []tir.Cap{{Kind: tir.CapImpl, Impl: 1}})
	i1, _ := c.Resolve(k1, mk(k1))
	i2, _ := c.Resolve(k2, mk(k2))
	i3, _ := c.Resolve(k3, mk(k3))
	if i1 == i2 || i1 == i3 || i2 == i3 {
		t.Fatalf("distinct keys must give distinct instances")
	}
	if i1.Symbol == i2.Symbol || i1.Symbol == i3.Symbol {
		t.Fatalf("distinct keys must give distinct symbols: %s %s %s", i1.Symbol, i2.Symbol, i3.Symbol)
	}
	again, _ := c.Resolve(k1, func() (*Instance, error) {
		t.Fatalf("create must not run for a cached key")
		return nil, nil
	})
	if again != i1 {
		t.Fatalf("cached key returned a different instance")
	}
}

func TestResolvePropagatesCreateError(t *testing.T) {
	c := NewCache()
	boom := errors.New("boom")
	key := NewKey(5, nil, nil)
	if _, err := c.Resolve(key, func() (*Instance, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected create error, got %v", err)
	}
	inst, err := c.Resolve(key, func() (*Instance, error) { return &Instance{Key: key}, nil })
	if err != nil || inst == nil {
		t.Fatalf("a failed create must not poison the key: %v", err)
	}
}

func TestMangleIsStableAndReadable(t *testing.T) {
	key := NewKey(3, []types.TypeID{1}, nil)
	a, b := Mangle("vec::push", key), Mangle("vec::push", key)
	if a != b {
		t.Fatalf("mangling must be deterministic")
	}
	if !strings.HasPrefix(a, "vec__push::h") || len(a) != len("vec__push::h")+16 {
		t.Fatalf("unexpected symbol %q", a)
	}
}

func TestRecordAndDump(t *testing.T) {
	c := NewCache()
	fs := source.NewFileSet()
	file := fs.AddVirtual("main.tr", []byte("fn main() {\n  id(1)\n}\n"))
	key := NewKey(1, []types.TypeID{5}, nil)
	if _, err := c.Resolve(key, func() (*Instance, error) { return &Instance{Key: key, Symbol: "id::h1"}, nil }); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	site := UseSite{Span: source.Span{File: file, Start: 14, End: 19}, Caller: "main"}
	c.Record(key, site)
	c.Record(key, site)
	if got := len(c.Sites(key)); got != 1 {
		t.Fatalf("duplicate sites must be merged, got %d", got)
	}
	var sb strings.Builder
	if err := DumpInstances(&sb, c, fs); err != nil {
		t.Fatalf("dump: %v", err)
	}
	want := "fn id::h1\n  used at main.tr:2:3 in main\n"
	if sb.String() != want {
		t.Fatalf("dump = %q, want %q", sb.String(), want)
	}
}
