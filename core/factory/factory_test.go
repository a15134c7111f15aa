package factory

import (
	"errors"
	"testing"
	"time"
)

type store struct {
	path   string
	rotate time.Duration
}

type storeConf struct {
	Path   string        `json:"path"`
	Rotate time.Duration `json:"rotate"`
}

func TestRegistry_Create(t *testing.T) {
	reg := NewRegistry[*store]()
	if err := reg.Register("file", func(conf map[string]any) (*store, error) {
		var c storeConf
		if err := Decode(conf, &c); err != nil {
			return nil, err
		}
		return &store{path: c.Path, rotate: c.Rotate}, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	inst, err := reg.Create(ModuleConfig{Type: "file", Conf: map[string]any{"path": "runs.jsonl", "rotate": "24h"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inst.path != "runs.jsonl" || inst.rotate != 24*time.Hour {
		t.Fatalf("unexpected instance %+v", inst)
	}
}

// Test duplicate registration and unknown type errors.
func TestRegistry_Errors(t *testing.T) {
	reg := NewRegistry[int]()
	if err := reg.Register("x", func(map[string]any) (int, error) { return 1, nil }); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register("x", nil); err == nil {
		t.Fatal("expected duplicate error")
	}
	if _, err := reg.Create(ModuleConfig{Type: "y"}); !errors.Is(err, ErrUnknownModule) {
		t.Fatalf("expected unknown type error, got %v", err)
	}
}

func TestDecode_WeakTypes(t *testing.T) {
	var c struct {
		Port    int     `json:"port"`
		Enabled bool    `json:"enabled"`
		Weight  float64 `json:"weight"`
	}
	err := Decode(map[string]any{"port": "9100", "enabled": "true", "weight": "2.5"}, &c)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.Port != 9100 || !c.Enabled || c.Weight != 2.5 {
		t.Fatalf("unexpected decode result %+v", c)
	}
}

func TestRegistry_Names(t *testing.T) {
	reg := NewRegistry[int]()
	_ = reg.Register("b", func(map[string]any) (int, error) { return 0, nil })
	_ = reg.Register("a", func(map[string]any) (int, error) { return 0, nil })
	names := reg.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("unexpected names %v", names)
	}
}
