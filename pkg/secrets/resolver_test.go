package secrets

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// mapSource serves parameters from a map; missing paths error.
type mapSource struct {
	mu     sync.Mutex
	params map[string]string
	calls  []string
}

func (m *mapSource) Fetch(ctx context.Context, paramPath string, decrypt bool) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, paramPath)
	v, ok := m.params[paramPath]
	m.mu.Unlock()
	if !ok {
		return "", errors.New("ParameterNotFound")
	}
	return v, nil
}

func TestResolveRemoteValue(t *testing.T) {
	source := &mapSource{params: map[string]string{"/ai-ecosystem/db_password": "s3cret"}}
	r := NewResolver(source, "/ai-ecosystem")

	set := r.ResolveAll(context.Background(), []Ref{
		{Name: "db_password", Decrypt: true, Fallback: "default"},
	})

	got := set["db_password"]
	if got.Value != "s3cret" || got.Origin != OriginRemote {
		t.Errorf("got %+v, want remote s3cret", got)
	}
}

func TestResolveFallbackOnError(t *testing.T) {
	r := NewResolver(&mapSource{}, "/ai-ecosystem")

	set := r.ResolveAll(context.Background(), []Ref{
		{Name: "db_password", Fallback: "default"},
	})

	got := set["db_password"]
	if got.Value != "default" || got.Origin != OriginDefault {
		t.Errorf("got %+v, want default origin", got)
	}
}

func TestResolveEmptyRemoteFallsBackUnlessSentinel(t *testing.T) {
	source := &mapSource{params: map[string]string{
		"/ai-ecosystem/password": "",
		"/ai-ecosystem/enc_key":  "",
	}}
	r := NewResolver(source, "/ai-ecosystem")

	set := r.ResolveAll(context.Background(), []Ref{
		{Name: "password", Fallback: "default"},
		{Name: "enc_key", Fallback: "", AllowEmpty: true},
	})

	if got := set["password"]; got.Value != "default" || got.Origin != OriginDefault {
		t.Errorf("non-sentinel empty remote: got %+v, want fallback", got)
	}
	if got := set["enc_key"]; got.Value != "" || got.Origin != OriginRemote {
		t.Errorf("sentinel empty remote: got %+v, want empty remote", got)
	}
}

func TestResolveAllIndependent(t *testing.T) {
	source := &mapSource{params: map[string]string{"/p/a": "1"}}
	r := NewResolver(source, "/p")

	set := r.ResolveAll(context.Background(), []Ref{
		{Name: "a", Fallback: "x"},
		{Name: "b", Fallback: "y"},
		{Name: "c", Fallback: "z"},
	})

	if len(set) != 3 {
		t.Fatalf("resolved %d secrets, want 3", len(set))
	}
	if set["a"].Origin != OriginRemote || set["b"].Origin != OriginDefault || set["c"].Origin != OriginDefault {
		t.Errorf("unexpected origins: %+v", set)
	}
	if len(source.calls) != 3 {
		t.Errorf("fetch called %d times, want 3", len(source.calls))
	}
}

func TestDefaultedSensitive(t *testing.T) {
	refs := []Ref{
		{Name: "password", Fallback: "default", Sensitive: true},
		{Name: "username", Fallback: "admin"},
	}
	set := NewResolver(&mapSource{}, "/p").ResolveAll(context.Background(), refs)

	names := set.DefaultedSensitive(refs)
	if len(names) != 1 || names[0] != "password" {
		t.Errorf("got %v, want [password]", names)
	}
}

func TestValidateRefs(t *testing.T) {
	tests := []struct {
		name    string
		refs    []Ref
		wantErr bool
	}{
		{"valid", []Ref{{Name: "a", Fallback: "x"}, {Name: "b", AllowEmpty: true}}, false},
		{"empty name", []Ref{{Name: "", Fallback: "x"}}, true},
		{"duplicate", []Ref{{Name: "a", Fallback: "x"}, {Name: "a", Fallback: "y"}}, true},
		{"missing fallback", []Ref{{Name: "a"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.refs)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultRefsSentinel(t *testing.T) {
	refs := DefaultRefs(nil)

	var sentinel *Ref
	for i := range refs {
		if refs[i].AllowEmpty {
			if sentinel != nil {
				t.Fatal("more than one sentinel-empty ref")
			}
			sentinel = &refs[i]
		}
	}
	if sentinel == nil || sentinel.Name != "n8n_encryption_key" {
		t.Fatalf("sentinel ref = %+v, want n8n_encryption_key", sentinel)
	}
	if err := Validate(refs); err != nil {
		t.Errorf("default refs invalid: %v", err)
	}
}

func TestDefaultRefsOverride(t *testing.T) {
	refs := DefaultRefs(map[string]string{"bridge_api_key": "custom"})
	for _, ref := range refs {
		if ref.Name == "bridge_api_key" && ref.Fallback != "custom" {
			t.Errorf("override not applied: %q", ref.Fallback)
		}
	}
}
