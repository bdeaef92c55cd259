package directory

import (
	"context"
	"testing"

	"facility-access-control/internal/config"
	"facility-access-control/internal/storage"
)

func newTestProvider(t *testing.T) storage.Provider {
	t.Helper()
	provider := storage.NewProvider(&config.Storage{SQLite: &config.SQLLiteStorage{Path: ":memory:"}})
	if provider == nil {
		t.Fatal("failed to open test storage")
	}
	t.Cleanup(func() { provider.Close() })
	return provider
}

func strptr(s string) *string { return &s }

func TestResolve_EachKind(t *testing.T) {
	provider := newTestProvider(t)
	dir := New(provider)
	ctx := context.Background()

	person := &storage.Person{FullName: "Carla Ríos", CardUID: strptr("04010101")}
	if err := provider.CreatePerson(ctx, person); err != nil {
		t.Fatalf("CreatePerson failed: %v", err)
	}
	book := &storage.Book{Title: "El Quijote", Author: "Cervantes", CardUID: strptr("04020202")}
	if err := provider.CreateBook(ctx, book); err != nil {
		t.Fatalf("CreateBook failed: %v", err)
	}
	computer := &storage.Computer{Brand: "Lenovo", Model: "T14", CardUID: strptr("04030303")}
	if err := provider.CreateComputer(ctx, computer); err != nil {
		t.Fatalf("CreateComputer failed: %v", err)
	}

	cases := []struct {
		uid  string
		kind storage.EntityKind
		id   int64
		name string
	}{
		{"04010101", storage.KindPerson, person.ID, "Carla Ríos"},
		{"04020202", storage.KindBook, book.ID, "El Quijote"},
		{"04030303", storage.KindComputer, computer.ID, "Lenovo T14"},
	}
	for _, c := range cases {
		ref, err := dir.Resolve(ctx, c.uid)
		if err != nil {
			t.Fatalf("Resolve(%q) failed: %v", c.uid, err)
		}
		if ref.Kind != c.kind || ref.ID != c.id || ref.Name != c.name {
			t.Errorf("Resolve(%q) = %+v, want kind=%s id=%d name=%q", c.uid, ref, c.kind, c.id, c.name)
		}
	}
}

func TestResolve_UnknownCard(t *testing.T) {
	provider := newTestProvider(t)
	dir := New(provider)

	ref, err := dir.Resolve(context.Background(), "DEADBEEF")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !ref.IsNone() {
		t.Errorf("expected no match, got %+v", ref)
	}
}

// multiBoundProvider simulates drifted data where one card UID is bound
// in more than one table. The create-path guard prevents this through the
// API, so resolution of it can only be exercised with a stub.
type multiBoundProvider struct {
	storage.Provider
	person   *storage.Person
	book     *storage.Book
	computer *storage.Computer
}

func (p *multiBoundProvider) PersonByCard(_ context.Context, _ string) (*storage.Person, error) {
	if p.person == nil {
		return nil, storage.ErrNotFound
	}
	return p.person, nil
}

func (p *multiBoundProvider) BookByCard(_ context.Context, _ string) (*storage.Book, error) {
	if p.book == nil {
		return nil, storage.ErrNotFound
	}
	return p.book, nil
}

func (p *multiBoundProvider) ComputerByCard(_ context.Context, _ string) (*storage.Computer, error) {
	if p.computer == nil {
		return nil, storage.ErrNotFound
	}
	return p.computer, nil
}

func TestResolve_AmbiguousCardPrefersPerson(t *testing.T) {
	dir := New(&multiBoundProvider{
		person:   &storage.Person{ID: 1, FullName: "Ana"},
		book:     &storage.Book{ID: 2, Title: "El Quijote"},
		computer: &storage.Computer{ID: 3, Brand: "Lenovo", Model: "T14"},
	})

	ref, err := dir.Resolve(context.Background(), "04BADBIND")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if ref.Kind != storage.KindPerson || ref.ID != 1 {
		t.Errorf("expected person 1 to win resolution, got %+v", ref)
	}
}

func TestResolve_AmbiguousCardPrefersBookOverComputer(t *testing.T) {
	dir := New(&multiBoundProvider{
		book:     &storage.Book{ID: 2, Title: "El Quijote"},
		computer: &storage.Computer{ID: 3, Brand: "Lenovo", Model: "T14"},
	})

	ref, err := dir.Resolve(context.Background(), "04BADBIND")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if ref.Kind != storage.KindBook || ref.ID != 2 {
		t.Errorf("expected book 2 to win resolution, got %+v", ref)
	}
}

func TestEntityRef_IsResource(t *testing.T) {
	if (EntityRef{Kind: storage.KindPerson}).IsResource() {
		t.Error("person is not a resource")
	}
	if !(EntityRef{Kind: storage.KindBook}).IsResource() {
		t.Error("book is a resource")
	}
	if !(EntityRef{Kind: storage.KindComputer}).IsResource() {
		t.Error("computer is a resource")
	}
}
