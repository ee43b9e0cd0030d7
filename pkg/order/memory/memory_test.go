package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"scoopflow/pkg/order"
)

func TestRepository(t *testing.T) {
	ctx := context.Background()
	repo := New()
	o := order.Order{
		Scoop:    order.Scoop{Flavor: "mint", Color: "green"},
		Customer: order.Customer{Name: "Ada"},
		Price:    3.25,
		Status:   order.StatusPending,
		Date:     time.Now(),
	}
	created, err := repo.Create(ctx, o)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected an id to be assigned")
	}
	got, err := repo.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Scoop.Flavor != "mint" {
		t.Fatalf("expected mint, got %s", got.Scoop.Flavor)
	}
	updated, err := repo.UpdateStatus(ctx, created.ID, "scooping")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != "scooping" || updated.Price != 3.25 {
		t.Fatalf("unexpected update result: %+v", updated)
	}
	list, err := repo.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v len=%d", err, len(list))
	}
	if err := repo.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(ctx, created.ID); !errors.Is(err, order.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRepositoryNotFound(t *testing.T) {
	ctx := context.Background()
	repo := New()
	if _, err := repo.Create(ctx, order.Order{Status: "pending"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := repo.UpdateStatus(ctx, "missing", "done"); !errors.Is(err, order.ErrNotFound) {
		t.Fatalf("update: expected ErrNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, "missing"); !errors.Is(err, order.ErrNotFound) {
		t.Fatalf("delete: expected ErrNotFound, got %v", err)
	}
	list, _ := repo.List(ctx)
	if len(list) != 1 || list[0].Status != "pending" {
		t.Fatalf("store changed by failed operations: %+v", list)
	}
}

func TestRepositoryListNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, offset := range []int{2, 0, 3, 1} {
		o := order.Order{Customer: order.Customer{Name: "c"}, Date: base.Add(time.Duration(offset) * time.Hour)}
		if _, err := repo.Create(ctx, o); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].Date.Before(list[i].Date) {
			t.Fatalf("list not sorted newest first at %d: %v before %v", i, list[i-1].Date, list[i].Date)
		}
	}
}

func TestRepositoryListReturnsCopy(t *testing.T) {
	ctx := context.Background()
	repo := New()
	created, _ := repo.Create(ctx, order.Order{Status: "pending"})

	list, _ := repo.List(ctx)
	list[0].Status = "tampered"

	got, _ := repo.Get(ctx, created.ID)
	if got.Status != "pending" {
		t.Fatalf("store mutated through List result: %s", got.Status)
	}
}

func TestRepositoryUniqueIDs(t *testing.T) {
	ctx := context.Background()
	repo := New()
	frozen := time.Unix(1700000000, 0)
	repo.now = func() time.Time { return frozen }

	const n = 50
	var wg sync.WaitGroup
	ids := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o, err := repo.Create(ctx, order.Order{})
			if err != nil {
				t.Errorf("create: %v", err)
				return
			}
			ids <- o.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
	if len(seen) != n {
		t.Fatalf("expected %d ids, got %d", n, len(seen))
	}
}
