package querycache

import (
	"testing"
	"time"
)

type fakeItem struct {
	id  int64
	ver int
}

func (f fakeItem) ID() int64 { return f.id }
func (f fakeItem) Equal(other Item) bool {
	o, ok := other.(fakeItem)
	return ok && o.ver == f.ver
}

func TestDiffInsertUpdateDelete(t *testing.T) {
	last := map[int64]Item{
		1: fakeItem{id: 1, ver: 1},
		2: fakeItem{id: 2, ver: 1},
	}
	current := []Item{
		fakeItem{id: 2, ver: 2}, // updated
		fakeItem{id: 3, ver: 1}, // inserted
		// id 1 removed
	}

	changes := diff(last, current)
	var inserts, updates, deletes int
	for _, c := range changes {
		switch c.Kind {
		case ChangeInsert:
			inserts++
		case ChangeUpdate:
			updates++
		case ChangeDelete:
			deletes++
		}
	}
	if inserts != 1 || updates != 1 || deletes != 1 {
		t.Fatalf("expected 1 insert, 1 update, 1 delete; got ins=%d upd=%d del=%d", inserts, updates, deletes)
	}
}

func TestCacheDebouncesRecompute(t *testing.T) {
	calls := 0
	var changes []Change
	c, err := Open("test", func() ([]Item, error) {
		calls++
		return []Item{fakeItem{id: 1, ver: calls}}, nil
	}, "", func(ch []Change) { changes = ch })
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	c.Invalidate()
	c.Invalidate()
	c.Invalidate()
	time.Sleep(600 * time.Millisecond)

	if calls != 1 {
		t.Fatalf("expected exactly one recompute for three coalesced invalidations, got %d", calls)
	}
	if len(changes) != 1 || changes[0].Kind != ChangeInsert {
		t.Fatalf("expected one insert change on first recompute, got %+v", changes)
	}
}
