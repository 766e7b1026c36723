package realtime

import "testing"

func TestStateInsertIdempotent(t *testing.T) {
	s := NewState()
	c := Change{Kind: KindInsert, Table: TableBookings, RowID: "b1", Payload: "v1"}

	if !s.Apply(c) {
		t.Fatal("first insert should change state")
	}
	if s.Apply(c) {
		t.Fatal("repeated insert should be a no-op")
	}
	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1", s.Len())
	}
	if rows := s.Rows(); rows[0] != "v1" {
		t.Fatalf("payload = %v, want v1", rows[0])
	}
}

func TestStateUpdateReplaces(t *testing.T) {
	s := NewState()
	s.Apply(Change{Kind: KindInsert, RowID: "b1", Payload: "v1"})

	if !s.Apply(Change{Kind: KindUpdate, RowID: "b1", Payload: "v2"}) {
		t.Fatal("update should change state")
	}
	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1", s.Len())
	}
	if rows := s.Rows(); rows[0] != "v2" {
		t.Fatalf("payload = %v, want v2", rows[0])
	}
}

func TestStateUpdateBeforeInsert(t *testing.T) {
	s := NewState()
	if !s.Apply(Change{Kind: KindUpdate, RowID: "b1", Payload: "v1"}) {
		t.Fatal("update of unseen row should insert it")
	}
	if s.Apply(Change{Kind: KindInsert, RowID: "b1", Payload: "stale"}) {
		t.Fatal("late insert after update should be dropped")
	}
	if rows := s.Rows(); rows[0] != "v1" {
		t.Fatalf("payload = %v, want v1", rows[0])
	}
}

func TestStateRowsFirstSeenOrder(t *testing.T) {
	s := NewState()
	s.Apply(Change{Kind: KindInsert, RowID: "a", Payload: 1})
	s.Apply(Change{Kind: KindInsert, RowID: "b", Payload: 2})
	s.Apply(Change{Kind: KindUpdate, RowID: "a", Payload: 3})

	rows := s.Rows()
	if len(rows) != 2 || rows[0] != 3 || rows[1] != 2 {
		t.Fatalf("rows = %v, want [3 2]", rows)
	}
}

func TestStateEmptyRowID(t *testing.T) {
	s := NewState()
	if s.Apply(Change{Kind: KindInsert, Payload: "x"}) {
		t.Fatal("change without a row id must be ignored")
	}
}
