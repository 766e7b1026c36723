package realtime

import "testing"

func collect(dst *[]Change) func(Change) {
	return func(c Change) { *dst = append(*dst, c) }
}

func TestHubRoutesToParticipants(t *testing.T) {
	h := NewHub(nil, nil)

	var got1, got2, got3 []Change
	h.Subscribe("u1", nil, collect(&got1), nil)
	h.Subscribe("u2", nil, collect(&got2), nil)
	h.Subscribe("u3", nil, collect(&got3), nil)

	h.Publish(Change{
		Kind:         KindInsert,
		Table:        TableBookings,
		RowID:        "b1",
		Participants: []string{"u1", "u2"},
	})

	if len(got1) != 1 || len(got2) != 1 {
		t.Fatalf("participants got %d/%d events, want 1/1", len(got1), len(got2))
	}
	if len(got3) != 0 {
		t.Fatal("non-participant received the event")
	}
}

func TestHubTableFilter(t *testing.T) {
	h := NewHub(nil, nil)

	var bookingsOnly, all []Change
	h.Subscribe("u1", []string{TableBookings}, collect(&bookingsOnly), nil)
	h.Subscribe("u1", nil, collect(&all), nil)

	h.Publish(Change{Kind: KindInsert, Table: TableMessages, RowID: "m1", Participants: []string{"u1"}})
	h.Publish(Change{Kind: KindInsert, Table: TableBookings, RowID: "b1", Participants: []string{"u1"}})

	if len(bookingsOnly) != 1 || bookingsOnly[0].Table != TableBookings {
		t.Fatalf("filtered sub got %v", bookingsOnly)
	}
	if len(all) != 2 {
		t.Fatalf("unfiltered sub got %d events, want 2", len(all))
	}
}

func TestHubKindDispatch(t *testing.T) {
	h := NewHub(nil, nil)

	var inserts, updates []Change
	h.Subscribe("u1", nil, collect(&inserts), collect(&updates))

	h.Publish(Change{Kind: KindInsert, Table: TableBookings, RowID: "b1", Participants: []string{"u1"}})
	h.Publish(Change{Kind: KindUpdate, Table: TableBookings, RowID: "b1", Participants: []string{"u1"}})

	if len(inserts) != 1 || len(updates) != 1 {
		t.Fatalf("got %d inserts, %d updates; want 1/1", len(inserts), len(updates))
	}
}

func TestHubCloseStopsDelivery(t *testing.T) {
	h := NewHub(nil, nil)

	var got []Change
	sub := h.Subscribe("u1", nil, collect(&got), nil)
	sub.Close()
	sub.Close() // double close is safe

	h.Publish(Change{Kind: KindInsert, Table: TableBookings, RowID: "b1", Participants: []string{"u1"}})
	if len(got) != 0 {
		t.Fatal("closed subscription still received events")
	}
}

func TestHubRebind(t *testing.T) {
	h := NewHub(nil, nil)

	var got []Change
	sub := h.Subscribe("u1", nil, collect(&got), nil)
	sub.Rebind("u2")

	h.Publish(Change{Kind: KindInsert, Table: TableBookings, RowID: "b1", Participants: []string{"u1"}})
	if len(got) != 0 {
		t.Fatal("rebound subscription still routed as old identity")
	}

	h.Publish(Change{Kind: KindInsert, Table: TableBookings, RowID: "b2", Participants: []string{"u2"}})
	if len(got) != 1 {
		t.Fatalf("rebound subscription got %d events, want 1", len(got))
	}
}

func TestHubRebindEmptyCloses(t *testing.T) {
	h := NewHub(nil, nil)

	var got []Change
	sub := h.Subscribe("u1", nil, collect(&got), nil)
	sub.Rebind("")

	h.Publish(Change{Kind: KindInsert, Table: TableBookings, RowID: "b1", Participants: []string{"u1"}})
	if len(got) != 0 {
		t.Fatal("empty rebind must close the subscription")
	}
}

func TestHubEmptyUserID(t *testing.T) {
	h := NewHub(nil, nil)
	if sub := h.Subscribe("", nil, nil, nil); sub != nil {
		t.Fatal("empty user id must yield no subscription")
	}
	// Nil subscription methods are safe no-ops.
	var sub *Subscription
	sub.Close()
	sub.Rebind("u1")
}
