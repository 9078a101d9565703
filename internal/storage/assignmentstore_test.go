package storage

import (
	"testing"
	"time"

	"github.com/example/courier-client/internal/models"
)

func TestMemoryStoreSaveAndUpdate(t *testing.T) {
	st := NewMemoryStore()

	a := &models.Assignment{
		OrderID:   "order-1",
		RiderID:   "rider-1",
		UniqueKey: "key-1",
		Status:    "assigned",
		CreatedAt: time.Now(),
	}
	if err := st.SaveAssignment(a); err != nil {
		t.Fatalf("SaveAssignment: %v", err)
	}

	got, ok := st.Get("order-1")
	if !ok {
		t.Fatal("expected assignment for order-1")
	}
	if got.Status != "assigned" {
		t.Fatalf("status = %q, want assigned", got.Status)
	}

	a.Status = "partial_failure"
	a.UpdatedAt = time.Now()
	if err := st.UpdateAssignment(a); err != nil {
		t.Fatalf("UpdateAssignment: %v", err)
	}
	got, _ = st.Get("order-1")
	if got.Status != "partial_failure" {
		t.Fatalf("status = %q, want partial_failure", got.Status)
	}

	if _, ok := st.Get("missing"); ok {
		t.Fatal("unexpected assignment for unknown order")
	}
}
