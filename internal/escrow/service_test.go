package escrow

import (
	"context"
	"errors"
	"testing"
)

func TestTypeForDay(t *testing.T) {
	if got := TypeForDay(1); got != TypeDay1Immediate {
		t.Fatalf("day 1 type = %s", got)
	}
	for _, day := range []int{2, 5, 15, 30, 31} {
		if got := TypeForDay(day); got != TypeAccumulated {
			t.Fatalf("day %d type = %s", day, got)
		}
	}
}

func TestBatchPrefix(t *testing.T) {
	if batchPrefix(TypeDay1Immediate) != "RBD" {
		t.Fatal("day-1 batches should use the RBD prefix")
	}
	if batchPrefix(TypeAccumulated) != "RBM" {
		t.Fatal("monthly batches should use the RBM prefix")
	}
}

func TestCreateRecordValidation(t *testing.T) {
	s := &Service{}

	if _, err := s.CreateRecord(context.Background(), "r1", "t1", 1, -1, 100); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("negative premium: err = %v", err)
	}
	if _, err := s.CreateRecord(context.Background(), "r1", "t1", 1, 0, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero amounts: err = %v", err)
	}
	if _, err := s.CreateRecord(context.Background(), "r1", "t1", 0, 15000, 89800); !errors.Is(err, ErrInvalidPaymentDay) {
		t.Fatalf("day zero: err = %v", err)
	}
}

func TestMarkAsRefundedValidation(t *testing.T) {
	s := &Service{}
	if _, err := s.MarkAsRefunded(context.Background(), "r1", "t1", 0); !errors.Is(err, ErrInvalidRefund) {
		t.Fatalf("err = %v, want ErrInvalidRefund", err)
	}
}
