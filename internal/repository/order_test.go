package repository

import (
	"errors"
	"testing"

	"github.com/HanaFlU/TechZone-sub001/internal/model"
)

func TestPaymentTransition(t *testing.T) {
	tests := []struct {
		name     string
		stored   model.PaymentStatus
		incoming model.PaymentStatus
		want     model.OrderStatus
		wantErr  error
	}{
		{
			name:     "success leaves order pending fulfilment",
			stored:   model.PaymentStatusPending,
			incoming: model.PaymentStatusSuccessed,
			want:     model.OrderStatusPending,
		},
		{
			name:     "failure cancels the order",
			stored:   model.PaymentStatusPending,
			incoming: model.PaymentStatusFailed,
			want:     model.OrderStatusCancelled,
		},
		{
			name:     "repeated success is a duplicate",
			stored:   model.PaymentStatusSuccessed,
			incoming: model.PaymentStatusSuccessed,
			wantErr:  ErrDuplicateCallback,
		},
		{
			name:     "repeated failure is a duplicate",
			stored:   model.PaymentStatusFailed,
			incoming: model.PaymentStatusFailed,
			wantErr:  ErrDuplicateCallback,
		},
		{
			name:     "failure after success cancels the order",
			stored:   model.PaymentStatusSuccessed,
			incoming: model.PaymentStatusFailed,
			want:     model.OrderStatusCancelled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := paymentTransition(tt.stored, tt.incoming)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if next != tt.want {
				t.Fatalf("next status = %s, want %s", next, tt.want)
			}
		})
	}
}

func TestPaymentTransition_RejectsNonTerminalStatus(t *testing.T) {
	_, err := paymentTransition(model.PaymentStatusPending, model.PaymentStatusPending)
	if !errors.Is(err, ErrDuplicateCallback) {
		t.Fatalf("err = %v, want ErrDuplicateCallback", err)
	}

	_, err = paymentTransition(model.PaymentStatusSuccessed, model.PaymentStatus("REFUNDED"))
	if err == nil {
		t.Fatalf("expected error for unknown payment status")
	}
}
