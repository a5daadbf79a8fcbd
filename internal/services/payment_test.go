package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/notelet/notelet-backend/internal/types"
)

type fakePaymentEventRepo struct {
	mu     sync.Mutex
	events []*types.PaymentEvent
}

func (r *fakePaymentEventRepo) Create(ctx context.Context, tx *gorm.DB, events []*types.PaymentEvent) ([]*types.PaymentEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return events, nil
}

func (r *fakePaymentEventRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.PaymentEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.PaymentEvent
	for _, e := range r.events {
		if e.UserID != nil && *e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestPayment_WebhookSignature(t *testing.T) {
	t.Setenv("PAYMENT_WEBHOOK_SECRET", "whsec")
	repo := &fakePaymentEventRepo{}
	svc := NewPaymentService(testLogger(t), repo)
	ctx := context.Background()

	body := []byte(`{"event_type": "payment.succeeded", "order_ref": "ord_42"}`)

	event, err := svc.HandleWebhook(ctx, "stripe", signBody("whsec", body), body)
	if err != nil {
		t.Fatalf("valid signature: %v", err)
	}
	if event.EventType != "payment.succeeded" || event.OrderRef != "ord_42" {
		t.Fatalf("event fields: %+v", event)
	}

	if _, err := svc.HandleWebhook(ctx, "stripe", signBody("wrong", body), body); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad signature: want ErrValidation got %v", err)
	}
	if _, err := svc.HandleWebhook(ctx, "stripe", "", body); !errors.Is(err, ErrValidation) {
		t.Fatalf("missing signature: want ErrValidation got %v", err)
	}
}

func TestPayment_MalformedBody(t *testing.T) {
	t.Setenv("PAYMENT_WEBHOOK_SECRET", "whsec")
	svc := NewPaymentService(testLogger(t), &fakePaymentEventRepo{})

	body := []byte("not json")
	if _, err := svc.HandleWebhook(context.Background(), "stripe", signBody("whsec", body), body); !errors.Is(err, ErrValidation) {
		t.Fatalf("malformed body: want ErrValidation got %v", err)
	}
}
