package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"biztech/api/internal/apperr"
	"biztech/api/internal/config"
	"biztech/api/internal/models"
	"biztech/api/internal/utils"
)

// recordingGateway is a fake payment gateway that records the paths it was
// called on.
type recordingGateway struct {
	mu      sync.Mutex
	paths   []string
	decline bool
}

func (g *recordingGateway) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		g.paths = append(g.paths, r.URL.Path)
		g.mu.Unlock()
		if g.decline {
			w.WriteHeader(http.StatusPaymentRequired)
			json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "message": "insufficient funds"})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
	}
}

func (g *recordingGateway) calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.paths...)
}

func gatewayConfig(url string) *config.Config {
	return &config.Config{
		PaymentGatewayURL: url,
		FeeCurrencyCode:   "AED",
	}
}

// unreachableDatabase returns a handle whose operations fail fast because no
// server can be selected. Connecting is lazy, so this needs no running Mongo.
func unreachableDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	client, err := mongo.Connect(context.Background(), options.Client().
		ApplyURI("mongodb://127.0.0.1:1").
		SetServerSelectionTimeout(300*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	return client.Database("payments_unreachable")
}

func TestChargeRefundsWhenRecordingFails(t *testing.T) {
	gateway := &recordingGateway{}
	srv := httptest.NewServer(gateway.handler())
	defer srv.Close()

	p := NewProcessor(unreachableDatabase(t), gatewayConfig(srv.URL))

	_, err := p.Charge(context.Background(), utils.NewSixID(), 1500, "AED", "Premium listing fee: Cafe Aroma")
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))

	// The captured charge must be reversed at the gateway when it cannot be
	// written to the payments collection.
	assert.Equal(t, []string{"/charges", "/refunds"}, gateway.calls())
}

func TestChargeDeclinedLeavesNoRecord(t *testing.T) {
	gateway := &recordingGateway{decline: true}
	srv := httptest.NewServer(gateway.handler())
	defer srv.Close()

	db := utils.SetupTestDB(t, "biztech_test_payments", "payments")
	p := NewProcessor(db, gatewayConfig(srv.URL))

	_, err := p.Charge(context.Background(), utils.NewSixID(), 1500, "AED", "Premium listing fee: Cafe Aroma")
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
	assert.Contains(t, apperr.MessageOf(err), "insufficient funds")
	assert.Equal(t, []string{"/charges"}, gateway.calls())

	count, err := db.Collection("payments").CountDocuments(context.Background(), bson.M{})
	require.NoError(t, err)
	assert.EqualValues(t, 0, count, "a declined charge leaves no payment record")
}

func TestChargeRejectsNonPositiveAmount(t *testing.T) {
	p := NewProcessor(nil, gatewayConfig(""))

	_, err := p.Charge(context.Background(), utils.NewSixID(), 0, "AED", "nothing")
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestChargeAndRefundLifecycle(t *testing.T) {
	gateway := &recordingGateway{}
	srv := httptest.NewServer(gateway.handler())
	defer srv.Close()

	db := utils.SetupTestDB(t, "biztech_test_payments", "payments")
	p := NewProcessor(db, gatewayConfig(srv.URL))
	accountID := utils.NewSixID()

	captured, err := p.Charge(context.Background(), accountID, 1500, "AED", "Premium listing fee: Cafe Aroma")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCaptured, captured.Status)
	assert.Equal(t, accountID, captured.AccountID)
	assert.NotEmpty(t, captured.Reference)

	require.NoError(t, p.Refund(context.Background(), captured.ID))
	assert.Equal(t, []string{"/charges", "/refunds"}, gateway.calls())

	var stored models.Payment
	require.NoError(t, db.Collection("payments").FindOne(context.Background(), bson.M{"_id": captured.ID}).Decode(&stored))
	assert.Equal(t, models.PaymentRefunded, stored.Status)

	// A refunded payment is not refundable again.
	err = p.Refund(context.Background(), captured.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestChargeAutoApprovesWithoutGateway(t *testing.T) {
	db := utils.SetupTestDB(t, "biztech_test_payments", "payments")
	p := NewProcessor(db, gatewayConfig(""))

	captured, err := p.Charge(context.Background(), utils.NewSixID(), 1500, "AED", "Premium listing fee: Cafe Aroma")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCaptured, captured.Status)
}
