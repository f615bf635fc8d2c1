// Package payment wraps the external payment gateway behind a narrow
// collaborator interface. Only confirmed charges are recorded; a declined or
// unreachable gateway leaves no trace so callers can abort cleanly.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"biztech/api/internal/apperr"
	"biztech/api/internal/config"
	"biztech/api/internal/db"
	"biztech/api/internal/models"
	"biztech/api/internal/utils"
)

// IProcessor defines the payment collaborator used by listing creation.
type IProcessor interface {
	Charge(ctx context.Context, accountID utils.SixID, amount float64, currencyCode, description string) (*models.Payment, error)
	Refund(ctx context.Context, paymentID utils.SixID) error
}

const paymentsCollection = "payments"

// gatewayChargeRequest is the request body sent to the gateway.
type gatewayChargeRequest struct {
	Reference    string  `json:"reference"`
	Amount       float64 `json:"amount"`
	CurrencyCode string  `json:"currency_code"`
	Description  string  `json:"description"`
}

// gatewayResponse is the expected gateway reply for charge and refund calls.
type gatewayResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// processor implements IProcessor against an HTTP gateway, recording captured
// charges in MongoDB.
type processor struct {
	db         *mongo.Database
	cfg        *config.Config
	httpClient *http.Client
}

// NewProcessor creates a new payment processor.
func NewProcessor(database *mongo.Database, cfg *config.Config) IProcessor {
	return &processor{
		db:         database,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Charge captures a payment with the gateway and records it. When no gateway
// is configured the charge auto-approves, mirroring local development without
// a payment provider.
func (p *processor) Charge(ctx context.Context, accountID utils.SixID, amount float64, currencyCode, description string) (*models.Payment, error) {
	if amount <= 0 {
		return nil, apperr.New(apperr.KindValidation, "Payment amount must be positive")
	}

	reference := uuid.NewString()

	if p.cfg.PaymentGatewayURL == "" {
		log.Println("WARN: payment gateway not configured, auto-approving charge.")
	} else {
		if err := p.callGateway(ctx, "/charges", gatewayChargeRequest{
			Reference:    reference,
			Amount:       amount,
			CurrencyCode: currencyCode,
			Description:  description,
		}); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	doc, err := db.InsertOne(ctx, p.db.Collection(paymentsCollection), &models.Payment{
		AccountID:    accountID,
		Description:  description,
		Amount:       amount,
		CurrencyCode: currencyCode,
		Reference:    reference,
		Status:       models.PaymentCaptured,
		CreatedAt:    now,
		UpdatedAt:    now,
		Deleted:      false,
	})
	if err != nil {
		// The gateway captured the money but we failed to record it. Reverse
		// the charge by reference; if that also fails, it needs a human.
		if refundErr := p.reverseUnrecorded(ctx, reference, amount, currencyCode, description); refundErr != nil {
			log.Printf("CRITICAL: captured charge %s could not be recorded (%v) or reversed (%v)", reference, err, refundErr)
		} else {
			log.Printf("ERROR: captured charge %s could not be recorded, charge reversed: %v", reference, err)
		}
		return nil, apperr.Wrap(apperr.KindUpstream, "Payment could not be recorded", err)
	}
	return doc.(*models.Payment), nil
}

// reverseUnrecorded refunds a captured charge that never made it into the
// payments collection. Refund cannot be used here: there is no stored record
// to load, only the gateway reference.
func (p *processor) reverseUnrecorded(ctx context.Context, reference string, amount float64, currencyCode, description string) error {
	if p.cfg.PaymentGatewayURL == "" {
		return nil
	}
	return p.callGateway(ctx, "/refunds", gatewayChargeRequest{
		Reference:    reference,
		Amount:       amount,
		CurrencyCode: currencyCode,
		Description:  description,
	})
}

// Refund reverses a previously captured payment.
func (p *processor) Refund(ctx context.Context, paymentID utils.SixID) error {
	collection := p.db.Collection(paymentsCollection)

	var captured models.Payment
	err := collection.FindOne(ctx, bson.M{"_id": paymentID, "status": models.PaymentCaptured, "deleted": false}).Decode(&captured)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return apperr.Newf(apperr.KindNotFound, "Payment %s not found or not refundable", paymentID.String())
		}
		return fmt.Errorf("failed to load payment %s for refund: %w", paymentID.String(), err)
	}

	if p.cfg.PaymentGatewayURL != "" {
		if err := p.callGateway(ctx, "/refunds", gatewayChargeRequest{
			Reference:    captured.Reference,
			Amount:       captured.Amount,
			CurrencyCode: captured.CurrencyCode,
			Description:  captured.Description,
		}); err != nil {
			return err
		}
	}

	update := bson.M{"$set": bson.M{
		"status":     models.PaymentRefunded,
		"updated_at": time.Now().UTC(),
	}}
	if _, err := collection.UpdateByID(ctx, paymentID, update); err != nil {
		return fmt.Errorf("failed to mark payment %s refunded: %w", paymentID.String(), err)
	}
	return nil
}

// callGateway posts a request to the gateway and interprets the reply.
func (p *processor) callGateway(ctx context.Context, path string, payload gatewayChargeRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.PaymentGatewayURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.PaymentGatewayKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.PaymentGatewayKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindUpstream, "Payment provider unreachable", err)
	}
	defer resp.Body.Close()

	var gw gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&gw); err != nil {
		return apperr.Wrap(apperr.KindUpstream, "Payment provider returned an unreadable response", err)
	}
	if resp.StatusCode != http.StatusOK || !gw.Success {
		msg := gw.Message
		if msg == "" {
			msg = fmt.Sprintf("gateway status %d", resp.StatusCode)
		}
		return apperr.Newf(apperr.KindUpstream, "Payment declined: %s", msg)
	}
	return nil
}
