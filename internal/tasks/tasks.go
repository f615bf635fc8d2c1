package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"biztech/api/internal/config"
	"biztech/api/internal/email"
	"biztech/api/internal/services"
)

// Task types.
const (
	TypeEmailDelivery       = "email:deliver"
	TypeViewsFlush          = "listing:views:flush"
	TypeVerificationCleanup = "verification:cleanup"
)

// Email template IDs known to the delivery handler.
const (
	TemplateVerifyEmail     = "verify_email"
	TemplatePasswordReset   = "password_reset"
	TemplateAccountApproved = "account_approved"
	TemplateAccountRejected = "account_rejected"
	TemplateListingApproved = "listing_approved"
	TemplateListingRejected = "listing_rejected"
	TemplateLeadReceived    = "lead_received"
	TemplateValuationAck    = "valuation_received"
)

// EmailTaskPayload is the payload of a TypeEmailDelivery task.
type EmailTaskPayload struct {
	To         string            `json:"to"`
	TemplateID string            `json:"template_id"`
	Data       map[string]string `json:"data"`
}

// NewClient creates an asynq client on the same Redis the cache uses.
func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	})
}

// EnqueueEmail queues an email for background delivery.
func EnqueueEmail(ctx context.Context, client *asynq.Client, payload EmailTaskPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}
	_, err = client.EnqueueContext(ctx, asynq.NewTask(TypeEmailDelivery, data), asynq.Queue("default"), asynq.MaxRetry(5))
	if err != nil {
		return fmt.Errorf("failed to enqueue email task: %w", err)
	}
	return nil
}

// TaskProcessor holds the dependencies the task handlers need.
type TaskProcessor struct {
	cfg            *config.Config
	emailSender    email.Sender
	accountService services.IAccountService
	listingService services.IListingService
}

func NewTaskProcessor(
	cfg *config.Config,
	emailSender email.Sender,
	accountService services.IAccountService,
	listingService services.IListingService,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:            cfg,
		emailSender:    emailSender,
		accountService: accountService,
		listingService: listingService,
	}
}

// NewServer configures an asynq server with the handlers registered. The
// caller runs it.
func NewServer(rdb *redis.Client, processor *TaskProcessor) (*asynq.Server, *asynq.ServeMux) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     rdb.Options().Addr,
			Password: rdb.Options().Password,
			DB:       rdb.Options().DB,
		},
		asynq.Config{
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("ERROR: task %s failed: %v (payload: %s)", task.Type(), err, string(task.Payload()))
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeEmailDelivery, processor.HandleEmailDeliveryTask)
	mux.HandleFunc(TypeViewsFlush, processor.HandleViewsFlushTask)
	mux.HandleFunc(TypeVerificationCleanup, processor.HandleVerificationCleanupTask)

	return srv, mux
}

// NewScheduler registers the periodic tasks: view flushing on the configured
// tick and a daily sweep of expired verification codes.
func NewScheduler(rdb *redis.Client, cfg *config.Config) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{
			Addr:     rdb.Options().Addr,
			Password: rdb.Options().Password,
			DB:       rdb.Options().DB,
		},
		&asynq.SchedulerOpts{},
	)

	flushSpec := fmt.Sprintf("@every %s", cfg.ViewsFlushTick)
	if _, err := scheduler.Register(flushSpec, asynq.NewTask(TypeViewsFlush, nil), asynq.Queue("low")); err != nil {
		return nil, fmt.Errorf("failed to register views flush schedule: %w", err)
	}
	if _, err := scheduler.Register("@every 24h", asynq.NewTask(TypeVerificationCleanup, nil), asynq.Queue("low")); err != nil {
		return nil, fmt.Errorf("failed to register verification cleanup schedule: %w", err)
	}
	return scheduler, nil
}

// HandleEmailDeliveryTask renders a template and hands the message to the
// configured sender.
func (p *TaskProcessor) HandleEmailDeliveryTask(ctx context.Context, t *asynq.Task) error {
	var payload EmailTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal email task payload: %v: %w", err, asynq.SkipRetry)
	}

	subject, body, err := renderTemplate(payload.TemplateID, payload.Data)
	if err != nil {
		log.Printf("ERROR: %v", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	message := email.ComposeMessage(p.cfg.SmtpFromAddress, payload.To, subject, body)
	if err := p.emailSender.Send(ctx, []string{payload.To}, subject, message); err != nil {
		log.Printf("WARN: email delivery to %s failed, will retry: %v", payload.To, err)
		return err
	}
	return nil
}

// HandleViewsFlushTask drains the Redis view counters into Mongo.
func (p *TaskProcessor) HandleViewsFlushTask(ctx context.Context, t *asynq.Task) error {
	flushed, err := p.listingService.FlushViews(ctx)
	if err != nil {
		log.Printf("WARN: view flush failed: %v", err)
		return err
	}
	if flushed > 0 {
		log.Printf("Flushed view counters for %d listings", flushed)
	}
	return nil
}

// HandleVerificationCleanupTask soft-deletes expired verification codes.
func (p *TaskProcessor) HandleVerificationCleanupTask(ctx context.Context, t *asynq.Task) error {
	purged, err := p.accountService.PurgeExpiredVerifications(ctx)
	if err != nil {
		return err
	}
	if purged > 0 {
		log.Printf("Purged %d expired verification codes", purged)
	}
	return nil
}

func renderTemplate(templateID string, data map[string]string) (subject, body string, err error) {
	name := data["name"]
	switch templateID {
	case TemplateVerifyEmail:
		subject = "Verify your email address"
		body = fmt.Sprintf("Hi %s,\r\n\r\nYour verification code is: %s\r\n\r\nIt expires in %s.\r\n", name, data["code"], data["ttl"])
	case TemplatePasswordReset:
		subject = "Reset your password"
		body = fmt.Sprintf("Hi %s,\r\n\r\nYour password reset code is: %s\r\n\r\nIf you did not request this, ignore this email.\r\n", name, data["code"])
	case TemplateAccountApproved:
		subject = "Your account has been approved"
		body = fmt.Sprintf("Hi %s,\r\n\r\nYour seller account has been approved. You can now create listings.\r\n", name)
	case TemplateAccountRejected:
		subject = "Your account application"
		body = fmt.Sprintf("Hi %s,\r\n\r\nUnfortunately your account application was not approved.\r\n", name)
	case TemplateListingApproved:
		subject = "Your listing is live"
		body = fmt.Sprintf("Hi %s,\r\n\r\nYour listing %q has been approved and is now visible to buyers. Your assigned agent will be in touch.\r\n", name, data["listing_title"])
	case TemplateListingRejected:
		subject = "Your listing was not approved"
		body = fmt.Sprintf("Hi %s,\r\n\r\nYour listing %q was not approved.\r\n", name, data["listing_title"])
	case TemplateLeadReceived:
		subject = "New enquiry on your listing"
		body = fmt.Sprintf("Hi %s,\r\n\r\nA buyer has enquired about %q. Your agent will follow up.\r\n", name, data["listing_title"])
	case TemplateValuationAck:
		subject = "We received your valuation request"
		body = fmt.Sprintf("Hi %s,\r\n\r\nThanks for asking us to value %q. One of our advisors will contact you shortly.\r\n", name, data["business_name"])
	default:
		return "", "", fmt.Errorf("unknown email template %q", templateID)
	}
	return subject, body, nil
}
