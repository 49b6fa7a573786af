package workers

import (
	"context"

	"microblog_backend/internal/logger"
	"microblog_backend/internal/pkg/email"
)

// MailJob is one password-reset mail waiting to be delivered.
type MailJob struct {
	To       string
	Username string
	Token    string
}

// MailWorker delivers mail off the request path. Submission is
// fire-and-forget: the triggering request never blocks on the relay, a
// full queue drops the job with a warning, and delivery failures are
// logged but not surfaced.
type MailWorker struct {
	mailer email.Mailer
	jobs   chan MailJob
}

func NewMailWorker(mailer email.Mailer, queueSize int) *MailWorker {
	return &MailWorker{
		mailer: mailer,
		jobs:   make(chan MailJob, queueSize),
	}
}

// Start launches the delivery loop.
func (w *MailWorker) Start(ctx context.Context) {
	go w.run(ctx)
}

// Enqueue submits a job without blocking.
func (w *MailWorker) Enqueue(job MailJob) {
	select {
	case w.jobs <- job:
	default:
		logger.Warn("mail queue full, dropping message", "to", job.To)
	}
}

func (w *MailWorker) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("mail worker stopped")
			return
		case job := <-w.jobs:
			if err := w.mailer.SendPasswordReset(job.To, job.Username, job.Token); err != nil {
				logger.Error("failed to send password reset mail", "error", err, "to", job.To)
			}
		}
	}
}
