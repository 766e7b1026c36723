package alerts

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/sudo-init-do/taskhub/internal/metrics"
)

var (
	client *asynq.Client
	server *asynq.Server
	m      *metrics.Metrics
	logger = slog.Default()
)

// Init starts the Asynq server and initializes a shared client.
func Init(redisAddr, redisPassword string, redisDB int, log *slog.Logger, reg *metrics.Metrics) {
	if log != nil {
		logger = log.With("component", "alerts")
	}
	m = reg

	opts := asynq.RedisClientOpt{Addr: redisAddr, Password: redisPassword, DB: redisDB}
	client = asynq.NewClient(opts)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskWelcomeEmail, handleEmailTask(TaskWelcomeEmail))
	mux.HandleFunc(TaskOTPCode, handleEmailTask(TaskOTPCode))
	mux.HandleFunc(TaskBookingStatus, handleEmailTask(TaskBookingStatus))
	mux.HandleFunc(TaskMessageNew, handleEmailTask(TaskMessageNew))
	mux.HandleFunc(TaskPasswordReset, handleEmailTask(TaskPasswordReset))

	server = asynq.NewServer(opts, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			"emails": 10,
			"alerts": 5,
		},
	})
	go func() {
		if err := server.Run(mux); err != nil {
			logger.Error("asynq server stopped", "error", err)
		}
	}()

	logger.Info("alerts queue initialized", "addr", redisAddr)
}

// Close releases client and stops server.
func Close() {
	if client != nil {
		_ = client.Close()
	}
	if server != nil {
		server.Shutdown()
	}
}

// Every task carries the same envelope shape; parsing just the envelope keeps
// one handler for all five task types.
type envelopeOnly struct {
	Envelope EmailEnvelope `json:"envelope"`
}

func handleEmailTask(taskType string) asynq.HandlerFunc {
	return func(_ context.Context, t *asynq.Task) error {
		var p envelopeOnly
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			countJob(taskType, "bad_payload")
			return err
		}
		if err := SendEmail(p.Envelope.To, p.Envelope.Subject, p.Envelope.Body); err != nil {
			logger.Error("email send failed", "task", taskType, "to", p.Envelope.To, "error", err)
			countJob(taskType, "error")
			return err
		}
		logger.Info("email sent", "task", taskType, "to", p.Envelope.To)
		countJob(taskType, "ok")
		return nil
	}
}

func countJob(task, outcome string) {
	if m != nil {
		m.NotifyJobs.WithLabelValues(task, outcome).Inc()
	}
}
