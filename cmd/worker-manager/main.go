// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"quittance-workers/internal/common/aws"
	"quittance-workers/internal/common/billing"
	"quittance-workers/internal/common/config"
	"quittance-workers/internal/common/database"
	"quittance-workers/internal/common/logger"
	"quittance-workers/internal/common/observability"
	"quittance-workers/internal/notify"

	sss "quittance-workers/internal/workers/billing/sync-subscription-status"
	vs "quittance-workers/internal/workers/billing/validate-subscription"
	qma "quittance-workers/internal/workers/data-access/query-match-audit"
	qrd "quittance-workers/internal/workers/data-access/query-rent-data"
	cpd "quittance-workers/internal/workers/detection/check-payment-deadline"
	erp "quittance-workers/internal/workers/detection/evaluate-rent-payment"
	spr "quittance-workers/internal/workers/notifications/send-payment-reminder"
	sr "quittance-workers/internal/workers/notifications/send-receipt"
	crr "quittance-workers/internal/workers/receipts/create-receipt-record"
	rbc "quittance-workers/internal/workers/rules/revoke-bank-connection"
	smr "quittance-workers/internal/workers/rules/save-matching-rule"
)

// retryWithBackoff retries an operation with exponential backoff.
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for attempt := 1; attempt <= maxRetries; attempt++ {
		err = operation()
		if err == nil {
			return nil
		}

		log.Warn("operation failed, retrying",
			zap.String("operation", operationName),
			zap.Int("attempt", attempt),
			zap.Int("maxRetries", maxRetries),
			zap.Duration("nextDelay", delay),
			zap.Error(err),
		)

		if attempt < maxRetries {
			time.Sleep(delay)
			delay *= 2
		}
	}

	return err
}

func main() {
	ctx := context.Background()

	zapLog := logger.New("info", "console")
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("failed to load config", zap.Error(err))
	}

	zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log = logger.NewZapAdapter(zapLog)
	zapLog.Info("configuration loaded",
		zap.String("app", cfg.App.Name),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	// --- Init Zeebe client with retry ---
	var zeebeClient zbc.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebeClient, err = zbc.NewClient(&zbc.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe connection")

	if err != nil {
		zapLog.Fatal("zeebe failed after retries", zap.Error(err))
	}
	defer zeebeClient.Close()
	zapLog.Info("Zeebe connected successfully", zap.String("gateway", cfg.Camunda.BrokerAddress))

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init notification providers ---
	var emailProviders []notify.Provider
	if cfg.Integrations.AWS.SES.Enabled {
		sesClient, err := aws.NewSESClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zapLog.Fatal("failed to create SES client", zap.Error(err))
		}
		emailProviders = append(emailProviders,
			notify.NewSESProvider(sesClient, cfg.Integrations.AWS.SES.FromEmail))
	}
	if cfg.Integrations.SMTP.Enabled {
		emailProviders = append(emailProviders, notify.NewSMTPProvider(notify.SMTPConfig{
			Host:        cfg.Integrations.SMTP.Host,
			Port:        cfg.Integrations.SMTP.Port,
			Username:    cfg.Integrations.SMTP.Username,
			Password:    cfg.Integrations.SMTP.Password,
			UseTLS:      cfg.Integrations.SMTP.UseTLS,
			From:        cfg.Integrations.SMTP.DefaultFrom,
		}))
	}
	emailChain := notify.NewChain("email", log, emailProviders...)

	var smsProviders []notify.Provider
	if cfg.Integrations.AWS.SNS.Enabled {
		snsClient, err := aws.NewSNSClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zapLog.Fatal("failed to create SNS client", zap.Error(err))
		}
		smsProviders = append(smsProviders, notify.NewSNSProvider(snsClient))
	}
	if cfg.Integrations.SMSGateway.Enabled {
		smsProviders = append(smsProviders, notify.NewHTTPSMSProvider(
			cfg.Integrations.SMSGateway.BaseURL,
			cfg.Integrations.SMSGateway.APIKey,
			cfg.Integrations.SMSGateway.Sender,
		))
	}
	smsChain := notify.NewChain("sms", log, smsProviders...)

	billingClient := billing.NewClient(
		cfg.Billing.Provider.BaseURL,
		cfg.Billing.Provider.APIKey,
		time.Duration(cfg.Billing.Provider.Timeout)*time.Millisecond,
	)

	zapLog.Info("All external service clients initialized")

	// --- 1. Detection Workers (2) ---
	if cfg.Workers[erp.TaskType].Enabled {
		handler := erp.NewHandler(
			&erp.Config{
				Timeout:        time.Duration(cfg.Workers[erp.TaskType].Timeout) * time.Millisecond,
				RuleCacheTTL:   time.Duration(cfg.Detection.RuleCacheTTLMinutes) * time.Minute,
				ReceiptLockTTL: time.Duration(cfg.Detection.ReceiptLockTTLHours) * time.Hour,
				AuditIndex:     cfg.Detection.AuditIndex,
			},
			pg.DB, redis.Client, esClient.Client, log,
		)
		startWorker(zeebeClient, erp.TaskType, cfg.Workers[erp.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[cpd.TaskType].Enabled {
		handler := cpd.NewHandler(
			&cpd.Config{
				Timeout: time.Duration(cfg.Workers[cpd.TaskType].Timeout) * time.Millisecond,
			},
			pg.DB, log,
		)
		startWorker(zeebeClient, cpd.TaskType, cfg.Workers[cpd.TaskType], handler.Handle, zapLog)
	}

	// --- 2. Rule Workers (2) ---
	if cfg.Workers[smr.TaskType].Enabled {
		handler := smr.NewHandler(
			&smr.Config{
				Timeout: time.Duration(cfg.Workers[smr.TaskType].Timeout) * time.Millisecond,
			},
			pg.DB, redis.Client, log,
		)
		startWorker(zeebeClient, smr.TaskType, cfg.Workers[smr.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[rbc.TaskType].Enabled {
		handler := rbc.NewHandler(
			&rbc.Config{
				Timeout: time.Duration(cfg.Workers[rbc.TaskType].Timeout) * time.Millisecond,
			},
			pg.DB, redis.Client, log,
		)
		startWorker(zeebeClient, rbc.TaskType, cfg.Workers[rbc.TaskType], handler.Handle, zapLog)
	}

	// --- 3. Billing Workers (2) ---
	if cfg.Workers[vs.TaskType].Enabled {
		handler := vs.NewHandler(
			&vs.Config{
				Timeout:  time.Duration(cfg.Workers[vs.TaskType].Timeout) * time.Millisecond,
				CacheTTL: time.Duration(cfg.Billing.CacheTTLMinutes) * time.Minute,
			},
			pg.DB, redis.Client, log,
		)
		startWorker(zeebeClient, vs.TaskType, cfg.Workers[vs.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[sss.TaskType].Enabled {
		handler := sss.NewHandler(
			&sss.Config{
				Timeout: time.Duration(cfg.Workers[sss.TaskType].Timeout) * time.Millisecond,
			},
			pg.DB, redis.Client, billingClient, log,
		)
		startWorker(zeebeClient, sss.TaskType, cfg.Workers[sss.TaskType], handler.Handle, zapLog)
	}

	// --- 4. Receipt Worker (1) ---
	if cfg.Workers[crr.TaskType].Enabled {
		handler := crr.NewHandler(
			&crr.Config{
				Timeout: time.Duration(cfg.Workers[crr.TaskType].Timeout) * time.Millisecond,
			},
			pg.DB, log,
		)
		startWorker(zeebeClient, crr.TaskType, cfg.Workers[crr.TaskType], handler.Handle, zapLog)
	}

	// --- 5. Notification Workers (2) ---
	if cfg.Workers[sr.TaskType].Enabled {
		handler := sr.NewHandler(
			&sr.Config{
				EmailEnabled: cfg.Notifications.Email.Enabled,
				FromEmail:    cfg.Notifications.Email.FromEmail,
				Timeout:      time.Duration(cfg.Workers[sr.TaskType].Timeout) * time.Millisecond,
			},
			pg.DB, emailChain, log,
		)
		startWorker(zeebeClient, sr.TaskType, cfg.Workers[sr.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[spr.TaskType].Enabled {
		handler := spr.NewHandler(
			&spr.Config{
				SMSEnabled: cfg.Notifications.SMS.Enabled,
				Timeout:    time.Duration(cfg.Workers[spr.TaskType].Timeout) * time.Millisecond,
			},
			pg.DB, smsChain, log,
		)
		startWorker(zeebeClient, spr.TaskType, cfg.Workers[spr.TaskType], handler.Handle, zapLog)
	}

	// --- 6. Data Access Workers (2) ---
	if cfg.Workers[qrd.TaskType].Enabled {
		handler := qrd.NewHandler(
			&qrd.Config{
				Timeout: time.Duration(cfg.Workers[qrd.TaskType].Timeout) * time.Millisecond,
			},
			pg.DB, log,
		)
		startWorker(zeebeClient, qrd.TaskType, cfg.Workers[qrd.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[qma.TaskType].Enabled {
		handler := qma.NewHandler(
			&qma.Config{
				Timeout:    time.Duration(cfg.Workers[qma.TaskType].Timeout) * time.Millisecond,
				AuditIndex: cfg.Detection.AuditIndex,
			},
			esClient.Client, log,
		)
		startWorker(zeebeClient, qma.TaskType, cfg.Workers[qma.TaskType], handler.Handle, zapLog)
	}

	zapLog.Info("All 11 workers registered successfully")

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")

	if err := zeebeClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func startWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handlerFunc func(worker.JobClient, entities.Job), log *zap.Logger) {
	if !wcfg.Enabled {
		log.Info("worker disabled", zap.String("taskType", taskType))
		return
	}

	client.NewJobWorker().
		JobType(taskType).
		Handler(handlerFunc).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()

	log.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", wcfg.MaxJobsActive),
		zap.Int("timeout_ms", wcfg.Timeout),
	)
}
