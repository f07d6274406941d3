package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/nsqio/go-nsq"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/shandysiswandi/estatebite/internal/pkg/dbmigrate"
	"github.com/shandysiswandi/estatebite/internal/pkg/idempotency"
	"github.com/shandysiswandi/estatebite/internal/pkg/mail"
	"github.com/shandysiswandi/estatebite/internal/pkg/messaging"
	"github.com/shandysiswandi/estatebite/internal/pkg/storage"
	"github.com/shandysiswandi/estatebite/migrations"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

const pingTimeout = 5 * time.Second

func (a *App) initDatabase() error {
	url := strings.TrimSpace(a.config.GetString("database.url"))
	if url == "" {
		slog.Info("database not configured, skipping")
		return nil
	}

	if a.config.GetBool("database.migrate") {
		if err := dbmigrate.Up(url, migrations.FS); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return err
	}
	cfg.MaxConns = a.config.GetInt32("database.pool.max_conns")
	cfg.MinConns = a.config.GetInt32("database.pool.min_conns")
	cfg.MaxConnLifetime = a.config.GetSecond("database.pool.max_conn_lifetime_seconds")
	cfg.MaxConnIdleTime = a.config.GetSecond("database.pool.max_conn_idle_seconds")
	cfg.HealthCheckPeriod = a.config.GetSecond("database.pool.health_check_period_seconds")

	pool, err := pgxpool.NewWithConfig(a.ctx, cfg)
	if err != nil {
		return err
	}
	a.onClose("database", func(context.Context) error {
		pool.Close()
		return nil
	})

	ctx, cancel := context.WithTimeout(a.ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	a.dbConn = pool
	return nil
}

func (a *App) initCache() error {
	url := strings.TrimSpace(a.config.GetString("redis.url"))
	if url == "" {
		slog.Info("redis not configured, skipping")
		return nil
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return err
	}
	rdb := redis.NewClient(opt)
	a.onClose("redis", func(context.Context) error { return rdb.Close() })

	ctx, cancel := context.WithTimeout(a.ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	a.cacheConn = rdb
	a.idemp = idempotency.New(rdb, a.config.GetString("redis.key_prefix"))
	return nil
}

func (a *App) initMail() error {
	if strings.TrimSpace(a.config.GetString("mail.host")) == "" {
		slog.Info("mail not configured, skipping")
		return nil
	}

	m, err := mail.NewSMTP(mail.SMTPConfig{
		Host:        a.config.GetString("mail.host"),
		Port:        a.config.GetInt("mail.port"),
		Username:    a.config.GetString("mail.username"),
		Password:    a.config.GetString("mail.password"),
		From:        a.config.GetString("mail.from"),
		ImplicitTLS: a.config.GetBool("mail.implicit_tls"),
		Timeout:     a.config.GetSecond("mail.timeout_seconds"),
	})
	if err != nil {
		return err
	}

	a.mail = m
	a.onClose("mail", func(context.Context) error { return m.Close() })
	return nil
}

func (a *App) initStorage() error {
	driver := strings.TrimSpace(a.config.GetString("storage.driver"))
	cfg := storage.Config{
		Driver: driver,
		S3: storage.S3Options{
			Region:       a.trimmed("storage.s3.region"),
			Endpoint:     a.trimmed("storage.s3.endpoint"),
			AccessKey:    a.trimmed("storage.s3.access_key"),
			SecretKey:    a.trimmed("storage.s3.secret_key"),
			SessionToken: a.trimmed("storage.s3.session_token"),
			UsePathStyle: a.config.GetBool("storage.s3.use_path_style"),
		},
		GCS: storage.GCSOptions{
			GoogleAccessID: a.trimmed("storage.gcs.signer_access_id"),
			PrivateKey:     a.config.GetBinary("storage.gcs.signer_private_key"),
		},
		MinIO: storage.MinIOOptions{
			Region:       a.trimmed("storage.minio.region"),
			Endpoint:     a.trimmed("storage.minio.endpoint"),
			AccessKey:    a.trimmed("storage.minio.access_key"),
			SecretKey:    a.trimmed("storage.minio.secret_key"),
			SessionToken: a.trimmed("storage.minio.session_token"),
			UseSSL:       a.config.GetBool("storage.minio.use_ssl"),
		},
		Memory: storage.MemoryOptions{
			BaseURL: a.trimmed("storage.memory.base_url"),
		},
	}
	if a.config.GetBool("storage.minio.create_buckets") {
		cfg.MinIO.Buckets = []string{a.config.GetString("modules.media.bucket")}
	}
	if strings.EqualFold(driver, storage.DriverGCS) {
		opts, err := a.gcsClientOptions()
		if err != nil {
			return err
		}
		cfg.GCS.ClientOptions = opts
	}

	stg, err := storage.New(a.ctx, cfg)
	if err != nil {
		return err
	}

	a.storage = stg
	a.onClose("storage", func(context.Context) error { return stg.Close() })
	return nil
}

// gcsClientOptions prefers a credentials file over inline base64 JSON.
func (a *App) gcsClientOptions() ([]option.ClientOption, error) {
	var opts []option.ClientOption
	if a.config.GetBool("storage.gcs.without_auth") {
		opts = append(opts, option.WithoutAuthentication())
	}
	if v := a.trimmed("storage.gcs.endpoint"); v != "" {
		opts = append(opts, option.WithEndpoint(v))
	}
	if v := a.trimmed("storage.gcs.user_agent"); v != "" {
		opts = append(opts, option.WithUserAgent(v))
	}

	credsJSON := a.config.GetBinary("storage.gcs.credentials_json")
	if file := a.trimmed("storage.gcs.credentials_file"); file != "" {
		raw, err := os.ReadFile(file) // #nosec G304 -- operator supplied path
		if err != nil {
			return nil, fmt.Errorf("read gcs credentials: %w", err)
		}
		credsJSON = raw
	}
	if len(credsJSON) == 0 {
		return opts, nil
	}

	creds, err := google.CredentialsFromJSON(a.ctx, credsJSON, gcs.ScopeFullControl)
	if err != nil {
		return nil, fmt.Errorf("parse gcs credentials: %w", err)
	}
	return append(opts, option.WithCredentials(creds)), nil
}

func (a *App) initMessaging() error {
	driver := strings.TrimSpace(a.config.GetString("messaging.driver"))
	if driver == "" {
		slog.Info("messaging not configured, skipping")
		return nil
	}

	var pubsubOpts []option.ClientOption
	if v := a.trimmed("messaging.pubsub.endpoint"); v != "" {
		// emulator
		pubsubOpts = []option.ClientOption{option.WithEndpoint(v), option.WithoutAuthentication()}
	}

	client, err := messaging.New(a.ctx, messaging.Config{
		Driver: driver,
		NSQ: messaging.NSQConfig{
			ProducerAddr:         a.config.GetString("messaging.nsq.producer_addr"),
			ConsumerNSQDAddrs:    a.config.GetArray("messaging.nsq.consumer_nsqd_addrs"),
			ConsumerLookupdAddrs: a.config.GetArray("messaging.nsq.consumer_lookupd_addrs"),
			ProducerConfig:       a.nsqConfig("messaging.nsq.producer_config"),
			ConsumerConfig:       a.nsqConfig("messaging.nsq.consumer_config"),
		},
		NATS: messaging.NATSConfig{
			URL: a.config.GetString("messaging.nats.url"),
			Options: []nats.Option{
				nats.Name(a.config.GetString("messaging.nats.name")),
				nats.MaxReconnects(a.config.GetInt("messaging.nats.max_reconnects")),
				nats.Timeout(a.config.GetSecond("messaging.nats.timeout_seconds")),
				nats.ReconnectWait(a.config.GetSecond("messaging.nats.reconnect_wait_seconds")),
				nats.PingInterval(a.config.GetSecond("messaging.nats.ping_interval_seconds")),
				nats.MaxPingsOutstanding(a.config.GetInt("messaging.nats.max_pings_outstanding")),
				nats.RetryOnFailedConnect(a.config.GetBool("messaging.nats.retry_on_failed_connect")),
			},
		},
		Kafka: messaging.KafkaConfig{
			Brokers: a.config.GetArray("messaging.kafka.brokers"),
			Dialer: &kafka.Dialer{
				ClientID:  a.config.GetString("messaging.kafka.client_id"),
				Timeout:   a.config.GetSecond("messaging.kafka.dial_timeout_seconds"),
				DualStack: true,
			},
		},
		PubSub: messaging.PubSubConfig{
			ProjectID:     a.config.GetString("messaging.pubsub.project_id"),
			Ordering:      a.config.GetBool("messaging.pubsub.ordering"),
			ClientOptions: pubsubOpts,
		},
		Memory: messaging.MemoryConfig{
			Buffer:      a.config.GetInt("messaging.memory.buffer"),
			MaxAttempts: a.config.GetInt("messaging.memory.max_attempts"),
		},
	})
	if err != nil {
		return err
	}

	a.messaging = client
	a.onClose("messaging", func(context.Context) error { return client.Close() })
	return nil
}

// nsqConfig starts from the library defaults and overrides what the section
// at key sets to a positive value.
func (a *App) nsqConfig(key string) *nsq.Config {
	cfg := nsq.NewConfig()

	if v := a.config.GetInt(key + ".max_in_flight"); v > 0 {
		cfg.MaxInFlight = v
	}
	if v := a.config.GetUint16(key + ".max_attempts"); v > 0 {
		cfg.MaxAttempts = v
	}
	durations := map[string]*time.Duration{
		".dial_timeout_seconds":          &cfg.DialTimeout,
		".read_timeout_seconds":          &cfg.ReadTimeout,
		".write_timeout_seconds":         &cfg.WriteTimeout,
		".lookupd_poll_interval_seconds": &cfg.LookupdPollInterval,
		".default_requeue_delay_seconds": &cfg.DefaultRequeueDelay,
		".max_requeue_delay_seconds":     &cfg.MaxRequeueDelay,
	}
	for suffix, dst := range durations {
		if v := a.config.GetSecond(key + suffix); v > 0 {
			*dst = v
		}
	}
	return cfg
}

func (a *App) trimmed(key string) string {
	return strings.TrimSpace(a.config.GetString(key))
}
