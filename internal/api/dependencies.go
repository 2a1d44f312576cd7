package api

import (
	"context"
	"fmt"
	"time"

	"infinite-experiment/clubhouse/internal/auth"
	"infinite-experiment/clubhouse/internal/common"
	"infinite-experiment/clubhouse/internal/config"
	"infinite-experiment/clubhouse/internal/db/repositories"
	"infinite-experiment/clubhouse/internal/logging"
	"infinite-experiment/clubhouse/internal/metrics"
	"infinite-experiment/clubhouse/internal/providers"
	"infinite-experiment/clubhouse/internal/services"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Repositories struct {
	Users      *repositories.UserRepositoryGORM
	Profiles   *repositories.ProfileRepository
	Affiliates *repositories.AffiliateRepository
	OTPs       *repositories.OTPRepository
	Tokens     *repositories.RefreshTokenRepository
}

type Services struct {
	Cache    *common.CacheService
	Signer   *auth.TokenSigner
	Accounts *services.AccountService
	Rotator  *services.SessionRotator
}

type Dependencies struct {
	Repo     *Repositories
	Services *Services
	Metrics  *metrics.MetricsRegistry
}

// NewMailSender picks SMTP delivery when a host is configured.
func NewMailSender(cfg *config.Config) (providers.MailSender, error) {
	if cfg.SMTPHost == "" {
		logging.Warn("SMTP_HOST not set, mail will only be logged")
		return providers.LogSender{}, nil
	}
	smtp, err := providers.NewSMTPSender(providers.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
	if err != nil {
		return nil, err
	}
	return smtp, nil
}

// InitDependencies wires repositories, collaborators and the account services.
// redisClient may be nil, in which case mail is sent inline by the task pool.
func InitDependencies(
	ctx context.Context,
	cfg *config.Config,
	gdb *gorm.DB,
	redisClient *redis.Client,
	sender providers.MailSender,
	tasks services.TaskRunner,
	m *metrics.MetricsRegistry,
) (*Dependencies, error) {
	repos := &Repositories{
		Users:      repositories.NewUserRepositoryGORM(gdb),
		Profiles:   repositories.NewProfileRepository(gdb),
		Affiliates: repositories.NewAffiliateRepository(gdb),
		OTPs:       repositories.NewOTPRepository(gdb),
		Tokens:     repositories.NewRefreshTokenRepository(gdb),
	}

	cacheSvc := common.NewCacheService(10*time.Minute, 10*time.Minute)

	signer := auth.NewTokenSigner(auth.SignerConfig{
		AccessSecret:  cfg.Auth.AccessSecret,
		RefreshSecret: cfg.Auth.RefreshSecret,
		ResetSecret:   cfg.Auth.ResetSecret,
		AccessTTL:     cfg.Auth.AccessTokenTTL,
		RefreshTTL:    cfg.Auth.RefreshTokenTTL,
		ResetTTL:      cfg.Auth.ResetTokenTTL,
	})
	issuer := services.NewTokenIssuer(signer, repos.Tokens)
	retention := services.NewTokenRetention(repos.Tokens, cfg.Auth.MaxActiveRefreshTokens, m)

	var (
		mailer   services.Mailer
		notifier services.LoginNotifier
	)
	if redisClient != nil {
		outbox := providers.NewOutboxMailer(common.NewRedisQueueService(redisClient), m)
		mailer, notifier = outbox, outbox
	} else {
		mailer = providers.NewDirectMailer(sender)
	}
	if cfg.AMQPURL != "" {
		notifier = providers.NewAMQPLoginNotifier(cfg.AMQPURL)
	}

	var identity services.IdentityVerifier
	if cfg.GoogleClientID != "" {
		google, err := providers.NewGoogleIdentityVerifier(ctx, providers.GoogleJWKSURL)
		if err != nil {
			return nil, fmt.Errorf("google sign-in: %w", err)
		}
		identity = google
	} else {
		logging.Warn("GOOGLE_CLIENT_ID not set, Google sign-in is disabled")
	}

	accounts := services.NewAccountService(services.AccountDeps{
		DB:             gdb,
		Users:          repos.Users,
		Profiles:       repos.Profiles,
		Affiliates:     repos.Affiliates,
		OTPs:           repos.OTPs,
		Tokens:         repos.Tokens,
		Signer:         signer,
		Issuer:         issuer,
		Retention:      retention,
		OTP:            providers.NewOTPValidatorGORM(repos.OTPs, providers.DefaultOTPTTL),
		Mailer:         mailer,
		Notifier:       notifier,
		Identity:       identity,
		Tasks:          tasks,
		ClubCache:      cacheSvc,
		Metrics:        m,
		BcryptCost:     cfg.Auth.BcryptCost,
		GoogleAudience: cfg.GoogleClientID,
	})

	rotator := services.NewSessionRotator(gdb, repos.Users, repos.Tokens, signer, issuer, retention, tasks, m)

	return &Dependencies{
		Repo: repos,
		Services: &Services{
			Cache:    cacheSvc,
			Signer:   signer,
			Accounts: accounts,
			Rotator:  rotator,
		},
		Metrics: m,
	}, nil
}
