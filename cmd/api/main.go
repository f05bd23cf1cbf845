package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/authkeeper/internal/application/auth"
	"github.com/authkeeper/internal/application/otp"
	"github.com/authkeeper/internal/application/session"
	"github.com/authkeeper/internal/application/token"
	"github.com/authkeeper/internal/config"
	"github.com/authkeeper/internal/infrastructure/dynamo"
	"github.com/authkeeper/internal/infrastructure/google"
	jwtinfra "github.com/authkeeper/internal/infrastructure/jwt"
	"github.com/authkeeper/internal/infrastructure/postmark"
	"github.com/authkeeper/internal/infrastructure/smtp"
	"github.com/authkeeper/internal/infrastructure/sns"
	transporthttp "github.com/authkeeper/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		log.Fatalf("dynamodb: %v", err)
	}
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)

	accessJWT, err := jwtinfra.NewProvider(cfg.JWT.AccessSecret, cfg.JWT.Issuer, token.AudienceAccess, cfg.JWT.AccessExpiry)
	if err != nil {
		log.Fatalf("access token provider: %v", err)
	}
	refreshJWT, err := jwtinfra.NewProvider(cfg.JWT.RefreshSecret, cfg.JWT.Issuer, token.AudienceRefresh, cfg.JWT.RefreshExpiry)
	if err != nil {
		log.Fatalf("refresh token provider: %v", err)
	}
	tokens := token.NewService(accessJWT, refreshJWT)

	var mailer otp.Mailer
	switch cfg.Mail.Driver {
	case "postmark":
		mailer = postmark.NewMailer(cfg.Mail.PostmarkServerToken, cfg.Mail.PostmarkAccountToken, cfg.Mail.From)
	default:
		mailer = smtp.NewMailer(cfg.Mail)
	}

	// SNS auth-event publisher (optional; disabled without a topic ARN).
	var events auth.EventPublisher
	if cfg.SNSAuthEventsTopicARN != "" {
		snsClient, err := sns.NewClient(ctx, cfg)
		if err != nil {
			log.Printf("WARN: SNS publisher not available: %v", err)
		} else {
			events = sns.NewPublisher(snsClient, cfg.SNSAuthEventsTopicARN)
		}
	}

	otpSvc := otp.NewService(otp.ServiceDeps{
		Verifications: dynamo.NewVerificationRepo(dynamoClient, cfg.DynamoTables.VerificationTokens),
		Cooldowns:     dynamo.NewCooldownRepo(dynamoClient, cfg.DynamoTables.OTPCooldowns),
		Mailer:        mailer,
		Expiry:        cfg.OTP.Expiry,
		Cooldown:      cfg.OTP.Cooldown,
	})
	sessionSvc := session.NewService(session.ServiceDeps{
		Store: dynamo.NewSessionRepo(dynamoClient, cfg.DynamoTables.Sessions),
	})
	authSvc := auth.NewService(auth.ServiceDeps{
		UserRepo:    dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		AccountRepo: dynamo.NewAccountRepo(dynamoClient, cfg.DynamoTables.Accounts),
		Tokens:      tokens,
		OTP:         otpSvc,
		Sessions:    sessionSvc,
		Events:      events,
	})

	googleClient := google.NewClient(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	if !googleClient.Configured() {
		log.Println("WARN: Google sign-in disabled, GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET not set")
	}

	deps := &transporthttp.Deps{
		Auth:    authSvc,
		Tokens:  tokens,
		Cookies: token.NewCookieWriter(cfg.JWT.AccessExpiry, cfg.JWT.RefreshCookieMaxAge, cfg.IsProduction()),
		OAuth:   googleClient,
	}

	router := transporthttp.NewRouter(ctx, cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("forced shutdown: %v", err)
		os.Exit(1)
	}
	log.Println("Server stopped")
}
