package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"volunteerhub/internal/auth"
	"volunteerhub/internal/db"
	"volunteerhub/internal/events"
	"volunteerhub/internal/gate"
	"volunteerhub/internal/notify"
	"volunteerhub/internal/server"
	"volunteerhub/internal/session"
	"volunteerhub/internal/store"

	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Start the HTTP server",
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	config, err := loadConfig()
	if err != nil {
		return err
	}

	if err := validateServeConfig(config); err != nil {
		return err
	}

	awsConfig, err := loadAWSConfig(ctx)
	if err != nil {
		return err
	}

	pool, err := db.Connect(ctx, config)
	if err != nil {
		return err
	}
	defer pool.Close()

	buckets, err := newBuckets(config, awsConfig)
	if err != nil {
		return err
	}

	sender, err := newSender(config, logger, awsConfig)
	if err != nil {
		return err
	}

	cookie, err := newSecureCookie(config)
	if err != nil {
		return err
	}

	jwkCache, err := jwk.NewCache(context.Background(), httprc.NewClient())
	if err != nil {
		return fmt.Errorf("failed to initialize jwk cache: %w", err)
	}

	jwksURL := fmt.Sprintf("%s/.well-known/jwks.json", config.CognitoIssuerURL)

	err = jwkCache.Register(context.Background(), jwksURL)
	if err != nil {
		return fmt.Errorf("failed to register cognito jwks with cache: %w", err)
	}

	userRepo := store.NewUserRepository(pool)
	eventRepo := store.NewEventRepository(pool)
	signupRepo := store.NewSignupRepository(pool)
	hoursRepo := store.NewHoursRepository(pool)
	websiteRepo := store.NewWebsiteRepository(pool)

	srv, err := server.New(config, logger, server.Deps{
		Users:    userRepo,
		Signups:  signupRepo,
		Hours:    hoursRepo,
		Website:  websiteRepo,
		Events:   events.NewService(logger, eventRepo, signupRepo, buckets.Images, buckets.Waivers),
		Auth:     auth.NewClient(cognitoidentityprovider.NewFromConfig(awsConfig), config.CognitoClientID),
		Notifier: notify.NewNotifier(logger, sender, config.PublicBaseURL, config.ContactInbox),
		Gallery:  buckets.Gallery,
		Sessions: session.NewManager(logger, cookie, jwkCache, jwksURL, config.IsProduction(), config.SessionMaxAgeSec),
		Gate:     gate.NewEvaluator(logger, userRepo),
	})
	if err != nil {
		return err
	}

	go func() {
		logger.WithField("port", config.ServerPort).Infof("server starting http://localhost:%d", config.ServerPort)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Stop(shutdownCtx)
}
