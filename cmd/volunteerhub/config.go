package main

import (
	"context"
	"encoding/base64"
	"fmt"

	"volunteerhub/internal/notify"
	"volunteerhub/internal/storage"
	"volunteerhub/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/gorilla/securecookie"
	"github.com/kelseyhightower/envconfig"
	"github.com/resend/resend-go/v2"
	"github.com/sirupsen/logrus"
)

func loadConfig() (*types.Config, error) {
	c := new(types.Config)
	if err := envconfig.Process("", c); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}

	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("set DATABASE_URL")
	}

	return c, nil
}

// validateServeConfig checks the settings only the HTTP server needs.
func validateServeConfig(c *types.Config) error {
	if c.CognitoClientID == "" || c.CognitoIssuerURL == "" {
		return fmt.Errorf("set COGNITO_CLIENT_ID and COGNITO_ISSUER_URL")
	}

	if c.CookieHashKey == "" || c.CookieBlockKey == "" || c.CSRFKey == "" {
		return fmt.Errorf("set COOKIE_HASH_KEY, COOKIE_BLOCK_KEY and CSRF_KEY")
	}

	return nil
}

func loadAWSConfig(ctx context.Context) (aws.Config, error) {
	config, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load aws config: %w", err)
	}

	return config, nil
}

func newSecureCookie(c *types.Config) (*securecookie.SecureCookie, error) {
	hashKey, err := base64.StdEncoding.DecodeString(c.CookieHashKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cookie hash key: %w", err)
	}

	blockKey, err := base64.StdEncoding.DecodeString(c.CookieBlockKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cookie block key: %w", err)
	}

	cookie := securecookie.New(hashKey, blockKey)
	cookie.MaxAge(c.SessionMaxAgeSec)

	return cookie, nil
}

// newBuckets builds the image, waiver and gallery buckets for the configured backend.
func newBuckets(c *types.Config, awsConfig aws.Config) (storage.Buckets, error) {
	switch c.StorageBackend {
	case "supabase":
		if c.SupabaseProjectID == "" || c.SupabaseAPIKey == "" {
			return storage.Buckets{}, fmt.Errorf("set SUPABASE_PROJECT_ID and SUPABASE_API_KEY")
		}
		return storage.Buckets{
			Images:  storage.NewSupabaseStorage(c.SupabaseProjectID, c.SupabaseAPIKey, c.ImageBucket),
			Waivers: storage.NewSupabaseStorage(c.SupabaseProjectID, c.SupabaseAPIKey, c.WaiverBucket),
			Gallery: storage.NewSupabaseStorage(c.SupabaseProjectID, c.SupabaseAPIKey, c.GalleryBucket),
		}, nil
	case "s3":
		client := s3.NewFromConfig(awsConfig)
		publicURL := func(bucket string) string {
			if c.S3PublicBaseURL == "" {
				return ""
			}
			return c.S3PublicBaseURL + "/" + bucket
		}
		return storage.Buckets{
			Images:  storage.NewS3Storage(client, c.ImageBucket, publicURL(c.ImageBucket)),
			Waivers: storage.NewS3Storage(client, c.WaiverBucket, publicURL(c.WaiverBucket)),
			Gallery: storage.NewS3Storage(client, c.GalleryBucket, publicURL(c.GalleryBucket)),
		}, nil
	case "memory":
		if c.IsProduction() {
			return storage.Buckets{}, fmt.Errorf("memory storage is not allowed in production")
		}
		base := c.PublicBaseURL + "/files"
		return storage.Buckets{
			Images:  storage.NewMemoryStorage(base + "/" + c.ImageBucket),
			Waivers: storage.NewMemoryStorage(base + "/" + c.WaiverBucket),
			Gallery: storage.NewMemoryStorage(base + "/" + c.GalleryBucket),
		}, nil
	}

	return storage.Buckets{}, fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
}

// newSender picks the mail provider. Without one, mail is logged and dropped.
func newSender(c *types.Config, logger *logrus.Logger, awsConfig aws.Config) (notify.Sender, error) {
	switch c.MailProvider {
	case "":
		return notify.NewDisabledSender(logger), nil
	case "resend":
		if c.ResendAPIKey == "" || c.MailFrom == "" {
			return nil, fmt.Errorf("set RESEND_API_KEY and MAIL_FROM")
		}
		return notify.NewResendSender(logger, resend.NewClient(c.ResendAPIKey), c.MailFrom), nil
	case "ses":
		if c.MailFrom == "" {
			return nil, fmt.Errorf("set MAIL_FROM")
		}
		sesConfig := awsConfig.Copy()
		sesConfig.Region = c.SESRegion
		return notify.NewSESSender(logger, sesv2.NewFromConfig(sesConfig), c.MailFrom), nil
	}

	return nil, fmt.Errorf("unknown MAIL_PROVIDER %q", c.MailProvider)
}
