package sitesync

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/forgekit/sitesync/internal/extract"
	"github.com/forgekit/sitesync/internal/pipelineapi"
	"github.com/forgekit/sitesync/internal/retry"
	"github.com/forgekit/sitesync/internal/s3api"
	"github.com/forgekit/sitesync/synctypes"
)

// defaultRegion is used when neither the options nor the environment resolve
// a region.
const defaultRegion = "us-east-1"

// Handler processes pipeline sync jobs. It is safe for concurrent use; each
// Handle call carries its own job state.
type Handler struct {
	s3Client       s3api.S3API
	pipelineClient pipelineapi.CodePipelineAPI

	// awsConfig is retained so jobs carrying scoped artifact credentials can
	// get their own S3 client; nil when the handler was built from injected
	// clients.
	awsConfig *aws.Config

	config synctypes.ClientConfig
	policy retry.Policy
	logger *slog.Logger
}

// New creates a Handler using the default AWS credential chain, applying any
// options.
func New(ctx context.Context, opts ...synctypes.Option) (*Handler, error) {
	cfg := resolveConfig(opts)

	awsCfg, err := loadAWSConfig(ctx, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	h := newHandler(s3.NewFromConfig(awsCfg), codepipeline.NewFromConfig(awsCfg), cfg)
	h.awsConfig = &awsCfg
	return h, nil
}

// NewWithClients creates a Handler from pre-built clients. Intended for
// tests and callers that manage their own AWS client construction; jobs
// carrying artifact credentials fall back to the injected S3 client.
func NewWithClients(
	s3Client s3api.S3API,
	pipelineClient pipelineapi.CodePipelineAPI,
	opts ...synctypes.Option,
) *Handler {
	return newHandler(s3Client, pipelineClient, resolveConfig(opts))
}

func newHandler(s3Client s3api.S3API, pipelineClient pipelineapi.CodePipelineAPI, cfg synctypes.ClientConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Handler{
		s3Client:       s3Client,
		pipelineClient: pipelineClient,
		config:         cfg,
		policy: retry.Policy{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   cfg.RetryBaseDelay,
			MaxDelay:    5 * time.Second,
		},
		logger: logger,
	}
}

// resolveConfig applies the options over the defaults.
func resolveConfig(opts []synctypes.Option) synctypes.ClientConfig {
	defaults := retry.Default()
	cfg := synctypes.ClientConfig{
		MaxRetries:     defaults.MaxAttempts,
		RetryBaseDelay: defaults.BaseDelay,
		Concurrency:    5,
		MaxEntrySize:   extract.DefaultMaxEntrySize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// loadAWSConfig resolves the AWS configuration from the options or the
// default chain.
func loadAWSConfig(ctx context.Context, cfg *synctypes.ClientConfig) (aws.Config, error) {
	if cfg.CustomAWSConfig != nil {
		return *cfg.CustomAWSConfig, nil
	}

	loadOpts := []func(*config.LoadOptions) error{}
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.Timeout > 0 {
		loadOpts = append(loadOpts, config.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return aws.Config{}, err
	}
	if awsCfg.Region == "" {
		awsCfg.Region = defaultRegion
	}
	return awsCfg, nil
}

// artifactClient returns the S3 client to use for fetching the input
// artifact. When the job carries scoped artifact-store credentials a
// dedicated client is built around them; otherwise the handler's shared
// client is used.
func (h *Handler) artifactClient(job *synctypes.Job) s3api.S3API {
	creds := job.ArtifactCredentials
	if creds == nil || h.awsConfig == nil {
		return h.s3Client
	}

	cfg := h.awsConfig.Copy()
	cfg.Credentials = credentials.NewStaticCredentialsProvider(
		creds.AccessKeyID,
		creds.SecretAccessKey,
		creds.SessionToken,
	)
	return s3.NewFromConfig(cfg)
}
