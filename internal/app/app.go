// Package app assembles the intake service from configuration. Both entry
// points share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"education-agent/internal/classify"
	"education-agent/internal/config"
	"education-agent/internal/guidance"
	"education-agent/internal/integrations/openai"
	"education-agent/internal/integrations/paramstore"
	"education-agent/internal/repository"
	"education-agent/internal/session"
	"education-agent/internal/usecase"
)

// modelParameter is read under PARAM_PREFIX to override OPENAI_MODEL.
const modelParameter = "openai-model"

// App holds the assembled service and the resources it owns.
type App struct {
	Service  *usecase.IntakeService
	Sessions *session.MemoryStore
	// Profiles is nil when STATE_BACKEND=none.
	Profiles repository.ProfileStore

	closers []func() error
}

// Build wires collaborators according to cfg. AWS configuration is only
// loaded when a DynamoDB backend or an SSM prefix is configured.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config must not be nil")
	}
	a := &App{Sessions: session.NewMemoryStore()}

	var awsLoaded bool
	var ssmClient *awsssm.Client
	var dynamoClient *awsdynamodb.Client
	if cfg.StateBackend == config.BackendDynamoDB || cfg.ParamPrefix != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("app: load AWS config: %w", err)
		}
		awsLoaded = true
		ssmClient = awsssm.NewFromConfig(awsCfg)
		dynamoClient = awsdynamodb.NewFromConfig(awsCfg)
	}

	var getter openai.Getter
	model := cfg.OpenAI.Model
	if cfg.ParamPrefix != "" && awsLoaded {
		ps, err := paramstore.New(ssmClient)
		if err != nil {
			return nil, fmt.Errorf("app: create SSM client: %w", err)
		}
		getter = ps
		if v, ok, err := ps.GetOptional(ctx, paramstore.Join(cfg.ParamPrefix, modelParameter)); err != nil {
			slog.Warn("failed to read model parameter, using configured model", "err", err)
		} else if ok && v != "" {
			model = v
		}
	}

	var profiles usecase.ProfileWriter
	switch cfg.StateBackend {
	case config.BackendDynamoDB:
		client, err := repository.New(dynamoClient, cfg.StateTable)
		if err != nil {
			return nil, fmt.Errorf("app: create DynamoDB store: %w", err)
		}
		a.Profiles = client
		profiles = client
	case config.BackendSQLite:
		store, err := repository.NewSQLite(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("app: open SQLite store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		a.Profiles = store
		profiles = store
	}

	classifierOpts := []classify.Option{classify.WithTimeout(cfg.CollaboratorTimeout)}
	var generator usecase.ResponseGenerator = guidance.Static{}
	if cfg.ModelEnabled() {
		oc, err := openai.NewClient(getter, cfg.ParamPrefix,
			openai.WithAPIKey(cfg.OpenAI.APIKey),
			openai.WithBaseURL(cfg.OpenAI.BaseURL),
			openai.WithModel(model),
		)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("app: create OpenAI client: %w", err)
		}
		classifierOpts = append(classifierOpts, classify.WithExternal(oc))
		generator = oc
	}

	svc, err := usecase.NewIntakeService(
		a.Sessions,
		classify.New(classifierOpts...),
		generator,
		profiles,
		cfg.MaxMessageLength,
		cfg.CollaboratorTimeout,
	)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("app: create intake service: %w", err)
	}
	a.Service = svc

	slog.Info("intake service ready",
		"state_backend", cfg.StateBackend,
		"model_enabled", cfg.ModelEnabled(),
		"model", model,
	)
	return a, nil
}

// Close releases resources opened by Build.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}
