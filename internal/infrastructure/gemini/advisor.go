package gemini

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/halalscan/backend/internal/domain"
)

const clientKeyPrefix = "gemini-client:"

// Config holds the advisor settings
type Config struct {
	Model             string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerMinute int
	Burst             int
	ClientTTL         time.Duration
}

// Advisor produces compliance narratives with the Gemini API. Callers bring
// their own API key; one client is kept per key.
type Advisor struct {
	config  Config
	clients domain.CacheRepository
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewAdvisor creates a new Gemini advisor. clients caches one *genai.Client
// per credential fingerprint.
func NewAdvisor(config Config, clients domain.CacheRepository, logger *zap.Logger) *Advisor {
	if config.Model == "" {
		config.Model = "gemini-2.5-flash"
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = 15
	}
	if config.Burst <= 0 {
		config.Burst = 5
	}
	if config.ClientTTL <= 0 {
		config.ClientTTL = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Advisor{
		config:  config,
		clients: clients,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RequestsPerMinute)), config.Burst),
		logger:  logger,
	}
}

// Assess sends the prompt (and image, if any) to Gemini and returns the
// narrative text. Failures are *domain.AdvisorError.
func (a *Advisor) Assess(ctx context.Context, request *domain.AdvisorRequest) (string, error) {
	if request == nil || strings.TrimSpace(request.Prompt) == "" {
		return "", domain.NewAdvisorError(domain.AdvisorUnknown, errors.New("empty prompt"))
	}
	if request.Credential == "" {
		return "", domain.NewAdvisorError(domain.AdvisorUnauthorized, errors.New("API key is required"))
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	if err := a.limiter.Wait(ctx); err != nil {
		// Wait also fails when the caller goes away; only a wait that would
		// outlast the deadline is a rate limit.
		kind := domain.AdvisorRateLimited
		if ctx.Err() != nil {
			kind = domain.AdvisorUnreachable
		}
		return "", domain.NewAdvisorError(kind, fmt.Errorf("rate limiter: %w", err))
	}

	fingerprint := Fingerprint(request.Credential)
	client, err := a.client(ctx, request.Credential, fingerprint)
	if err != nil {
		return "", domain.NewAdvisorError(domain.AdvisorUnknown, err)
	}

	model := request.Model
	if model == "" {
		model = a.config.Model
	}

	parts := []*genai.Part{genai.NewPartFromText(request.Prompt)}
	if len(request.Image) > 0 {
		parts = append(parts, genai.NewPartFromBytes(request.Image, request.MimeType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	start := time.Now()
	resp, err := client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		kind := classifyError(err)
		if kind == domain.AdvisorUnknown && ctx.Err() != nil {
			kind = domain.AdvisorUnreachable
		}
		if kind == domain.AdvisorUnauthorized {
			a.evictClient(ctx, fingerprint)
		}
		a.logger.Warn("gemini request failed",
			zap.String("model", model),
			zap.String("key", fingerprint[:12]),
			zap.String("kind", string(kind)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return "", domain.NewAdvisorError(kind, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", domain.NewAdvisorError(domain.AdvisorUnknown, errors.New("empty response"))
	}

	a.logger.Debug("gemini request completed",
		zap.String("model", model),
		zap.String("key", fingerprint[:12]),
		zap.Bool("image", len(request.Image) > 0),
		zap.Duration("elapsed", time.Since(start)),
	)

	return text, nil
}

// client returns the cached client for a credential, creating it on a miss
func (a *Advisor) client(ctx context.Context, credential, fingerprint string) (*genai.Client, error) {
	key := clientKeyPrefix + fingerprint

	if a.clients != nil {
		if cached, err := a.clients.Get(ctx, key); err == nil {
			if client, ok := cached.(*genai.Client); ok {
				return client, nil
			}
		}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  credential,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: a.config.BaseURL,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	if a.clients != nil {
		if err := a.clients.Set(ctx, key, client, a.config.ClientTTL); err != nil {
			a.logger.Warn("failed to cache gemini client", zap.Error(err))
		}
	}

	return client, nil
}

// evictClient drops the cached client of a rejected credential
func (a *Advisor) evictClient(ctx context.Context, fingerprint string) {
	if a.clients == nil {
		return
	}
	if err := a.clients.Delete(context.WithoutCancel(ctx), clientKeyPrefix+fingerprint); err != nil {
		a.logger.Warn("failed to evict gemini client", zap.Error(err))
	}
}

// Fingerprint is the hex SHA-256 of a credential. Only fingerprints are
// logged or used as cache keys.
func Fingerprint(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:])
}

// classifyError maps a genai or transport error to an advisor error kind
func classifyError(err error) domain.AdvisorErrorKind {
	if code, message, ok := apiErrorDetails(err); ok {
		switch {
		case code == http.StatusUnauthorized, code == http.StatusForbidden:
			return domain.AdvisorUnauthorized
		case code == http.StatusBadRequest && strings.Contains(strings.ToLower(message), "api key not valid"):
			return domain.AdvisorUnauthorized
		case code == http.StatusTooManyRequests:
			return domain.AdvisorRateLimited
		case code >= http.StatusInternalServerError:
			return domain.AdvisorUnreachable
		default:
			return domain.AdvisorUnknown
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return domain.AdvisorUnreachable
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.AdvisorUnreachable
	}

	return domain.AdvisorUnknown
}

func apiErrorDetails(err error) (int, string, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Message, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, apiErrPtr.Message, true
	}
	return 0, "", false
}
