package platforms

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/strrl/cc-launcher/pkg/models"
)

var (
	// ErrPlatformNotFound means an explicit request named no known platform or alias
	ErrPlatformNotFound = errors.New("platform not found")
	// ErrPlatformUnavailable means an explicit request named a platform that cannot be used
	ErrPlatformUnavailable = errors.New("platform not available")
	// ErrNoPlatformAvailable means no request was given and nothing usable is configured
	ErrNoPlatformAvailable = errors.New("no available platform")
)

// Source supplies the platform document
type Source interface {
	Load() (*Document, error)
}

// Resolver turns a user token into a usable platform
type Resolver struct {
	source          Source
	logger          *zap.Logger
	defaultOverride string
}

// ResolverOption configures a Resolver
type ResolverOption func(*Resolver)

// WithDefaultPlatform prefers id over the document's default_platform when
// nothing is requested explicitly.
func WithDefaultPlatform(id string) ResolverOption {
	return func(r *Resolver) {
		r.defaultOverride = id
	}
}

// NewResolver creates a resolver over source
func NewResolver(source Source, logger *zap.Logger, opts ...ResolverOption) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Resolver{source: source, logger: logger.Named("platform_resolver")}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// IsAvailable reports whether a profile can be launched: enabled, some
// credential set, base URL and model present. More than one credential is
// tolerated; the environment builder picks one by precedence.
func IsAvailable(p models.PlatformProfile) bool {
	return p.Enabled && p.HasAuth() && p.APIBaseURL != "" && p.Model != ""
}

func (r *Resolver) load() *Document {
	doc, err := r.source.Load()
	if err != nil {
		r.logger.Warn("Using fallback platform configuration", zap.Error(err))
	}
	if doc == nil {
		doc = &Document{}
	}
	return doc
}

// Resolve selects the platform for requested. An explicit request is honored
// exactly or fails; only an empty request walks the default chain.
func (r *Resolver) Resolve(requested string) (*models.Platform, error) {
	doc := r.load()

	if requested != "" {
		id, profile, ok := lookup(doc, requested)
		if !ok {
			r.logger.Warn("Unknown platform requested", zap.String("requested", requested))
			return nil, fmt.Errorf("%w: %s", ErrPlatformNotFound, requested)
		}
		if !IsAvailable(profile) {
			r.logger.Warn("Platform is not available", zap.String("platform", id))
			return nil, fmt.Errorf("%w: %s", ErrPlatformUnavailable, id)
		}
		r.logger.Info("Selected platform", zap.String("platform", id))
		return &models.Platform{ID: id, Profile: profile}, nil
	}

	for _, id := range []string{r.defaultOverride, doc.DefaultPlatform} {
		if id == "" {
			continue
		}
		if profile, ok := doc.Get(id); ok && IsAvailable(profile) {
			r.logger.Info("Using configured default platform", zap.String("platform", id))
			return &models.Platform{ID: id, Profile: profile}, nil
		}
	}

	for _, p := range doc.Platforms {
		if IsAvailable(p.Profile) {
			r.logger.Info("Using first available platform", zap.String("platform", p.ID))
			return &models.Platform{ID: p.ID, Profile: p.Profile}, nil
		}
	}

	r.logger.Warn("No available platforms found")
	return nil, ErrNoPlatformAvailable
}

// ListAvailable returns usable platforms in stored order
func (r *Resolver) ListAvailable() []models.Platform {
	doc := r.load()
	var available []models.Platform
	for _, p := range doc.Platforms {
		if IsAvailable(p.Profile) {
			available = append(available, p)
		}
	}
	return available
}

// ListAll returns every configured platform in stored order
func (r *Resolver) ListAll() []models.Platform {
	return r.load().Platforms
}

// Status reports the diagnostic state of one platform. Unknown ids yield an
// all-false status carrying the requested name.
func (r *Resolver) Status(platformID string) models.PlatformStatus {
	id, profile, ok := lookup(r.load(), platformID)
	if !ok {
		return models.PlatformStatus{ID: platformID, Name: platformID}
	}
	return models.PlatformStatus{
		ID:         id,
		Name:       profile.DisplayName(id),
		Enabled:    profile.Enabled,
		Configured: profile.APIBaseURL != "" && profile.Model != "",
		HasAuth:    profile.HasAuth(),
		Available:  IsAvailable(profile),
	}
}

// ResolveAlias maps token through the alias table, lowercased. Tokens that are
// not aliases are returned lowercased.
func ResolveAlias(doc *Document, token string) string {
	token = strings.ToLower(strings.TrimSpace(token))
	if id, ok := doc.Aliases[token]; ok {
		return id
	}
	for alias, id := range doc.Aliases {
		if strings.ToLower(alias) == token {
			return id
		}
	}
	return token
}

func lookup(doc *Document, token string) (string, models.PlatformProfile, bool) {
	candidate := ResolveAlias(doc, token)
	if profile, ok := doc.Get(candidate); ok {
		return candidate, profile, true
	}
	for _, p := range doc.Platforms {
		if strings.EqualFold(p.ID, candidate) {
			return p.ID, p.Profile, true
		}
	}
	return "", models.PlatformProfile{}, false
}
