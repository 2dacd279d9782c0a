package platforms

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/strrl/cc-launcher/internal/fileutil"
)

// ErrInvalidConfig is returned alongside the defaults when platforms.json cannot be parsed
var ErrInvalidConfig = errors.New("invalid platform configuration")

// Registry reads and writes platforms.json. It does not cache: every query
// sees the file as it is on disk.
type Registry struct {
	path   string
	logger *zap.Logger
}

// NewRegistry creates a registry backed by the document at path
func NewRegistry(path string, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{path: path, logger: logger.Named("registry")}
}

// Path returns the location of platforms.json
func (r *Registry) Path() string {
	return r.path
}

// Load returns the current document. A missing file is created with
// DefaultDocument. A corrupt file is left untouched and the defaults are
// returned together with ErrInvalidConfig.
func (r *Registry) Load() (*Document, error) {
	doc := &Document{}
	found, err := fileutil.ReadJSON(r.path, doc)
	if err != nil {
		r.logger.Warn("Failed to load platform configuration", zap.String("path", r.path), zap.Error(err))
		return DefaultDocument(), fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if !found {
		doc = DefaultDocument()
		if err := r.Save(doc); err != nil {
			r.logger.Warn("Failed to write default platform configuration", zap.Error(err))
		} else {
			r.logger.Info("Created default platform configuration", zap.String("path", r.path))
		}
	}
	return doc, nil
}

// Save rewrites platforms.json atomically
func (r *Registry) Save(doc *Document) error {
	if err := fileutil.WriteJSON(r.path, doc); err != nil {
		return fmt.Errorf("failed to save platform configuration: %w", err)
	}
	r.logger.Debug("Saved platform configuration", zap.String("path", r.path))
	return nil
}

// PlatformIDs lists configured platform ids in stored order
func (r *Registry) PlatformIDs() []string {
	doc, _ := r.Load()
	return doc.IDs()
}

// Ordinals returns the two-digit ordinal of every configured platform
func (r *Registry) Ordinals() map[string]string {
	return Ordinals(r.PlatformIDs())
}

// Ordinals numbers platform ids alphabetically from "01". Ids ranked past 99
// get no ordinal.
func Ordinals(ids []string) map[string]string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	ordinals := make(map[string]string, len(sorted))
	for i, id := range sorted {
		if i >= 99 {
			break
		}
		ordinals[id] = fmt.Sprintf("%02d", i+1)
	}
	return ordinals
}
