package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"dailyChallengesAPI/internal/docstore"
	"dailyChallengesAPI/internal/types/challenge"
)

// catalogFile is the on-disk layout of a template import:
//
//	[[templates]]
//	id = "cold_shower"
//	title = "Cold shower"
//	challenge = "Finish your shower with 30 seconds of cold water."
//	image = "https://..."
type catalogFile struct {
	Templates []challenge.Template `toml:"templates"`
}

type CatalogService struct {
	store docstore.ChallengeStore
}

func NewCatalogService(store docstore.ChallengeStore) *CatalogService {
	return &CatalogService{store: store}
}

func (s *CatalogService) List(ctx context.Context) ([]challenge.Template, error) {
	templates, err := s.store.Templates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get templates: %w", err)
	}
	if templates == nil {
		templates = []challenge.Template{}
	}
	return templates, nil
}

// ParseCatalog decodes and validates a TOML template file.
func ParseCatalog(r io.Reader) ([]challenge.Template, error) {
	var file catalogFile
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	seen := make(map[string]bool, len(file.Templates))
	for i, t := range file.Templates {
		t.ID = strings.TrimSpace(t.ID)
		t.Title = strings.TrimSpace(t.Title)
		if t.ID == "" || t.Title == "" {
			return nil, fmt.Errorf("template %d: id and title are required: %w", i+1, ErrInvalidInput)
		}
		if err := validateTemplateID(t.ID); err != nil {
			return nil, fmt.Errorf("template %q: %s: %w", t.ID, err, ErrInvalidInput)
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("template %q is listed twice: %w", t.ID, ErrInvalidInput)
		}
		seen[t.ID] = true
		file.Templates[i] = t
	}
	return file.Templates, nil
}

const maxTemplateIDBytes = 1500

// validateTemplateID rejects ids no backend can use as a document id.
func validateTemplateID(id string) error {
	switch {
	case strings.Contains(id, "/"):
		return errors.New("id must not contain '/'")
	case id == "." || id == "..":
		return errors.New("id must not be '.' or '..'")
	case len(id) >= 4 && strings.HasPrefix(id, "__") && strings.HasSuffix(id, "__"):
		return errors.New("ids of the form __name__ are reserved")
	case len(id) > maxTemplateIDBytes:
		return fmt.Errorf("id is longer than %d bytes", maxTemplateIDBytes)
	}
	return nil
}

// Import upserts every template in r and returns how many were written.
func (s *CatalogService) Import(ctx context.Context, r io.Reader) (int, error) {
	templates, err := ParseCatalog(r)
	if err != nil {
		return 0, err
	}
	for i, t := range templates {
		if err := s.store.PutTemplate(ctx, t); err != nil {
			return i, fmt.Errorf("failed to save template %q: %w", t.ID, err)
		}
	}
	return len(templates), nil
}
