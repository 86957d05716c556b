// Package seed loads site definitions from a YAML file.
//
//	sites:
//	  - name: San Isidro
//	    capacity: 40
//	  - name: Colonia Aurora
//	    capacity: 25
//	    active: false
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"misiones/internal/site/models"
)

type siteEntry struct {
	Name     string `yaml:"name"`
	Capacity int    `yaml:"capacity"`
	Active   *bool  `yaml:"active"`
}

type file struct {
	Sites []siteEntry `yaml:"sites"`
}

// SiteCreator is the part of the site service seeding needs.
type SiteCreator interface {
	CreateSite(ctx context.Context, req *models.CreateSiteRequest) (*models.Site, error)
}

// Result counts what Apply did.
type Result struct {
	Created  int
	Existing int
}

// LoadFile reads and validates a seed file.
func LoadFile(path string) ([]models.CreateSiteRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes seed YAML. Unknown keys are rejected so typos surface.
func Parse(r io.Reader) ([]models.CreateSiteRequest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc file
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode seed file: %w", err)
	}

	reqs := make([]models.CreateSiteRequest, 0, len(doc.Sites))
	for i, entry := range doc.Sites {
		req := models.CreateSiteRequest{Name: entry.Name, Capacity: entry.Capacity, Active: entry.Active}
		req.Normalize()
		if err := req.Validate(); err != nil {
			return nil, fmt.Errorf("seed site %d: %w", i+1, err)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// Apply creates every site whose name is not taken yet. Existing sites are
// left as they are, so seeding is safe to repeat.
func Apply(ctx context.Context, creator SiteCreator, reqs []models.CreateSiteRequest, logger *slog.Logger) (Result, error) {
	var res Result
	for i := range reqs {
		req := reqs[i]
		site, err := creator.CreateSite(ctx, &req)
		switch {
		case errors.Is(err, models.ErrSiteNameTaken):
			res.Existing++
			continue
		case err != nil:
			return res, fmt.Errorf("seed site %q: %w", req.Name, err)
		}
		res.Created++
		if logger != nil {
			logger.InfoContext(ctx, "seeded site",
				"site_id", site.ID.String(),
				"name", site.Name,
				"capacity", site.Capacity,
			)
		}
	}
	return res, nil
}
