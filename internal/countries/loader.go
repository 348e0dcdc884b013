package countries

import (
	"fmt"

	"phonenorm_backend/internal/countries/repository"
	"phonenorm_backend/platform/config"
	"phonenorm_backend/platform/phone"
)

// NewLoader returns the table source selected by COUNTRY_TABLE_SOURCE. repo is
// required for the postgres source and ignored otherwise.
func NewLoader(cfg config.CountryTableConfig, repo *repository.Repository) (phone.Loader, error) {
	switch cfg.GetCountryTableSource() {
	case "", config.CountrySourceEmbedded:
		return phone.EmbeddedLoader{}, nil
	case config.CountrySourceFile:
		return phone.FileLoader{Path: cfg.GetCountryTablePath()}, nil
	case config.CountrySourcePostgres:
		if repo == nil {
			return nil, fmt.Errorf("country table source postgres needs a database connection")
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown country table source %q", cfg.GetCountryTableSource())
	}
}
