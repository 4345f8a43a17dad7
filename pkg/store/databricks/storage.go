package databricks

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/databricks/databricks-sql-go"
	"gopkg.in/ini.v1"
)

const defaultHttpPath = "/sql/1.0/warehouses/warehouse"

// Settings point at a SQL warehouse holding the sales_aggregated and
// uplift_coefficients tables. The connection is used for baseline reads only.
type Settings struct {
	Host     string
	Token    string
	HTTPPath string
	Catalog  string
	Schema   string
}

// LoadProfile reads host and token for profile from a .databrickscfg file.
func LoadProfile(path, profile string) (Settings, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return Settings{}, fmt.Errorf("load databricks profiles: %w", err)
	}
	if profile == "" {
		profile = ini.DefaultSection
	}
	section, err := cfg.GetSection(profile)
	if err != nil {
		return Settings{}, fmt.Errorf("profile %s not found", profile)
	}

	return Settings{
		Host:     section.Key("host").String(),
		Token:    section.Key("token").String(),
		HTTPPath: section.Key("http_path").String(),
		Catalog:  section.Key("catalog").String(),
		Schema:   section.Key("schema").String(),
	}, nil
}

func (s Settings) DSN() string {
	host := strings.TrimPrefix(strings.TrimPrefix(s.Host, "https://"), "http://")
	httpPath := s.HTTPPath
	if httpPath == "" {
		httpPath = defaultHttpPath
	}
	dsn := fmt.Sprintf("token:%s@%s:443%s", s.Token, host, httpPath)

	var params []string
	if s.Catalog != "" {
		params = append(params, "catalog="+s.Catalog)
	}
	if s.Schema != "" {
		params = append(params, "schema="+s.Schema)
	}
	if len(params) > 0 {
		dsn += "?" + strings.Join(params, "&")
	}
	return dsn
}

func NewDB(settings Settings) (*sql.DB, error) {
	if settings.Host == "" || settings.Token == "" {
		return nil, fmt.Errorf("databricks host and token are required")
	}
	db, err := sql.Open("databricks", settings.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Databricks: %w", err)
	}
	return db, nil
}
