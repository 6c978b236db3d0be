package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"suivi/internal/domain"
)

const FileName = "suivi.yml"

// Config models suivi.yml.
type Config struct {
	API struct {
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"api"`
	Auth struct {
		Token     string `yaml:"token"`
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
	Dashboard struct {
		RecentLimit int `yaml:"recent_limit"`
	} `yaml:"dashboard"`
	Stub struct {
		Addr string `yaml:"addr"`
		Seed Seed   `yaml:"seed"`
	} `yaml:"stub"`
}

// Seed is the fixture data loaded into the stub backend on start.
type Seed struct {
	Units     []SeedUnit     `yaml:"units"`
	Disciples []SeedDisciple `yaml:"disciples"`
}

type SeedUnit struct {
	ID     string `yaml:"id"`
	Level  string `yaml:"level"`
	Name   string `yaml:"name"`
	Parent string `yaml:"parent"`
}

type SeedDisciple struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	Role       string `yaml:"role"`
	Supervisor string `yaml:"supervisor"`
	Unit       string `yaml:"unit"`
	Email      string `yaml:"email"`
}

// Load reads and validates config from dir.
func Load(dir string) (*Config, error) {
	path := Path(dir)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with suivi config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns Default() if the config file does not exist.
func LoadOptional(dir string) (*Config, error) {
	data, err := os.ReadFile(Path(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("config.api.base_url is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config.api.base_url must be an absolute url")
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("config.api.timeout must not be negative")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config.logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	if c.Dashboard.RecentLimit < 0 {
		return fmt.Errorf("config.dashboard.recent_limit must not be negative")
	}
	return c.Stub.Seed.Validate()
}

// Validate checks seed references: parents before children, supervisors and
// units defined.
func (s Seed) Validate() error {
	units := map[string]domain.UnitLevel{}
	for _, u := range s.Units {
		if u.ID == "" {
			return fmt.Errorf("seed unit has empty id")
		}
		level := domain.UnitLevel(u.Level)
		if !level.Valid() {
			return fmt.Errorf("seed unit %s has unknown level %q", u.ID, u.Level)
		}
		if _, dup := units[u.ID]; dup {
			return fmt.Errorf("seed unit %s defined twice", u.ID)
		}
		if parentLevel, hasParent := level.Parent(); hasParent {
			got, ok := units[u.Parent]
			if !ok {
				return fmt.Errorf("seed unit %s references unknown parent %q", u.ID, u.Parent)
			}
			if got != parentLevel {
				return fmt.Errorf("seed unit %s parent %s is a %s, want %s", u.ID, u.Parent, got, parentLevel)
			}
		} else if u.Parent != "" {
			return fmt.Errorf("seed region %s cannot have a parent", u.ID)
		}
		units[u.ID] = level
	}
	disciples := map[string]bool{}
	for _, d := range s.Disciples {
		if d.ID == "" || d.Name == "" {
			return fmt.Errorf("seed disciple requires id and name")
		}
		if disciples[d.ID] {
			return fmt.Errorf("seed disciple %s defined twice", d.ID)
		}
		if d.Role != "" && domain.ParseRole(d.Role).String() != strings.ToLower(strings.TrimSpace(d.Role)) {
			return fmt.Errorf("seed disciple %s has unknown role %q", d.ID, d.Role)
		}
		if d.Supervisor != "" && !disciples[d.Supervisor] {
			return fmt.Errorf("seed disciple %s references unknown supervisor %q", d.ID, d.Supervisor)
		}
		if d.Unit != "" {
			if _, ok := units[d.Unit]; !ok {
				return fmt.Errorf("seed disciple %s references unknown unit %q", d.ID, d.Unit)
			}
		}
		disciples[d.ID] = true
	}
	return nil
}

// Path returns the config file path inside dir.
func Path(dir string) string {
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, FileName)
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the parsed default config.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Fields absent
// from data keep their default values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	cfg.Stub.Seed = Seed{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `api:
  base_url: http://127.0.0.1:8080
  timeout: 10s

auth:
  token: ""
  jwt_secret: suivi-dev-secret

logging:
  level: info

dashboard:
  recent_limit: 10

stub:
  addr: 127.0.0.1:8080
  seed:
    units:
      - {id: reg-nord, level: region, name: Nord}
      - {id: zone-lille, level: zone, name: Lille, parent: reg-nord}
      - {id: loc-centre, level: local, name: Centre, parent: zone-lille}
      - {id: sub-a, level: sub, name: Cellule A, parent: loc-centre}
    disciples:
      - {id: admin, name: Admin, role: admin, email: admin@example.org}
      - {id: past-1, name: Pasteur Paul, role: pasteur, supervisor: admin, unit: reg-nord}
      - {id: lead-1, name: Leader Lea, role: leader, supervisor: past-1, unit: zone-lille}
      - {id: fd-1, name: Fd Felix, role: fd, supervisor: lead-1, unit: loc-centre}
      - {id: fid-1, name: Fidele Anne, role: fidele, supervisor: fd-1, unit: sub-a}
      - {id: fid-2, name: Fidele Marc, role: fidele, supervisor: fd-1, unit: sub-a}
`
