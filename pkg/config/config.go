package config

import (
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Tolerance modes accepted in configuration.
const (
	ModeAbsolute = "absolute"
	ModePercent  = "percent"
	ModeTicks    = "ticks"
)

// ToleranceRule is the comparison policy for one field. Numeric limits are
// strings so no precision is lost between file and engine.
type ToleranceRule struct {
	Mode     string `yaml:"mode" default:"absolute" validate:"required,oneof=absolute percent ticks"`
	Limit    string `yaml:"limit" default:"0"`
	MaxTicks string `yaml:"max_ticks"`
}

// Product is instrument master data as configured.
type Product struct {
	Symbol       string `yaml:"symbol" validate:"required"`
	Exchange     string `yaml:"exchange"`
	Name         string `yaml:"name"`
	TickSize     string `yaml:"tick_size"`
	TickValue    string `yaml:"tick_value"`
	ContractSize int    `yaml:"contract_size"`
	Currency     string `yaml:"currency" default:"USD"`
}

// Team is one resolution team.
type Team struct {
	ID              string   `yaml:"id" validate:"required"`
	Name            string   `yaml:"name" validate:"required"`
	Type            string   `yaml:"type" default:"operations"`
	Specializations []string `yaml:"specializations"`
	Capacity        int      `yaml:"capacity" default:"10"`
	EscalationTeam  string   `yaml:"escalation_team"`
}

// Rule routes exceptions to a team. Lower priority values are evaluated
// first.
type Rule struct {
	ID             string   `yaml:"id" validate:"required"`
	Priority       int      `yaml:"priority" default:"100"`
	Team           string   `yaml:"team" validate:"required"`
	Causes         []string `yaml:"causes"`
	ProductTypes   []string `yaml:"product_types"`
	Counterparties []string `yaml:"counterparties"`
	MinNotional    string   `yaml:"min_notional"`
	MaxNotional    string   `yaml:"max_notional"`
}

type Config struct {
	Environment string `yaml:"environment" validate:"required"`

	Logging struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
	} `yaml:"logging"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`

	Recon struct {
		Tolerances       map[string]ToleranceRule            `yaml:"tolerances"`
		ProductOverrides map[string]map[string]ToleranceRule `yaml:"product_overrides"`
	} `yaml:"recon"`

	Products []Product `yaml:"products"`

	NWay struct {
		AuthoritativeOrder []string `yaml:"authoritative_order"`
	} `yaml:"nway"`

	Clustering struct {
		MinClusterSize int  `yaml:"min_cluster_size" default:"2"`
		MaxClusters    int  `yaml:"max_clusters" default:"100"`
		DisableExact   bool `yaml:"disable_exact"`
		DisableFuzzy   bool `yaml:"disable_fuzzy"`
	} `yaml:"clustering"`

	Workflow struct {
		Teams       []Team            `yaml:"teams" validate:"min=1"`
		Rules       []Rule            `yaml:"rules"`
		CauseRoutes map[string]string `yaml:"cause_routes"`
		DefaultTeam string            `yaml:"default_team" validate:"required"`
	} `yaml:"workflow"`
}

// Load reads, defaults and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply config defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment
// variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("TRADERECON_ENVIRONMENT"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("TRADERECON_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("TRADERECON_DEFAULT_TEAM"); v != "" {
		c.Workflow.DefaultTeam = v
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("validate config: %w", err)
		}
	}

	return c, nil
}

// Validate checks structural constraints and every cross reference: rules
// and routes must name configured teams, tolerance limits must parse, and
// quantity comparisons must stay absolute.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	for field, rule := range c.Recon.Tolerances {
		if err := validateToleranceRule(field, field, rule); err != nil {
			return err
		}
	}
	for symbol, byField := range c.Recon.ProductOverrides {
		for field, rule := range byField {
			if err := validateToleranceRule(symbol+"."+field, field, rule); err != nil {
				return err
			}
		}
	}

	for _, p := range c.Products {
		if err := validateDecimal("products."+p.Symbol+".tick_size", p.TickSize); err != nil {
			return err
		}
		if err := validateDecimal("products."+p.Symbol+".tick_value", p.TickValue); err != nil {
			return err
		}
	}

	teams := map[string]bool{}
	for _, t := range c.Workflow.Teams {
		if teams[t.ID] {
			return fmt.Errorf("workflow.teams: duplicate team id %q", t.ID)
		}
		teams[t.ID] = true
	}
	for _, t := range c.Workflow.Teams {
		if t.EscalationTeam != "" && !teams[t.EscalationTeam] {
			return fmt.Errorf("workflow.teams.%s: unknown escalation_team %q", t.ID, t.EscalationTeam)
		}
	}
	if !teams[c.Workflow.DefaultTeam] {
		return fmt.Errorf("workflow.default_team: unknown team %q", c.Workflow.DefaultTeam)
	}
	for _, r := range c.Workflow.Rules {
		if !teams[r.Team] {
			return fmt.Errorf("workflow.rules.%s: unknown team %q", r.ID, r.Team)
		}
		if err := validateDecimal("workflow.rules."+r.ID+".min_notional", r.MinNotional); err != nil {
			return err
		}
		if err := validateDecimal("workflow.rules."+r.ID+".max_notional", r.MaxNotional); err != nil {
			return err
		}
	}
	for cause, teamID := range c.Workflow.CauseRoutes {
		if !teams[teamID] {
			return fmt.Errorf("workflow.cause_routes.%s: unknown team %q", cause, teamID)
		}
	}

	return nil
}

func validateToleranceRule(name, field string, rule ToleranceRule) error {
	switch rule.Mode {
	case ModeAbsolute, ModePercent, ModeTicks:
	default:
		return fmt.Errorf("recon.tolerances.%s: unknown mode %q", name, rule.Mode)
	}
	if field == "quantity" && rule.Mode != ModeAbsolute {
		return fmt.Errorf("recon.tolerances.%s: quantity mode must be absolute, got %q", name, rule.Mode)
	}
	if err := validateDecimal("recon.tolerances."+name+".limit", rule.Limit); err != nil {
		return err
	}
	return validateDecimal("recon.tolerances."+name+".max_ticks", rule.MaxTicks)
}

func validateDecimal(name, value string) error {
	if value == "" {
		return nil
	}
	if _, err := decimal.NewFromString(value); err != nil {
		return fmt.Errorf("%s: invalid decimal %q: %w", name, value, err)
	}
	return nil
}
