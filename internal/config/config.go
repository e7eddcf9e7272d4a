// Package config содержит логику чтения конфигурации витрины.
package config

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
)

const (
	defaultRunAddress      = "localhost:8080"
	defaultRefreshInterval = "5m"
	defaultTaxRate         = "0.0825"
	defaultDiscountCodes   = "SAVE20:0.20,WELCOME10:0.10,SAVE15:0.15"
)

// Config содержит параметры конфигурации витрины.
type Config struct {
	RunAddress             string
	DatabaseURI            string
	SQLitePath             string
	CatalogURL             string
	CatalogRefreshInterval time.Duration
	TaxRate                decimal.Decimal
	DiscountCodes          map[string]decimal.Decimal
	StrictCardCheck        bool
}

// raw хранит значения до разбора; пустая строка означает, что параметр не задан.
type raw struct {
	RunAddress             string `env:"RUN_ADDRESS"`
	DatabaseURI            string `env:"DATABASE_URI"`
	SQLitePath             string `env:"SQLITE_PATH"`
	CatalogURL             string `env:"CATALOG_URL"`
	CatalogRefreshInterval string `env:"CATALOG_REFRESH_INTERVAL"`
	TaxRate                string `env:"TAX_RATE"`
	DiscountCodes          string `env:"DISCOUNT_CODES"`
	StrictCardCheck        string `env:"STRICT_CARD_CHECK"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	envCfg := raw{}
	if err := env.Parse(&envCfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	flagCfg := raw{}
	var strictCard bool

	flag.StringVar(&flagCfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&flagCfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&flagCfg.SQLitePath, "s", "", "sqlite database file")
	flag.StringVar(&flagCfg.CatalogURL, "c", "", "remote catalog URL")
	flag.StringVar(&flagCfg.CatalogRefreshInterval, "i", defaultRefreshInterval, "catalog refresh interval")
	flag.StringVar(&flagCfg.TaxRate, "t", defaultTaxRate, "tax rate fraction")
	flag.StringVar(&flagCfg.DiscountCodes, "codes", defaultDiscountCodes, "discount codes as CODE:fraction list")
	flag.BoolVar(&strictCard, "strict-card", false, "validate card numbers with the Luhn check")

	flag.Parse()

	flagCfg.StrictCardCheck = fmt.Sprint(strictCard)

	return build(merge(flagCfg, envCfg))
}

func merge(base, override raw) raw {
	pick := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	pick(&base.RunAddress, override.RunAddress)
	pick(&base.DatabaseURI, override.DatabaseURI)
	pick(&base.SQLitePath, override.SQLitePath)
	pick(&base.CatalogURL, override.CatalogURL)
	pick(&base.CatalogRefreshInterval, override.CatalogRefreshInterval)
	pick(&base.TaxRate, override.TaxRate)
	pick(&base.DiscountCodes, override.DiscountCodes)
	pick(&base.StrictCardCheck, override.StrictCardCheck)
	return base
}

func build(r raw) (*Config, error) {
	cfg := &Config{
		RunAddress:  r.RunAddress,
		DatabaseURI: r.DatabaseURI,
		SQLitePath:  r.SQLitePath,
		CatalogURL:  r.CatalogURL,
	}
	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}

	interval, err := time.ParseDuration(r.CatalogRefreshInterval)
	if err != nil {
		return nil, fmt.Errorf("parse catalog refresh interval: %w", err)
	}
	if interval <= 0 {
		return nil, errors.New("catalog refresh interval must be positive")
	}
	cfg.CatalogRefreshInterval = interval

	cfg.TaxRate, err = decimal.NewFromString(r.TaxRate)
	if err != nil {
		return nil, fmt.Errorf("parse tax rate: %w", err)
	}

	cfg.DiscountCodes, err = ParseDiscountCodes(r.DiscountCodes)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(strings.TrimSpace(r.StrictCardCheck)) {
	case "", "0", "false", "no":
	case "1", "true", "yes":
		cfg.StrictCardCheck = true
	default:
		return nil, fmt.Errorf("parse strict card check: unexpected value %q", r.StrictCardCheck)
	}

	return cfg, nil
}

// ParseDiscountCodes разбирает список вида "SAVE20:0.20,WELCOME10:0.10".
func ParseDiscountCodes(s string) (map[string]decimal.Decimal, error) {
	codes := make(map[string]decimal.Decimal)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, value, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("parse discount code %q: missing fraction", part)
		}
		fraction, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("parse discount code %q: %w", part, err)
		}
		codes[strings.ToUpper(strings.TrimSpace(code))] = fraction
	}
	return codes, nil
}
