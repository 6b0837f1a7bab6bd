package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"loyalty-service/internal/domain"
)

// Catalog is the static table of well-known ledger accounts and types.
type Catalog struct {
	SourceBanks               map[domain.TransactionSource]string
	PlatformCommissionAccount string
	UserAccountType           string
	SystemAccountType         string
	TransactionTypes          map[domain.TransactionTypeRole]string
	NonBlockingRefundSources  map[domain.TransactionSource]bool
	DefaultCurrency           string
}

// DefaultCatalog mirrors the identifiers seeded into a fresh ledger.
func DefaultCatalog() Catalog {
	return Catalog{
		SourceBanks: map[domain.TransactionSource]string{
			domain.SourceFidel:   "system-bank-fidel",
			domain.SourceAwin:    "system-bank-awin",
			domain.SourceRakuten: "system-bank-rakuten",
			domain.SourceShopify: "system-bank-shopify",
		},
		PlatformCommissionAccount: "system-platform-commission",
		UserAccountType:           "user",
		SystemAccountType:         "system",
		TransactionTypes: map[domain.TransactionTypeRole]string{
			domain.TransactionTypePurchase: "purchase",
			domain.TransactionTypeRefund:   "refund",
			domain.TransactionTypeDonation: "donation",
		},
		NonBlockingRefundSources: map[domain.TransactionSource]bool{
			domain.SourceShopify: true,
		},
		DefaultCurrency: "GBP",
	}
}

// LoadCatalog overlays LOYALTY_* environment variables on DefaultCatalog.
func LoadCatalog() (Catalog, error) {
	c := DefaultCatalog()

	if raw := getEnv("LOYALTY_SOURCE_BANKS", ""); raw != "" {
		pairs, err := parsePairs(raw)
		if err != nil {
			return Catalog{}, fmt.Errorf("LOYALTY_SOURCE_BANKS: %w", err)
		}
		c.SourceBanks = make(map[domain.TransactionSource]string, len(pairs))
		for k, v := range pairs {
			src, err := domain.ParseSource(k)
			if err != nil {
				return Catalog{}, fmt.Errorf("LOYALTY_SOURCE_BANKS: %w", err)
			}
			c.SourceBanks[src] = v
		}
	}

	if raw := getEnv("LOYALTY_TRANSACTION_TYPES", ""); raw != "" {
		pairs, err := parsePairs(raw)
		if err != nil {
			return Catalog{}, fmt.Errorf("LOYALTY_TRANSACTION_TYPES: %w", err)
		}
		for k, v := range pairs {
			c.TransactionTypes[domain.TransactionTypeRole(strings.ToLower(k))] = v
		}
	}

	if raw := getEnv("LOYALTY_NON_BLOCKING_REFUND_SOURCES", ""); raw != "" {
		c.NonBlockingRefundSources = map[domain.TransactionSource]bool{}
		for _, s := range getEnvSlice("LOYALTY_NON_BLOCKING_REFUND_SOURCES", nil) {
			src, err := domain.ParseSource(s)
			if err != nil {
				return Catalog{}, fmt.Errorf("LOYALTY_NON_BLOCKING_REFUND_SOURCES: %w", err)
			}
			c.NonBlockingRefundSources[src] = true
		}
	}

	c.PlatformCommissionAccount = getEnv("LOYALTY_PLATFORM_COMMISSION_ACCOUNT", c.PlatformCommissionAccount)
	c.UserAccountType = getEnv("LOYALTY_USER_ACCOUNT_TYPE", c.UserAccountType)
	c.SystemAccountType = getEnv("LOYALTY_SYSTEM_ACCOUNT_TYPE", c.SystemAccountType)
	c.DefaultCurrency = getEnv("LOYALTY_DEFAULT_CURRENCY", c.DefaultCurrency)

	return c, nil
}

// Validate reports every problem with the catalog at once.
func (c Catalog) Validate() error {
	var errs []error

	for _, src := range domain.KnownSources {
		if _, ok := c.SourceBanks[src]; !ok {
			errs = append(errs, fmt.Errorf("source %s has no bank account", src))
		}
	}
	seen := map[string]domain.TransactionSource{}
	for src, id := range c.SourceBanks {
		if id == "" {
			errs = append(errs, fmt.Errorf("source %s has an empty bank account id", src))
			continue
		}
		if other, dup := seen[id]; dup {
			errs = append(errs, fmt.Errorf("bank account %s is shared by sources %s and %s", id, other, src))
		}
		seen[id] = src
	}
	if c.PlatformCommissionAccount == "" {
		errs = append(errs, errors.New("platform commission account id is empty"))
	} else if src, clash := seen[c.PlatformCommissionAccount]; clash {
		errs = append(errs, fmt.Errorf("platform commission account is also the %s bank", src))
	}
	if c.UserAccountType == "" {
		errs = append(errs, errors.New("user account type id is empty"))
	}
	if c.SystemAccountType == "" {
		errs = append(errs, errors.New("system account type id is empty"))
	} else if c.SystemAccountType == c.UserAccountType {
		errs = append(errs, errors.New("system and user account types must differ"))
	}
	for _, role := range domain.TransactionTypeRoles {
		if c.TransactionTypes[role] == "" {
			errs = append(errs, fmt.Errorf("transaction type %s is not configured", role))
		}
	}
	if c.DefaultCurrency == "" {
		errs = append(errs, errors.New("default currency is empty"))
	}

	return errors.Join(errs...)
}

// BankAccountIDs lists the configured system bank account ids, sorted.
func (c Catalog) BankAccountIDs() []string {
	ids := make([]string, 0, len(c.SourceBanks))
	for _, id := range c.SourceBanks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func parsePairs(raw string) (map[string]string, error) {
	out := map[string]string{}
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		k, v, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("expected key=value, got %q", item)
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out, nil
}
