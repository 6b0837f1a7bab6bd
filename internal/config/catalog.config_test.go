package config

import (
	"testing"

	"loyalty-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogIsValid(t *testing.T) {
	require.NoError(t, DefaultCatalog().Validate())
}

func TestLoadCatalogFromEnv(t *testing.T) {
	t.Setenv("LOYALTY_SOURCE_BANKS", "fidel=bank-f, awin=bank-a, rakuten=bank-r, shopify=bank-s")
	t.Setenv("LOYALTY_PLATFORM_COMMISSION_ACCOUNT", "platform")
	t.Setenv("LOYALTY_TRANSACTION_TYPES", "purchase=1,refund=2,donation=3")
	t.Setenv("LOYALTY_NON_BLOCKING_REFUND_SOURCES", "awin")

	c, err := LoadCatalog()
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, "bank-f", c.SourceBanks[domain.SourceFidel])
	assert.Equal(t, "bank-a", c.SourceBanks[domain.SourceAwin])
	assert.Len(t, c.SourceBanks, 4)
	assert.Equal(t, "platform", c.PlatformCommissionAccount)
	assert.Equal(t, "2", c.TransactionTypes[domain.TransactionTypeRefund])
	assert.True(t, c.NonBlockingRefundSources[domain.SourceAwin])
	assert.False(t, c.NonBlockingRefundSources[domain.SourceShopify])
	assert.Equal(t, []string{"bank-a", "bank-f", "bank-r", "bank-s"}, c.BankAccountIDs())
}

func TestLoadCatalogRejectsUnknownSource(t *testing.T) {
	t.Setenv("LOYALTY_SOURCE_BANKS", "ebay=bank-e")
	_, err := LoadCatalog()
	assert.ErrorContains(t, err, "unknown external transaction source")

	t.Setenv("LOYALTY_SOURCE_BANKS", "fidel")
	_, err = LoadCatalog()
	assert.ErrorContains(t, err, "expected key=value")
}

func TestCatalogValidateReportsEveryProblem(t *testing.T) {
	c := DefaultCatalog()
	c.SourceBanks[domain.SourceAwin] = c.SourceBanks[domain.SourceFidel]
	c.PlatformCommissionAccount = ""
	delete(c.TransactionTypes, domain.TransactionTypeDonation)

	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is shared by sources")
	assert.Contains(t, err.Error(), "platform commission account id is empty")
	assert.Contains(t, err.Error(), "transaction type donation is not configured")
}

func TestCatalogRequiresBankForEverySource(t *testing.T) {
	t.Setenv("LOYALTY_SOURCE_BANKS", "fidel=bank-f,awin=bank-a")

	c, err := LoadCatalog()
	require.NoError(t, err)

	err = c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source rakuten has no bank account")
	assert.Contains(t, err.Error(), "source shopify has no bank account")
	assert.NotContains(t, err.Error(), "source fidel")
}
