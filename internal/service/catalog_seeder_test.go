package service

import (
	"context"
	"errors"
	"testing"

	"loyalty-service/internal/config"
	"loyalty-service/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeCatalogRepo struct {
	got repository.CatalogSeed
	err error
}

func (f *fakeCatalogRepo) Seed(_ context.Context, seed repository.CatalogSeed) (repository.SeedResult, error) {
	f.got = seed
	if f.err != nil {
		return repository.SeedResult{}, f.err
	}
	return repository.SeedResult{Accounts: len(seed.Accounts)}, nil
}

func TestBuildSeedCoversCatalog(t *testing.T) {
	c := config.DefaultCatalog()
	seed := BuildSeed(c)

	require.Len(t, seed.AccountTypes, 2)
	assert.Len(t, seed.TransactionTypes, 3)
	require.Len(t, seed.Accounts, len(c.SourceBanks)+1)

	ids := map[string]bool{}
	for _, a := range seed.Accounts {
		ids[a.ID] = true
		assert.Equal(t, c.SystemAccountType, a.TypeID)
		assert.Equal(t, c.DefaultCurrency, a.Currency)
	}
	assert.True(t, ids[c.PlatformCommissionAccount])
	for _, bank := range c.SourceBanks {
		assert.True(t, ids[bank])
	}
}

func TestSeedCatalogLogsResult(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	repo := &fakeCatalogRepo{}

	err := NewCatalogSeeder(repo, config.DefaultCatalog(), zap.New(core)).SeedCatalog(context.Background())
	require.NoError(t, err)

	ready := logs.FilterMessage("ledger catalog ready").All()
	require.Len(t, ready, 1)
	assert.Equal(t, int64(5), ready[0].ContextMap()["accounts_inserted"])
}

func TestSeedCatalogWrapsError(t *testing.T) {
	boom := errors.New("relation does not exist")
	err := NewCatalogSeeder(&fakeCatalogRepo{err: boom}, config.DefaultCatalog(), zap.NewNop()).SeedCatalog(context.Background())
	assert.ErrorIs(t, err, boom)
}
