package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"loyalty-service/internal/config"
	"loyalty-service/internal/domain"
	"loyalty-service/internal/metrics"
	"loyalty-service/internal/pub"
	"loyalty-service/internal/repository"
	"loyalty-service/shared/utils/cache"
	xerrors "loyalty-service/shared/utils/errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type ledgerState struct {
	accounts         map[string]domain.Account
	transactionTypes map[string]domain.TransactionType
	transactions     []domain.Transaction
	externals        map[string]domain.ExternalTransaction
	projects         map[string]domain.Project
	userUnits        map[string]domain.ProjectUserUnits
}

func (s *ledgerState) clone() *ledgerState {
	c := &ledgerState{
		accounts:         make(map[string]domain.Account, len(s.accounts)),
		transactionTypes: make(map[string]domain.TransactionType, len(s.transactionTypes)),
		transactions:     append([]domain.Transaction(nil), s.transactions...),
		externals:        make(map[string]domain.ExternalTransaction, len(s.externals)),
		projects:         make(map[string]domain.Project, len(s.projects)),
		userUnits:        make(map[string]domain.ProjectUserUnits, len(s.userUnits)),
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.transactionTypes {
		c.transactionTypes[k] = v
	}
	for k, v := range s.externals {
		c.externals[k] = v
	}
	for k, v := range s.projects {
		c.projects[k] = v
	}
	for k, v := range s.userUnits {
		c.userUnits[k] = v
	}
	return c
}

// fakeStore keeps committed state in memory. A unit of work works on a copy
// taken at Begin and swaps it in on Commit.
type fakeStore struct {
	mu         sync.Mutex
	state      *ledgerState
	failCommit error

	begins    int
	commits   int
	rollbacks int
}

var _ repository.LedgerRepository = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{state: &ledgerState{
		accounts:         map[string]domain.Account{},
		transactionTypes: map[string]domain.TransactionType{},
		externals:        map[string]domain.ExternalTransaction{},
		projects:         map[string]domain.Project{},
		userUnits:        map[string]domain.ProjectUserUnits{},
	}}
}

func (s *fakeStore) Begin(context.Context) (repository.UnitOfWork, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.begins++
	return &fakeUnitOfWork{store: s, state: s.state.clone()}, nil
}

func (s *fakeStore) account(id string) domain.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.accounts[id]
}

func (s *fakeStore) committedTransactions() []domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Transaction(nil), s.state.transactions...)
}

func (s *fakeStore) project(id string) domain.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.projects[id]
}

func (s *fakeStore) projectUserUnits() []domain.ProjectUserUnits {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ProjectUserUnits, 0, len(s.state.userUnits))
	for _, u := range s.state.userUnits {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProjectID < out[j].ProjectID })
	return out
}

func (s *fakeStore) FindAccount(_ context.Context, id string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return findAccountIn(s.state, id)
}

func (s *fakeStore) FindTransaction(_ context.Context, debitAccountID, typeID string) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return findTransactionIn(s.state, debitAccountID, typeID)
}

func (s *fakeStore) FindExternalTransaction(_ context.Context, id string) (*domain.ExternalTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	et, ok := s.state.externals[id]
	if !ok {
		return nil, fmt.Errorf("external transaction %s: %w", id, xerrors.ErrNotFound)
	}
	return &et, nil
}

func (s *fakeStore) SumDebitAmounts(_ context.Context, accountID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, t := range s.state.transactions {
		if t.DebitAccountID == accountID {
			total += t.DebitAmount.Amount
		}
	}
	return total, nil
}

func (s *fakeStore) SumCreditAmounts(_ context.Context, accountID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, t := range s.state.transactions {
		if t.CreditAccountID == accountID {
			total += t.CreditAmount.Amount
		}
	}
	return total, nil
}

func (s *fakeStore) Ping(context.Context) error { return nil }

func findAccountIn(st *ledgerState, id string) (*domain.Account, error) {
	a, ok := st.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", id, xerrors.ErrNotFound)
	}
	return &a, nil
}

func findTransactionIn(st *ledgerState, debitAccountID, typeID string) (*domain.Transaction, error) {
	for i := len(st.transactions) - 1; i >= 0; i-- {
		t := st.transactions[i]
		if t.DebitAccountID == debitAccountID && t.TypeID == typeID {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("transaction for %s: %w", debitAccountID, xerrors.ErrNotFound)
}

type fakeUnitOfWork struct {
	store *fakeStore
	state *ledgerState
	done  bool
}

func (u *fakeUnitOfWork) AdjustBalance(_ context.Context, accountID string, balanceDelta, blockedDelta int64) error {
	a, ok := u.state.accounts[accountID]
	if !ok {
		return fmt.Errorf("account %s: %w", accountID, xerrors.ErrNotFound)
	}
	a.Balance += balanceDelta
	a.BlockedAmount += blockedDelta
	u.state.accounts[accountID] = a
	return nil
}

func (u *fakeUnitOfWork) FindAccount(_ context.Context, id string) (*domain.Account, error) {
	return findAccountIn(u.state, id)
}

func (u *fakeUnitOfWork) FindAccountByOwner(_ context.Context, userID string) (*domain.Account, error) {
	for _, a := range u.state.accounts {
		if a.UserID != nil && *a.UserID == userID {
			return &a, nil
		}
	}
	return nil, fmt.Errorf("account of user %s: %w", userID, xerrors.ErrNotFound)
}

func (u *fakeUnitOfWork) FindAccountByProject(_ context.Context, projectID string) (*domain.Account, error) {
	for _, a := range u.state.accounts {
		if a.ProjectID != nil && *a.ProjectID == projectID {
			return &a, nil
		}
	}
	return nil, fmt.Errorf("account of project %s: %w", projectID, xerrors.ErrNotFound)
}

func (u *fakeUnitOfWork) FindAccountType(_ context.Context, id string) (*domain.AccountType, error) {
	return &domain.AccountType{ID: id, Name: id}, nil
}

func (u *fakeUnitOfWork) FindTransactionType(_ context.Context, id string) (*domain.TransactionType, error) {
	t, ok := u.state.transactionTypes[id]
	if !ok {
		return nil, fmt.Errorf("transaction type %s: %w", id, xerrors.ErrNotFound)
	}
	return &t, nil
}

func (u *fakeUnitOfWork) FindTransaction(_ context.Context, debitAccountID, typeID string) (*domain.Transaction, error) {
	return findTransactionIn(u.state, debitAccountID, typeID)
}

func (u *fakeUnitOfWork) FindTransactionsByExternalTransaction(_ context.Context, externalTransactionID string) ([]*domain.Transaction, error) {
	var out []*domain.Transaction
	for _, t := range u.state.transactions {
		if t.ExternalTransactionID != nil && *t.ExternalTransactionID == externalTransactionID {
			t := t
			out = append(out, &t)
		}
	}
	return out, nil
}

func (u *fakeUnitOfWork) SaveTransaction(_ context.Context, tx *domain.Transaction) error {
	if tx.ExternalTransactionID != nil {
		if _, ok := u.state.externals[*tx.ExternalTransactionID]; !ok {
			return fmt.Errorf("transaction %s references unknown external transaction %s", tx.ID, *tx.ExternalTransactionID)
		}
	}
	u.state.transactions = append(u.state.transactions, *tx)
	return nil
}

func (u *fakeUnitOfWork) SaveExternalTransaction(_ context.Context, et *domain.ExternalTransaction) error {
	u.state.externals[et.ID] = *et
	return nil
}

func (u *fakeUnitOfWork) FindProject(_ context.Context, id string) (*domain.Project, error) {
	p, ok := u.state.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", id, xerrors.ErrNotFound)
	}
	return &p, nil
}

func (u *fakeUnitOfWork) IncrementProjectUnits(_ context.Context, projectID string, units decimal.Decimal) error {
	p, ok := u.state.projects[projectID]
	if !ok {
		return fmt.Errorf("project %s: %w", projectID, xerrors.ErrNotFound)
	}
	p.TotalUnitsAmount = p.TotalUnitsAmount.Add(units)
	u.state.projects[projectID] = p
	return nil
}

func (u *fakeUnitOfWork) FindProjectUserUnits(_ context.Context, userID, projectID string) (*domain.ProjectUserUnits, error) {
	for _, pu := range u.state.userUnits {
		if pu.UserID == userID && pu.ProjectID == projectID {
			return &pu, nil
		}
	}
	return nil, fmt.Errorf("units of %s/%s: %w", userID, projectID, xerrors.ErrNotFound)
}

func (u *fakeUnitOfWork) SaveProjectUserUnits(_ context.Context, pu *domain.ProjectUserUnits) error {
	u.state.userUnits[pu.ID] = *pu
	return nil
}

func (u *fakeUnitOfWork) IncrementProjectUserUnits(_ context.Context, id string, units decimal.Decimal) error {
	pu, ok := u.state.userUnits[id]
	if !ok {
		return fmt.Errorf("units %s: %w", id, xerrors.ErrNotFound)
	}
	pu.TotalUnitsAmount = pu.TotalUnitsAmount.Add(units)
	u.state.userUnits[id] = pu
	return nil
}

func (u *fakeUnitOfWork) Commit(context.Context) error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	if u.done {
		return fmt.Errorf("unit of work already finished")
	}
	u.done = true
	if u.store.failCommit != nil {
		return u.store.failCommit
	}
	u.store.state = u.state
	u.store.commits++
	return nil
}

func (u *fakeUnitOfWork) Rollback(context.Context) error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	if u.done {
		return nil
	}
	u.done = true
	u.store.rollbacks++
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []pub.LedgerEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e *pub.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType
	}
	return out
}

const (
	userID         = "user-1"
	userAccountID  = "acc-user"
	projectID      = "proj-1"
	projectAccount = "acc-project"
	defaultBankID  = "acc-default-bank"
)

type fixture struct {
	store     *fakeStore
	catalog   config.Catalog
	ledger    *LedgerUsecase
	resolver  *AccountResolver
	publisher *recordingPublisher
	metrics   *metrics.Metrics
	logs      *observer.ObservedLogs
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	cache *cache.Cache
}

func withCache(c *cache.Cache) fixtureOption {
	return func(fc *fixtureConfig) { fc.cache = c }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	var fc fixtureConfig
	for _, o := range opts {
		o(&fc)
	}

	catalog := config.DefaultCatalog()
	store := newFakeStore()

	system := func(id string) {
		store.state.accounts[id] = domain.Account{ID: id, TypeID: catalog.SystemAccountType, Currency: "GBP"}
	}
	for _, id := range catalog.SourceBanks {
		system(id)
	}
	system(catalog.PlatformCommissionAccount)
	system(defaultBankID)

	uid, pid := userID, projectID
	store.state.accounts[userAccountID] = domain.Account{ID: userAccountID, TypeID: catalog.UserAccountType, UserID: &uid, Currency: "GBP"}
	store.state.accounts[projectAccount] = domain.Account{ID: projectAccount, TypeID: "project", ProjectID: &pid, Currency: "GBP"}
	store.state.projects[projectID] = domain.Project{
		ID:               projectID,
		AccountID:        projectAccount,
		UnitPoints:       50,
		UnitAmount:       decimal.NewFromInt(2),
		TotalUnitsAmount: decimal.Zero,
	}
	for _, role := range domain.TransactionTypeRoles {
		id := catalog.TransactionTypes[role]
		store.state.transactionTypes[id] = domain.TransactionType{ID: id, Name: string(role)}
	}

	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)
	m := metrics.New(prometheus.NewRegistry())
	publisher := &recordingPublisher{}

	resolver := NewAccountResolver(catalog, fc.cache, logger)
	engine := NewTransferEngine(NewProjectUnitsConverter(logger), m, logger)
	clearer := NewBlockedAmountClearer(resolver, logger)
	ledger := NewLedgerUsecase(store, resolver, engine, clearer, fc.cache, 0, publisher, m, logger)

	return &fixture{
		store:     store,
		catalog:   catalog,
		ledger:    ledger,
		resolver:  resolver,
		publisher: publisher,
		metrics:   m,
		logs:      logs,
	}
}

func (f *fixture) bank(source domain.TransactionSource) string {
	return f.catalog.SourceBanks[source]
}

func (f *fixture) platform() string {
	return f.catalog.PlatformCommissionAccount
}

func (f *fixture) actions() []string {
	var out []string
	for _, e := range f.logs.All() {
		for _, field := range e.Context {
			if field.Key == "action" {
				out = append(out, field.String)
			}
		}
	}
	return out
}

func purchaseEvent(id string) *domain.ExternalTransaction {
	uid := userID
	return &domain.ExternalTransaction{
		ID:             id,
		Amount:         domain.NewMoney(100, "GBP"),
		Commission:     10,
		CommissionType: domain.CommissionTypePercent,
		UserShare:      70,
		Source:         domain.SourceFidel,
		UserID:         &uid,
	}
}

func refundEvent(id, refunded string) *domain.ExternalTransaction {
	et := purchaseEvent(id)
	et.RefundedTransactionID = &refunded
	return et
}

type balances struct {
	Balance int64
	Blocked int64
}

func (f *fixture) balances(id string) balances {
	a := f.store.account(id)
	return balances{Balance: a.Balance, Blocked: a.BlockedAmount}
}
