package usecase

import (
	"context"
	"errors"
	"time"

	"loyalty-service/internal/domain"
	"loyalty-service/internal/metrics"
	"loyalty-service/internal/pkg/commission"
	"loyalty-service/internal/pub"
	"loyalty-service/internal/repository"
	"loyalty-service/shared/utils/cache"
	xerrors "loyalty-service/shared/utils/errors"

	"go.uber.org/zap"
)

const (
	WorkflowPurchase = "purchase"
	WorkflowRefund   = "refund"
	WorkflowClearing = "clearing"
	WorkflowTransfer = "transfer"

	pointsCacheNS = "loyalty:points"
)

// LedgerUsecase runs the purchase, refund and clearing workflows. Each
// workflow is one unit of work: every write commits together or not at all.
// Workflows are not idempotent; running one twice applies its effects twice.
type LedgerUsecase struct {
	repo      repository.LedgerRepository
	resolver  *AccountResolver
	engine    *TransferEngine
	clearer   *BlockedAmountClearer
	cache     *cache.Cache
	cacheTTL  time.Duration
	publisher pub.Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

func NewLedgerUsecase(
	repo repository.LedgerRepository,
	resolver *AccountResolver,
	engine *TransferEngine,
	clearer *BlockedAmountClearer,
	c *cache.Cache,
	cacheTTL time.Duration,
	publisher pub.Publisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) *LedgerUsecase {
	if publisher == nil {
		publisher = pub.Nop{}
	}
	return &LedgerUsecase{
		repo:      repo,
		resolver:  resolver,
		engine:    engine,
		clearer:   clearer,
		cache:     c,
		cacheTTL:  cacheTTL,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// run is the state of one workflow inside its unit of work.
type run struct {
	workflow     string
	uow          *trackingUnitOfWork
	et           *domain.ExternalTransaction
	transactions []*domain.Transaction
}

func (u *LedgerUsecase) ProcessPurchase(ctx context.Context, et *domain.ExternalTransaction) error {
	u.logReceived(ctx, WorkflowPurchase, et)
	if err := et.Validate(); err != nil {
		return u.reject(ctx, WorkflowPurchase, et, err)
	}
	if et.IsRefund() {
		return u.reject(ctx, WorkflowPurchase, et, xerrors.Validation(xerrors.ErrInvalidTransfer,
			"external transaction %s refunds %s and must go through the refund workflow", et.ID, *et.RefundedTransactionID))
	}

	return u.withinUnitOfWork(ctx, WorkflowPurchase, et, func(ctx context.Context, r *run) error {
		if err := r.uow.SaveExternalTransaction(ctx, et); err != nil {
			return err
		}
		if err := u.transferCommission(ctx, r); err != nil {
			return err
		}
		if err := u.transferUserShare(ctx, r); err != nil {
			return err
		}
		if et.ImpactProjectTransaction {
			return u.transferImpactDonation(ctx, r)
		}
		return nil
	})
}

// ProcessRefund reverses a purchase. An event without a refunded transaction
// reference is logged and dropped before any unit of work is opened.
func (u *LedgerUsecase) ProcessRefund(ctx context.Context, et *domain.ExternalTransaction) error {
	u.logReceived(ctx, WorkflowRefund, et)
	if !et.IsRefund() {
		u.logger.Error("refund without refunded transaction",
			zap.String("action", "undefined_refunded_transaction"),
			zap.String("external_transaction_id", et.ID),
			zap.Error(xerrors.ErrMissingRefundTarget),
		)
		u.publish(ctx, &pub.LedgerEvent{
			EventType:             pub.EventRefundTargetMissing,
			Workflow:              WorkflowRefund,
			ExternalTransactionID: et.ID,
			ErrorMessage:          xerrors.ErrMissingRefundTarget.Error(),
		})
		u.metrics.ObserveWorkflow(WorkflowRefund, "skipped", 0)
		return nil
	}
	if err := et.Validate(); err != nil {
		return u.reject(ctx, WorkflowRefund, et, err)
	}

	return u.withinUnitOfWork(ctx, WorkflowRefund, et, func(ctx context.Context, r *run) error {
		if err := r.uow.SaveExternalTransaction(ctx, et); err != nil {
			return err
		}
		if et.ImpactProjectTransaction {
			if err := u.transferImpactDonation(ctx, r); err != nil {
				return err
			}
		}
		if err := u.transferUserShare(ctx, r); err != nil {
			return err
		}
		return u.transferCommission(ctx, r)
	})
}

func (u *LedgerUsecase) ProcessClearing(ctx context.Context, et *domain.ExternalTransaction) error {
	u.logReceived(ctx, WorkflowClearing, et)
	if err := et.Validate(); err != nil {
		return u.reject(ctx, WorkflowClearing, et, err)
	}

	return u.withinUnitOfWork(ctx, WorkflowClearing, et, func(ctx context.Context, r *run) error {
		if err := r.uow.SaveExternalTransaction(ctx, et); err != nil {
			return err
		}
		breakdown, err := u.clearer.Resolve(ctx, r.uow, et)
		if err != nil {
			return err
		}
		return u.clearer.Apply(ctx, r.uow, breakdown)
	})
}

// Transfer writes a single transfer in its own unit of work. A linked
// external transaction is upserted first so the reference always resolves.
func (u *LedgerUsecase) Transfer(ctx context.Context, req *domain.TransferRequest, shouldBlock bool) (*domain.Transaction, error) {
	var tx *domain.Transaction
	err := u.withinUnitOfWork(ctx, WorkflowTransfer, req.ExternalTransaction, func(ctx context.Context, r *run) error {
		if req.ExternalTransaction != nil {
			if err := r.uow.SaveExternalTransaction(ctx, req.ExternalTransaction); err != nil {
				return err
			}
		}
		var err error
		tx, err = u.transfer(ctx, r, req, shouldBlock)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (u *LedgerUsecase) ProcessPurchaseByID(ctx context.Context, externalTransactionID string) error {
	et, err := u.repo.FindExternalTransaction(ctx, externalTransactionID)
	if err != nil {
		return err
	}
	return u.ProcessPurchase(ctx, et)
}

func (u *LedgerUsecase) ProcessRefundByID(ctx context.Context, externalTransactionID string) error {
	et, err := u.repo.FindExternalTransaction(ctx, externalTransactionID)
	if err != nil {
		return err
	}
	return u.ProcessRefund(ctx, et)
}

func (u *LedgerUsecase) ProcessClearingByID(ctx context.Context, externalTransactionID string) error {
	et, err := u.repo.FindExternalTransaction(ctx, externalTransactionID)
	if err != nil {
		return err
	}
	return u.ProcessClearing(ctx, et)
}

func (u *LedgerUsecase) FindTransactionByDebitAccountAndType(ctx context.Context, debitAccountID, typeID string) (*domain.Transaction, error) {
	return u.repo.FindTransaction(ctx, debitAccountID, typeID)
}

// commission leg: source bank -> platform commission.
func (u *LedgerUsecase) transferCommission(ctx context.Context, r *run) error {
	et := r.et
	bank, err := u.resolver.SystemBankAccount(ctx, r.uow, et.Source)
	if err != nil {
		return err
	}
	platform, err := u.resolver.PlatformCommissionAccount(ctx, r.uow)
	if err != nil {
		return err
	}
	txType, err := u.resolver.TransactionType(ctx, r.uow, typeRole(et, domain.TransactionTypePurchase))
	if err != nil {
		return err
	}

	req := &domain.TransferRequest{
		CreditAccount:       bank,
		DebitAccount:        platform,
		Amount:              abs(et.Commission),
		Currency:            et.Amount.Currency,
		Type:                txType,
		ExternalTransaction: et,
	}
	if et.IsRefund() {
		req.CreditAccount, req.DebitAccount = platform, bank
	}

	u.logTransferPlan("commission", r, req)
	_, err = u.transfer(ctx, r, req, u.shouldBlock(et))
	return err
}

// user share leg: platform commission -> user (or the default bank account).
func (u *LedgerUsecase) transferUserShare(ctx context.Context, r *run) error {
	et := r.et
	platform, err := u.resolver.PlatformCommissionAccount(ctx, r.uow)
	if err != nil {
		return err
	}

	var userAccount *domain.Account
	switch {
	case et.HasUser():
		userAccount, err = u.resolver.UserAccount(ctx, r.uow, *et.UserID)
	case et.DefaultBankAccountID != nil && *et.DefaultBankAccountID != "":
		userAccount, err = u.resolver.Account(ctx, r.uow, *et.DefaultBankAccountID)
	default:
		err = xerrors.Validation(xerrors.ErrMissingRequiredAccount,
			"external transaction %s has neither user nor default bank account", et.ID)
	}
	if err != nil {
		return err
	}

	amount, err := commission.UserShareAmount(et.CommissionType, et.Commission, et.UserShare, et.Amount.Currency)
	if err != nil {
		return err
	}
	txType, err := u.resolver.TransactionType(ctx, r.uow, typeRole(et, domain.TransactionTypePurchase))
	if err != nil {
		return err
	}

	// ordered just after the commission leg
	date := u.now().Add(time.Millisecond)
	req := &domain.TransferRequest{
		CreditAccount:       platform,
		DebitAccount:        userAccount,
		Amount:              amount,
		Currency:            et.Amount.Currency,
		Type:                txType,
		ExternalTransaction: et,
		DateTime:            &date,
	}
	if et.IsRefund() {
		req.CreditAccount, req.DebitAccount = userAccount, platform
	}

	u.logTransferPlan("user_share", r, req)
	_, err = u.transfer(ctx, r, req, u.shouldBlock(et))
	return err
}

// impact donation leg: user -> project. Never blocks.
func (u *LedgerUsecase) transferImpactDonation(ctx context.Context, r *run) error {
	et := r.et
	if et.ImpactProjectID == nil || *et.ImpactProjectID == "" {
		return xerrors.Validation(xerrors.ErrInvalidProject, "external transaction %s is flagged for donation without a project", et.ID)
	}
	if !et.HasUser() {
		return xerrors.Validation(xerrors.ErrMissingRequiredAccount, "donation of %s has no user", et.ID)
	}

	userAccount, err := u.resolver.UserAccount(ctx, r.uow, *et.UserID)
	if err != nil {
		return err
	}
	projectAccount, err := u.resolver.ProjectAccount(ctx, r.uow, *et.ImpactProjectID)
	if err != nil {
		return err
	}
	// the event's user share as reported, whatever the commission type
	amount := abs(et.UserShare)
	txType, err := u.resolver.TransactionType(ctx, r.uow, typeRole(et, domain.TransactionTypeDonation))
	if err != nil {
		return err
	}

	payout := lastDayOfNextMonth(u.now())
	req := &domain.TransferRequest{
		CreditAccount:       userAccount,
		DebitAccount:        projectAccount,
		Amount:              amount,
		Currency:            u.resolver.DefaultCurrency(),
		Type:                txType,
		ExternalTransaction: et,
		PayoutDate:          &payout,
	}
	if et.IsRefund() {
		req.CreditAccount, req.DebitAccount = projectAccount, userAccount
	}

	u.logTransferPlan("impact_donation", r, req)
	_, err = u.transfer(ctx, r, req, false)
	return err
}

func (u *LedgerUsecase) transfer(ctx context.Context, r *run, req *domain.TransferRequest, shouldBlock bool) (*domain.Transaction, error) {
	tx, err := u.engine.Transfer(ctx, r.uow, req, shouldBlock)
	if err != nil {
		return nil, err
	}
	r.transactions = append(r.transactions, tx)
	return tx, nil
}

func (u *LedgerUsecase) shouldBlock(et *domain.ExternalTransaction) bool {
	return !et.IsRefund() || u.resolver.BlocksRefund(et.Source)
}

func typeRole(et *domain.ExternalTransaction, normal domain.TransactionTypeRole) domain.TransactionTypeRole {
	if et.IsRefund() {
		return domain.TransactionTypeRefund
	}
	return normal
}

// withinUnitOfWork begins a unit of work, runs fn and commits. Any error rolls
// everything back; storage failures come back wrapped in ErrPersistence.
func (u *LedgerUsecase) withinUnitOfWork(ctx context.Context, workflow string, et *domain.ExternalTransaction, fn func(ctx context.Context, r *run) error) error {
	start := u.now()

	uow, err := u.repo.Begin(ctx)
	if err != nil {
		return u.fail(ctx, workflow, et, start, xerrors.Persistence("begin "+workflow, err))
	}
	defer func() {
		if err := uow.Rollback(ctx); err != nil {
			u.logger.Warn("rollback failed", zap.String("workflow", workflow), zap.Error(err))
		}
	}()

	r := &run{workflow: workflow, uow: track(uow), et: et}
	if err := fn(ctx, r); err != nil {
		if err := uow.Rollback(ctx); err != nil {
			u.logger.Warn("rollback failed", zap.String("workflow", workflow), zap.Error(err))
		}
		if !xerrors.IsValidation(err) && !errors.Is(err, xerrors.ErrPersistence) {
			err = xerrors.Persistence(workflow, err)
		}
		return u.fail(ctx, workflow, et, start, err)
	}

	if err := uow.Commit(ctx); err != nil {
		return u.fail(ctx, workflow, et, start, xerrors.Persistence("commit "+workflow, err))
	}

	u.logger.Info("ledger workflow committed",
		zap.String("action", "transaction_committed"),
		zap.String("workflow", workflow),
		zap.String("external_transaction_id", externalID(et)),
		zap.Int("transactions", len(r.transactions)),
	)
	u.metrics.ObserveWorkflow(workflow, "committed", u.now().Sub(start))
	u.invalidatePoints(ctx, r.uow.Touched())

	for _, tx := range r.transactions {
		u.publish(ctx, &pub.LedgerEvent{
			EventType:             pub.EventTransferCompleted,
			Workflow:              workflow,
			ExternalTransactionID: externalID(et),
			TransactionID:         tx.ID,
			CreditAccountID:       tx.CreditAccountID,
			DebitAccountID:        tx.DebitAccountID,
			Amount:                tx.DebitAmount.Amount,
			Currency:              tx.DebitAmount.Currency,
		})
	}
	u.publish(ctx, &pub.LedgerEvent{
		EventType:             pub.EventWorkflowCommitted,
		Workflow:              workflow,
		ExternalTransactionID: externalID(et),
	})
	return nil
}

// reject reports a validation failure raised before any unit of work.
func (u *LedgerUsecase) reject(ctx context.Context, workflow string, et *domain.ExternalTransaction, err error) error {
	return u.fail(ctx, workflow, et, u.now(), err)
}

func (u *LedgerUsecase) fail(ctx context.Context, workflow string, et *domain.ExternalTransaction, start time.Time, err error) error {
	u.logger.Error("ledger workflow failed",
		zap.String("action", "exception"),
		zap.String("workflow", workflow),
		zap.String("external_transaction_id", externalID(et)),
		zap.Bool("validation", xerrors.IsValidation(err)),
		zap.Error(err),
	)
	u.metrics.ObserveWorkflow(workflow, "failed", u.now().Sub(start))
	u.publish(ctx, &pub.LedgerEvent{
		EventType:             pub.EventWorkflowFailed,
		Workflow:              workflow,
		ExternalTransactionID: externalID(et),
		ErrorMessage:          err.Error(),
	})
	return err
}

func (u *LedgerUsecase) publish(ctx context.Context, event *pub.LedgerEvent) {
	if err := u.publisher.Publish(ctx, event); err != nil {
		u.logger.Warn("failed to publish ledger event",
			zap.String("event_type", event.EventType),
			zap.Error(err),
		)
	}
}

func (u *LedgerUsecase) logReceived(ctx context.Context, workflow string, et *domain.ExternalTransaction) {
	u.logger.Info("ledger workflow started",
		zap.String("action", "event_received"),
		zap.String("workflow", workflow),
		zap.String("external_transaction_id", externalID(et)),
		zap.Bool("is_refund", et.IsRefund()),
	)
	u.publish(ctx, &pub.LedgerEvent{
		EventType:             pub.EventWorkflowReceived,
		Workflow:              workflow,
		ExternalTransactionID: externalID(et),
	})
}

func (u *LedgerUsecase) logTransferPlan(leg string, r *run, req *domain.TransferRequest) {
	u.logger.Info("transfer planned",
		zap.String("action", "calculate_transfer_dto"),
		zap.String("workflow", r.workflow),
		zap.String("leg", leg),
		zap.String("external_transaction_id", externalID(r.et)),
		zap.String("credit_account_id", req.CreditAccount.ID),
		zap.String("debit_account_id", req.DebitAccount.ID),
		zap.Int64("amount", req.Amount),
		zap.Bool("is_refund", req.IsRefund()),
	)
}

func externalID(et *domain.ExternalTransaction) string {
	if et == nil {
		return ""
	}
	return et.ID
}
