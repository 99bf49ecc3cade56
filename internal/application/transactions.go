package application

import (
	"context"
	"fmt"

	"fxconvert-service/internal/domain"

	"go.uber.org/zap"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// TransactionService converts an amount and records the outcome.
type TransactionService struct {
	conv      *ConversionService
	repo      TransactionRepo
	uow       UnitOfWork
	idem      IdempotencyStore
	publisher EventPublisher
	idgen     IDGen
	log       *zap.Logger
}

type TxOption func(*TransactionService)

func WithIDGen(g IDGen) TxOption { return func(s *TransactionService) { s.idgen = g } }
func WithUnitOfWork(u UnitOfWork) TxOption { return func(s *TransactionService) { s.uow = u } }
func WithIdempotency(i IdempotencyStore) TxOption { return func(s *TransactionService) { s.idem = i } }
func WithPublisher(p EventPublisher) TxOption { return func(s *TransactionService) { s.publisher = p } }
func WithTxLogger(l *zap.Logger) TxOption { return func(s *TransactionService) { s.log = l } }

func NewTransactionService(conv *ConversionService, repo TransactionRepo, opts ...TxOption) *TransactionService {
	s := &TransactionService{conv: conv, repo: repo}
	for _, opt := range opts {
		opt(s)
	}
	if s.uow == nil {
		s.uow = NoopUoW{}
	}
	if s.idem == nil {
		s.idem = NoopIdempotency{}
	}
	if s.publisher == nil {
		s.publisher = NoopPublisher{}
	}
	if s.idgen == nil {
		s.idgen = defaultIDGen{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// Create converts req and persists the result. A non-empty idemKey that was already
// used returns ErrConflict; the key is released again when creation fails.
func (s *TransactionService) Create(ctx context.Context, req domain.ConversionRequest, idemKey string) (domain.Transaction, error) {
	if idemKey != "" {
		ok, err := s.idem.TryReserve(ctx, idemKey)
		if err != nil {
			return domain.Transaction{}, fmt.Errorf("reserve idempotency key: %w", err)
		}
		if !ok {
			return domain.Transaction{}, ErrConflict
		}
	}

	tx, err := s.create(ctx, req)
	if err != nil {
		if idemKey != "" {
			if rerr := s.idem.Release(context.WithoutCancel(ctx), idemKey); rerr != nil {
				s.log.Warn("idempotency.release_failed", zap.String("key", idemKey), zap.Error(rerr))
			}
		}
		return domain.Transaction{}, err
	}

	if err := s.publisher.PublishTransactionCreated(ctx, tx); err != nil {
		s.log.Warn("transaction.publish_failed", zap.String("transaction_id", tx.ID), zap.Error(err))
	}
	return tx, nil
}

func (s *TransactionService) create(ctx context.Context, req domain.ConversionRequest) (domain.Transaction, error) {
	res, err := s.conv.Convert(ctx, req)
	if err != nil {
		return domain.Transaction{}, err
	}
	tx := domain.NewTransaction(s.idgen.NewID(), res)
	if err := tx.Validate(); err != nil {
		return domain.Transaction{}, err
	}
	err = s.uow.Do(ctx, func(ctx context.Context) error {
		return s.repo.Insert(ctx, tx)
	})
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	s.log.Info("transaction.created",
		zap.String("transaction_id", tx.ID),
		zap.String("from", string(tx.From)),
		zap.String("to", string(tx.To)),
	)
	return tx, nil
}

// List returns a page of transactions, newest first. page is clamped to >= 1 and perPage
// to [1, MaxPerPage]; callers apply DefaultPerPage when the client sent none.
func (s *TransactionService) List(ctx context.Context, page, perPage int) (domain.TransactionPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	var (
		items []domain.Transaction
		total int
	)
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		var err error
		items, total, err = s.repo.List(ctx, (page-1)*perPage, perPage)
		return err
	})
	if err != nil {
		return domain.TransactionPage{}, fmt.Errorf("list transactions: %w", err)
	}
	return domain.TransactionPage{Items: items, Page: page, PerPage: perPage, TotalCount: total}, nil
}
