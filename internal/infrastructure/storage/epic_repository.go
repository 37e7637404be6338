package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/theuselessai/pipelit/internal/infrastructure/storage/models"
	"github.com/uptrace/bun"
)

// ErrEpicNotFound is returned when an epic id has no matching row.
var ErrEpicNotFound = errors.New("epic not found")

// EpicRepository persists EpicModel rows using Bun ORM.
type EpicRepository struct {
	db *bun.DB
}

// NewEpicRepository creates a new EpicRepository.
func NewEpicRepository(db *bun.DB) *EpicRepository {
	return &EpicRepository{db: db}
}

// Create inserts a new epic.
func (r *EpicRepository) Create(ctx context.Context, epic *models.EpicModel) error {
	if epic.ID == uuid.Nil {
		epic.ID = uuid.New()
	}
	_, err := r.db.NewInsert().Model(epic).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create epic: %w", err)
	}
	return nil
}

// Get loads an epic by ID.
func (r *EpicRepository) Get(ctx context.Context, id uuid.UUID) (*models.EpicModel, error) {
	epic := new(models.EpicModel)
	err := r.db.NewSelect().Model(epic).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEpicNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load epic: %w", err)
	}
	return epic, nil
}

// AddUsage atomically adds token/usd spend to an epic and updates its status
// if this pushes it over budget, all within one transaction to avoid a
// lost-update race between concurrent nodes sharing an epic.
func (r *EpicRepository) AddUsage(ctx context.Context, id uuid.UUID, tokens int64, usd float64) (*models.EpicModel, error) {
	var epic *models.EpicModel
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		epic = new(models.EpicModel)
		if err := tx.NewSelect().Model(epic).Where("id = ?", id).For("UPDATE").Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrEpicNotFound
			}
			return err
		}

		epic.SpentTokens += tokens
		epic.SpentUSD += usd
		if epic.BudgetExceeded() {
			epic.Status = "failed"
		}

		_, err := tx.NewUpdate().Model(epic).
			Column("spent_tokens", "spent_usd", "status", "updated_at").
			Where("id = ?", epic.ID).
			Exec(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record epic usage: %w", err)
	}
	return epic, nil
}
