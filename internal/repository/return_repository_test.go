package repository

import (
	"context"
	"testing"
	"time"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReturnRepository(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	orders := NewOrderRepository(pool, zerolog.Nop())
	repo := NewReturnRepository(pool, zerolog.Nop())
	ctx := context.Background()

	order := newTestOrder(nil, time.Now().UTC())
	insertOrder(t, pool, orders, order)
	tee, mug := order.Items[0], order.Items[1]

	requestedAt := time.Now().UTC().Truncate(time.Microsecond)
	newReturn := func(items ...model.ReturnItem) *model.ReturnRequest {
		return &model.ReturnRequest{
			ID:          uuid.New(),
			OrderID:     order.ID,
			Items:       items,
			Reason:      "damaged",
			Status:      model.ReturnStatusRequested,
			RequestedAt: requestedAt,
		}
	}

	first := newReturn(model.ReturnItem{OrderItemID: tee.ID, Quantity: 1}, model.ReturnItem{OrderItemID: mug.ID, Quantity: 1})
	second := newReturn(model.ReturnItem{OrderItemID: tee.ID, Quantity: 1})
	for _, rr := range []*model.ReturnRequest{first, second} {
		require.NoError(t, inTx(t, pool, func(tx pgx.Tx) error {
			return repo.Create(ctx, tx, rr)
		}))
	}

	t.Run("GetByID", func(t *testing.T) {
		got, err := repo.GetByID(ctx, first.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, order.ID, got.OrderID)
		assert.Equal(t, "damaged", got.Reason)
		assert.Equal(t, model.ReturnStatusRequested, got.Status)
		assert.True(t, requestedAt.Equal(got.RequestedAt))
		assert.Nil(t, got.DecisionAt)
		assert.Nil(t, got.RefundAmount)
		assert.Len(t, got.Items, 2)

		missing, err := repo.GetByID(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("ListByOrder", func(t *testing.T) {
		got, err := repo.ListByOrder(ctx, order.ID)
		require.NoError(t, err)
		assert.Len(t, got, 2)

		none, err := repo.ListByOrder(ctx, uuid.New())
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("ClaimedQuantities sums pending requests", func(t *testing.T) {
		err := inTx(t, pool, func(tx pgx.Tx) error {
			claimed, err := repo.ClaimedQuantities(ctx, tx, order.ID)
			require.NoError(t, err)
			assert.Equal(t, map[uuid.UUID]int{tee.ID: 2, mug.ID: 1}, claimed)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("decision is persisted", func(t *testing.T) {
		decided := time.Now().UTC().Truncate(time.Microsecond)
		err := inTx(t, pool, func(tx pgx.Tx) error {
			rr, err := repo.GetForUpdate(ctx, tx, first.ID)
			require.NoError(t, err)
			rr.Status = model.ReturnStatusRefunded
			rr.DecisionAt = &decided
			rr.RefundAmount = ptr(int64(20000))
			rr.Note = ptr("refunded to card")
			return repo.Update(ctx, tx, rr)
		})
		require.NoError(t, err)

		got, err := repo.GetByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, model.ReturnStatusRefunded, got.Status)
		assert.True(t, decided.Equal(*got.DecisionAt))
		assert.Equal(t, int64(20000), *got.RefundAmount)
		assert.Equal(t, "refunded to card", *got.Note)
	})

	t.Run("RefundedTotal excludes the given request", func(t *testing.T) {
		err := inTx(t, pool, func(tx pgx.Tx) error {
			total, err := repo.RefundedTotal(ctx, tx, order.ID, second.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(20000), total)

			total, err = repo.RefundedTotal(ctx, tx, order.ID, first.ID)
			require.NoError(t, err)
			assert.Zero(t, total)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("rejected requests release their claim", func(t *testing.T) {
		err := inTx(t, pool, func(tx pgx.Tx) error {
			second.Status = model.ReturnStatusRejected
			second.DecisionAt = ptr(time.Now().UTC())
			require.NoError(t, repo.Update(ctx, tx, second))

			claimed, err := repo.ClaimedQuantities(ctx, tx, order.ID)
			require.NoError(t, err)
			assert.Equal(t, map[uuid.UUID]int{tee.ID: 1, mug.ID: 1}, claimed)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("unknown request", func(t *testing.T) {
		err := inTx(t, pool, func(tx pgx.Tx) error {
			return repo.Update(ctx, tx, &model.ReturnRequest{ID: uuid.New(), Status: model.ReturnStatusApproved})
		})
		assert.ErrorIs(t, err, model.ErrReturnNotFound)
	})

	t.Run("deleting the order removes its returns", func(t *testing.T) {
		err := inTx(t, pool, func(tx pgx.Tx) error {
			_, err := orders.Delete(ctx, tx, order.ID)
			return err
		})
		require.NoError(t, err)

		got, err := repo.ListByOrder(ctx, order.ID)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
