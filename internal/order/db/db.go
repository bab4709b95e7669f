package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"ms-checkout/internal/models"
)

// ErrInsufficientInventory is returned when the requested quantity exceeds
// the ticket's remaining inventory at reservation time.
var ErrInsufficientInventory = errors.New("insufficient ticket inventory")

type DB struct {
	Bun *bun.DB
}

// ---------------- READS ----------------

func (d *DB) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("order_id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByPaymentReference finds the order attached to a provider payment
// intent id.
func (d *DB) GetOrderByPaymentReference(ctx context.Context, ref string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("payment_reference = ?", ref).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderBySessionID finds the order attached to a provider checkout session id.
func (d *DB) GetOrderBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("stripe_session_id = ?", sessionID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ActiveQuantityForTicket sums the quantity of pending and confirmed orders
// on a ticket. Orders never leave those two states in this service, so the
// sum is the reserved inventory.
func (d *DB) ActiveQuantityForTicket(ctx context.Context, ticketID string) (int64, error) {
	return activeQuantity(ctx, d.Bun, ticketID)
}

type bunQuerier interface {
	NewSelect() *bun.SelectQuery
}

func activeQuantity(ctx context.Context, q bunQuerier, ticketID string) (int64, error) {
	var reserved int64
	err := q.NewSelect().
		Model((*models.Order)(nil)).
		ColumnExpr("COALESCE(SUM(quantity), 0)").
		Where("ticket_id = ?", ticketID).
		Where("status IN (?)", bun.In([]string{models.OrderStatusPending, models.OrderStatusConfirmed})).
		Scan(ctx, &reserved)
	if err != nil {
		return 0, err
	}
	return reserved, nil
}

// ---------------- WRITES ----------------

// CreateOrderReserving inserts a pending order after re-validating the
// ticket's remaining inventory inside the same transaction. On Postgres the
// ticket row is locked with FOR UPDATE so concurrent checkouts for the same
// ticket serialize; a plain read-then-insert would race and oversell.
func (d *DB) CreateOrderReserving(ctx context.Context, order *models.Order) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		ticketQ := tx.NewSelect().
			Model((*models.Ticket)(nil)).
			Column("total_quantity").
			Where("ticket_id = ?", order.TicketID)
		if d.Bun.Dialect().Name() == dialect.PG {
			// SQLite (tests) is single-writer and has no FOR UPDATE.
			ticketQ = ticketQ.For("UPDATE")
		}

		var total int64
		if err := ticketQ.Scan(ctx, &total); err != nil {
			return err
		}

		reserved, err := activeQuantity(ctx, tx, order.TicketID)
		if err != nil {
			return err
		}

		if order.Quantity > total-reserved {
			return ErrInsufficientInventory
		}

		_, err = tx.NewInsert().Model(order).Exec(ctx)
		return err
	})
}

// AttachPaymentSession records the provider session and payment intent ids on
// a freshly created order.
func (d *DB) AttachPaymentSession(ctx context.Context, orderID, sessionID, paymentRef string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("stripe_session_id = ?", sessionID).
		Set("payment_reference = ?", paymentRef).
		Set("updated_at = ?", time.Now()).
		Where("order_id = ?", orderID).
		Exec(ctx)
	return err
}

// ConfirmOrder moves a pending order to confirmed. The status guard in the
// WHERE clause makes the transition atomic: of any number of concurrent
// callers exactly one sees an affected row, and confirmed_at is written once.
// Returns whether this call performed the transition; an already-confirmed
// order is a no-op, not an error.
func (d *DB) ConfirmOrder(ctx context.Context, orderID string, at time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("status = ?", models.OrderStatusConfirmed).
		Set("confirmed_at = ?", at).
		Set("updated_at = ?", at).
		Where("order_id = ?", orderID).
		Where("status = ?", models.OrderStatusPending).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}
