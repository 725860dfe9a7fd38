package main

import (
	"context"
	"fmt"
	"log"
)

// SimulatePayment marks an order's pending payment as paid without
// talking to any gateway. Only the order's owner or an admin may do it.
// The payment and order transitions commit together.
func (s *Shop) SimulatePayment(ctx context.Context, orderID int64, actor Actor) (int64, error) {
	if orderID <= 0 {
		return 0, ErrInvalidID
	}

	var op *OrderPayment
	err := s.store.InTx(ctx, func(tx Storage) error {
		var err error
		op, err = tx.GetOrderPayment(ctx, orderID)
		if err != nil {
			return fmt.Errorf("order %d: %w", orderID, err)
		}

		if op.CustomerID != actor.CustomerID && !actor.IsAdmin() {
			return ErrForbidden
		}
		if op.PaymentID == nil {
			return ErrNoPayment
		}
		if op.PaymentStatus != nil && *op.PaymentStatus == PaymentPaid {
			return ErrAlreadyPaid
		}

		ok, err := tx.MarkPaymentPaid(ctx, *op.PaymentID)
		if err != nil {
			return fmt.Errorf("mark payment %d paid: %w", *op.PaymentID, err)
		}
		if !ok {
			return ErrPaymentNotPending
		}

		ok, err = tx.MarkOrderPaid(ctx, orderID)
		if err != nil {
			return fmt.Errorf("mark order %d paid: %w", orderID, err)
		}
		if !ok {
			// a cancelled order keeps its status; the payment still records the money
			log.Printf("order %d was %s, left unchanged by payment", orderID, op.OrderStatus)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.publish(ctx, TopicPaymentPaid, orderID, PaymentPaidEvent{
		OrderID:    orderID,
		PaymentID:  *op.PaymentID,
		CustomerID: op.CustomerID,
		PaidBy:     actor.CustomerID,
	})
	return orderID, nil
}
