package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ShipmentStatuses is the closed set an admin may assign. Any status may
// follow any other so mistakes can be corrected by hand.
var ShipmentStatuses = []string{
	"pending",
	"shipped",
	"out_for_delivery",
	"delivered",
	"returned",
	"lost",
}

func validShipmentStatus(status string) bool {
	for _, s := range ShipmentStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// ShipmentUpdate is the admin shipment payload. Status falls back to
// ShipmentStatus, then to "pending"; empty tracking code and carrier are
// stored as NULL.
type ShipmentUpdate struct {
	Status         string `json:"status"`
	ShipmentStatus string `json:"shipment_status"`
	TrackingCode   string `json:"tracking_code"`
	Carrier        string `json:"carrier"`
}

func (u ShipmentUpdate) status() string {
	st := u.Status
	if st == "" {
		st = u.ShipmentStatus
	}
	if st == "" {
		st = "pending"
	}
	return strings.TrimSpace(st)
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// UpsertShipment updates the order's shipment in place, or creates it when
// the order has none yet. The bool reports whether a row was created.
func (s *Shop) UpsertShipment(ctx context.Context, orderID int64, u ShipmentUpdate) (*Shipment, bool, error) {
	if orderID <= 0 {
		return nil, false, ErrInvalidID
	}
	status := u.status()
	if !validShipmentStatus(status) {
		return nil, false, fmt.Errorf("%w %q, allowed: %s", ErrInvalidShipmentStatus, status, strings.Join(ShipmentStatuses, ", "))
	}

	var (
		sh      *Shipment
		created bool
	)
	err := s.store.InTx(ctx, func(tx Storage) error {
		if _, err := tx.GetOrder(ctx, orderID); err != nil {
			return fmt.Errorf("order %d: %w", orderID, err)
		}

		existing, err := tx.GetShipment(ctx, orderID)
		if errors.Is(err, ErrNotFound) {
			sh = &Shipment{
				OrderID:      orderID,
				Status:       status,
				TrackingCode: optional(u.TrackingCode),
				Carrier:      optional(u.Carrier),
			}
			inserted, err := tx.InsertShipment(ctx, sh)
			if err != nil {
				return fmt.Errorf("insert shipment: %w", err)
			}
			if inserted {
				created = true
				return nil
			}
			// a concurrent request created it first; update that row
			existing, err = tx.GetShipment(ctx, orderID)
			if err != nil {
				return fmt.Errorf("load shipment: %w", err)
			}
		} else if err != nil {
			return fmt.Errorf("load shipment: %w", err)
		}

		existing.Status = status
		existing.TrackingCode = optional(u.TrackingCode)
		existing.Carrier = optional(u.Carrier)
		if err := tx.UpdateShipment(ctx, existing); err != nil {
			return fmt.Errorf("update shipment %d: %w", existing.ID, err)
		}
		sh = existing
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	s.publish(ctx, TopicShipmentUpdated, orderID, ShipmentUpdatedEvent{
		OrderID:      orderID,
		ShipmentID:   sh.ID,
		Status:       sh.Status,
		TrackingCode: sh.TrackingCode,
		Carrier:      sh.Carrier,
	})
	return sh, created, nil
}
