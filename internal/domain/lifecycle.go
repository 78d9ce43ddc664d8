// Package domain holds the marketplace rules that do not depend on storage:
// order item status transitions and their stock effect, cart clamping,
// checkout snapshots and review eligibility.
package domain

import (
	"handcrafted-haven/internal/apperr"
	"handcrafted-haven/internal/models"
)

// StockEffect is the inventory change a status transition requires.
type StockEffect int

const (
	StockNone StockEffect = iota
	StockDecrement
	StockRestore
)

func (e StockEffect) String() string {
	switch e {
	case StockDecrement:
		return "decrement"
	case StockRestore:
		return "restore"
	}
	return "none"
}

// Delta is the signed change to stock_quantity for an item of qty units.
func (e StockEffect) Delta(qty int) int {
	switch e {
	case StockDecrement:
		return -qty
	case StockRestore:
		return qty
	}
	return 0
}

var progress = map[models.OrderStatus]int{
	models.OrderStatusPending:    0,
	models.OrderStatusProcessing: 1,
	models.OrderStatusShipped:    2,
	models.OrderStatusDelivered:  3,
}

// IsAccepted reports whether stock has already been taken for an item in s.
func IsAccepted(s models.OrderStatus) bool {
	switch s {
	case models.OrderStatusProcessing, models.OrderStatusShipped, models.OrderStatusDelivered:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed from s.
func IsTerminal(s models.OrderStatus) bool {
	return s == models.OrderStatusDelivered || s == models.OrderStatusCancelled
}

// PlanTransition validates from → to and returns the stock effect it carries.
//
// Crossing out of pending into any accepted status takes stock; cancelling an
// accepted item gives it back. Progress only moves forward and delivered and
// cancelled items never move again.
func PlanTransition(from, to models.OrderStatus) (StockEffect, error) {
	if !to.Valid() {
		return StockNone, apperr.Validation("unknown status %q", to)
	}
	if from == to {
		return StockNone, apperr.Validation("order item is already %s", to)
	}
	if IsTerminal(from) {
		return StockNone, apperr.Validation("order item is %s and cannot change", from)
	}

	if to == models.OrderStatusCancelled {
		if IsAccepted(from) {
			return StockRestore, nil
		}
		return StockNone, nil
	}

	if progress[to] < progress[from] {
		return StockNone, apperr.Validation("order item cannot move from %s back to %s", from, to)
	}
	if from == models.OrderStatusPending {
		return StockDecrement, nil
	}
	return StockNone, nil
}

// DeriveOrderStatus computes the parent order status from its item statuses:
// cancelled when every item is cancelled, otherwise the least advanced status
// among the remaining items.
func DeriveOrderStatus(items []models.OrderStatus) models.OrderStatus {
	derived := models.OrderStatusCancelled
	found := false
	for _, s := range items {
		if s == models.OrderStatusCancelled {
			continue
		}
		if !found || progress[s] < progress[derived] {
			derived = s
			found = true
		}
	}
	if len(items) == 0 {
		return models.OrderStatusPending
	}
	return derived
}
