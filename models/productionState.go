package models

import (
	"errors"
	"fmt"
)

var ErrInvalidTransition = errors.New("invalid production state transition")

// ProductionState is the lifecycle of a production doc across the local store,
// the invoicing service and the ERP. It is derived from which fields are populated.
type ProductionState int

const (
	ProductionStateImported ProductionState = iota
	ProductionStateClassified
	ProductionStateRegistered
	ProductionStateProduced
	ProductionStateIssued
	ProductionStateValued
	ProductionStateDispatched
)

func (s ProductionState) String() string {
	switch s {
	case ProductionStateImported:
		return "imported"
	case ProductionStateClassified:
		return "classified"
	case ProductionStateRegistered:
		return "registered"
	case ProductionStateProduced:
		return "produced"
	case ProductionStateIssued:
		return "issued"
	case ProductionStateValued:
		return "valued"
	case ProductionStateDispatched:
		return "dispatched"
	default:
		return "unknown"
	}
}

// State reports the furthest lifecycle stage the doc has reached.
func (d *ProductionDoc) State() ProductionState {
	switch {
	case d.PwFakturowniaId != nil:
		return ProductionStateDispatched
	case d.ValuedAt != nil:
		return ProductionStateValued
	case d.isIssued():
		return ProductionStateIssued
	case d.StatusCheckedAt != nil:
		return ProductionStateProduced
	case d.OdooId != nil:
		return ProductionStateRegistered
	case d.ClassifiedAt != nil:
		return ProductionStateClassified
	default:
		return ProductionStateImported
	}
}

func (d *ProductionDoc) isIssued() bool {
	return d.Number != nil && d.Rw != nil && d.Rw.FakturowniaId != nil && d.Rw.OdooId != nil
}

// RequireState fails with ErrInvalidTransition when the doc has not reached min yet.
func (d *ProductionDoc) RequireState(min ProductionState) error {
	if state := d.State(); state < min {
		return fmt.Errorf("%w: doc %s is %s, needs %s", ErrInvalidTransition, d.OrderNumber, state, min)
	}
	return nil
}
