package model

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ActivationDelaySet is emitted when the root activation delay changes.
type ActivationDelaySet struct {
	ID                 RecordID `json:"id" mapstructure:"id"`
	OldActivationDelay uint32   `json:"old_activation_delay" mapstructure:"oldActivationDelay"`
	NewActivationDelay uint32   `json:"new_activation_delay" mapstructure:"newActivationDelay"`
	Provenance         `mapstructure:",squash"`
}

// ClaimerSet is emitted when an account delegates claiming to another address.
type ClaimerSet struct {
	ID         RecordID       `json:"id" mapstructure:"id"`
	Account    common.Address `json:"account" mapstructure:"account"`
	Claimer    common.Address `json:"claimer" mapstructure:"claimer"`
	Provenance `mapstructure:",squash"`
}

// CommissionSet is emitted when an operator sets its commission for an AVS.
type CommissionSet struct {
	ID             RecordID       `json:"id" mapstructure:"id"`
	Operator       common.Address `json:"operator" mapstructure:"operator"`
	AVS            common.Address `json:"avs" mapstructure:"avs"`
	CommissionBips uint16         `json:"commission_bips" mapstructure:"commissionBips"`
	Provenance     `mapstructure:",squash"`
}

// PaymentClaimed is emitted for every token amount paid out to a claimer.
type PaymentClaimed struct {
	ID         RecordID       `json:"id" mapstructure:"id"`
	Token      common.Address `json:"token" mapstructure:"token"`
	Claimer    common.Address `json:"claimer" mapstructure:"claimer"`
	Amount     *big.Int       `json:"amount" mapstructure:"amount"`
	Provenance `mapstructure:",squash"`
}

// PaymentUpdaterSet is emitted when the root submitter role moves.
type PaymentUpdaterSet struct {
	ID                RecordID       `json:"id" mapstructure:"id"`
	OldPaymentUpdater common.Address `json:"old_payment_updater" mapstructure:"oldPaymentUpdater"`
	NewPaymentUpdater common.Address `json:"new_payment_updater" mapstructure:"newPaymentUpdater"`
	Provenance        `mapstructure:",squash"`
}

// RootSubmitted is emitted when a new payments merkle root is posted.
type RootSubmitted struct {
	ID                               RecordID    `json:"id" mapstructure:"id"`
	Root                             common.Hash `json:"root" mapstructure:"root"`
	PaymentsCalculatedUntilTimestamp uint32      `json:"payments_calculated_until_timestamp" mapstructure:"paymentsCalculatedUntilTimestamp"`
	ActivatedAfter                   uint32      `json:"activated_after" mapstructure:"activatedAfter"`
	Provenance                       `mapstructure:",squash"`
}

// NewTyped returns a pointer to the zero typed struct for kind.
func NewTyped(kind Kind) (interface{}, error) {
	switch kind {
	case KindActivationDelaySet:
		return &ActivationDelaySet{}, nil
	case KindClaimerSet:
		return &ClaimerSet{}, nil
	case KindCommissionSet:
		return &CommissionSet{}, nil
	case KindPaymentClaimed:
		return &PaymentClaimed{}, nil
	case KindPaymentUpdaterSet:
		return &PaymentUpdaterSet{}, nil
	case KindRootSubmitted:
		return &RootSubmitted{}, nil
	default:
		return nil, fmt.Errorf("unknown record kind: %s", kind)
	}
}
