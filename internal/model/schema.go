package model

// Kind names a ClaimingManager event and the record type it produces.
type Kind string

const (
	KindActivationDelaySet Kind = "ActivationDelaySet"
	KindClaimerSet         Kind = "ClaimerSet"
	KindCommissionSet      Kind = "CommissionSet"
	KindPaymentClaimed     Kind = "PaymentClaimed"
	KindPaymentUpdaterSet  Kind = "PaymentUpdaterSet"
	KindRootSubmitted      Kind = "RootSubmitted"
)

// Field maps one decoded event parameter onto a record field.
type Field struct {
	Source string
	Column string
	Type   FieldType
}

// Schema describes how one event kind is turned into a record and stored.
type Schema struct {
	Kind   Kind
	Event  string
	Table  string
	Fields []Field
}

var kindOrder = []Kind{
	KindActivationDelaySet,
	KindClaimerSet,
	KindCommissionSet,
	KindPaymentClaimed,
	KindPaymentUpdaterSet,
	KindRootSubmitted,
}

var schemas = map[Kind]Schema{
	KindActivationDelaySet: {
		Kind:  KindActivationDelaySet,
		Event: "ActivationDelaySet",
		Table: "activation_delay_set",
		Fields: []Field{
			{Source: "oldActivationDelay", Column: "old_activation_delay", Type: TypeUint32},
			{Source: "newActivationDelay", Column: "new_activation_delay", Type: TypeUint32},
		},
	},
	KindClaimerSet: {
		Kind:  KindClaimerSet,
		Event: "ClaimerSet",
		Table: "claimer_set",
		Fields: []Field{
			{Source: "account", Column: "account", Type: TypeAddress},
			{Source: "claimer", Column: "claimer", Type: TypeAddress},
		},
	},
	KindCommissionSet: {
		Kind:  KindCommissionSet,
		Event: "CommissionSet",
		Table: "commission_set",
		Fields: []Field{
			{Source: "operator", Column: "operator", Type: TypeAddress},
			{Source: "avs", Column: "avs", Type: TypeAddress},
			{Source: "commissionBips", Column: "commission_bips", Type: TypeUint16},
		},
	},
	KindPaymentClaimed: {
		Kind:  KindPaymentClaimed,
		Event: "PaymentClaimed",
		Table: "payment_claimed",
		Fields: []Field{
			{Source: "token", Column: "token", Type: TypeAddress},
			{Source: "claimer", Column: "claimer", Type: TypeAddress},
			{Source: "amount", Column: "amount", Type: TypeUint256},
		},
	},
	KindPaymentUpdaterSet: {
		Kind:  KindPaymentUpdaterSet,
		Event: "PaymentUpdaterSet",
		Table: "payment_updater_set",
		Fields: []Field{
			{Source: "oldPaymentUpdater", Column: "old_payment_updater", Type: TypeAddress},
			{Source: "newPaymentUpdater", Column: "new_payment_updater", Type: TypeAddress},
		},
	},
	KindRootSubmitted: {
		Kind:  KindRootSubmitted,
		Event: "RootSubmitted",
		Table: "root_submitted",
		Fields: []Field{
			{Source: "root", Column: "root", Type: TypeBytes32},
			{Source: "paymentsCalculatedUntilTimestamp", Column: "payments_calculated_until_timestamp", Type: TypeUint32},
			{Source: "activatedAfter", Column: "activated_after", Type: TypeUint32},
		},
	},
}

// Kinds returns every record kind in a stable order.
func Kinds() []Kind {
	out := make([]Kind, len(kindOrder))
	copy(out, kindOrder)
	return out
}

// SchemaFor returns the schema registered for kind.
func SchemaFor(kind Kind) (Schema, bool) {
	s, ok := schemas[kind]
	return s, ok
}

// Schemas returns all schemas in the order of Kinds.
func Schemas() []Schema {
	out := make([]Schema, 0, len(kindOrder))
	for _, kind := range kindOrder {
		out = append(out, schemas[kind])
	}
	return out
}

// KindForEvent resolves an ABI event name to a record kind.
func KindForEvent(event string) (Kind, bool) {
	for _, kind := range kindOrder {
		if schemas[kind].Event == event {
			return kind, true
		}
	}
	return "", false
}
