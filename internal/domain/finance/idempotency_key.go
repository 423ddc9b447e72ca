package finance

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/erp/bankrecon/internal/domain/shared"
	"github.com/google/uuid"
)

const (
	keyNamespace    = "BANK"
	keySeparator    = ":"
	keyInvoiceMark  = "F"
	keyCreditMarker = "ANTICIPO"
)

// KeyTargetKind distinguishes invoice allocations from the credit entry
type KeyTargetKind string

const (
	KeyTargetInvoice KeyTargetKind = "INVOICE"
	KeyTargetCredit  KeyTargetKind = "CREDIT"
)

// KeyTarget is the last component of an idempotency key.
// InvoiceID is informational; it is not part of the string form.
type KeyTarget struct {
	Kind      KeyTargetKind
	InvoiceID uuid.UUID
}

// InvoiceKeyTarget targets an invoice allocation
func InvoiceKeyTarget(invoiceID uuid.UUID) KeyTarget {
	return KeyTarget{Kind: KeyTargetInvoice, InvoiceID: invoiceID}
}

// CreditKeyTarget targets the movement's credit entry
func CreditKeyTarget() KeyTarget {
	return KeyTarget{Kind: KeyTargetCredit}
}

// IdempotencyKey identifies one allocation step of one movement.
// Credit keys always carry ordinal 0 since a movement yields at most one credit.
type IdempotencyKey struct {
	MovementID uuid.UUID
	Ordinal    int
	Target     KeyTarget
}

// KeyForInvoice builds the key of the n-th invoice allocation (1-based)
func KeyForInvoice(movementID uuid.UUID, ordinal int, invoiceID uuid.UUID) IdempotencyKey {
	return IdempotencyKey{MovementID: movementID, Ordinal: ordinal, Target: InvoiceKeyTarget(invoiceID)}
}

// KeyForCredit builds the key of the movement's credit entry
func KeyForCredit(movementID uuid.UUID) IdempotencyKey {
	return IdempotencyKey{MovementID: movementID, Target: CreditKeyTarget()}
}

// IsCredit returns true for the credit entry key
func (k IdempotencyKey) IsCredit() bool {
	return k.Target.Kind == KeyTargetCredit
}

// String renders the storage form, e.g. BANK:<id>:F1 or BANK:<id>:ANTICIPO
func (k IdempotencyKey) String() string {
	prefix := NewMovementKeyPrefix(k.MovementID).String()
	if k.IsCredit() {
		return prefix + keyCreditMarker
	}
	return prefix + keyInvoiceMark + strconv.Itoa(k.Ordinal)
}

// ParseIdempotencyKey reads the storage form back into a structured key.
// The invoice ID of an invoice key is not recoverable and is left as uuid.Nil.
func ParseIdempotencyKey(s string) (IdempotencyKey, error) {
	parts := strings.Split(s, keySeparator)
	if len(parts) != 3 || parts[0] != keyNamespace {
		return IdempotencyKey{}, invalidKey(s)
	}
	movementID, err := uuid.Parse(parts[1])
	if err != nil {
		return IdempotencyKey{}, invalidKey(s)
	}

	last := parts[2]
	if last == keyCreditMarker {
		return KeyForCredit(movementID), nil
	}
	if !strings.HasPrefix(last, keyInvoiceMark) {
		return IdempotencyKey{}, invalidKey(s)
	}
	ordinal, err := strconv.Atoi(strings.TrimPrefix(last, keyInvoiceMark))
	if err != nil || ordinal < 1 {
		return IdempotencyKey{}, invalidKey(s)
	}
	return KeyForInvoice(movementID, ordinal, uuid.Nil), nil
}

func invalidKey(s string) error {
	return shared.NewDomainError(shared.CodeInvalidArguments, fmt.Sprintf("malformed idempotency key %q", s))
}

// MovementKeyPrefix is the common prefix of every key a movement produces
type MovementKeyPrefix struct {
	movementID uuid.UUID
}

// NewMovementKeyPrefix creates the prefix for a movement
func NewMovementKeyPrefix(movementID uuid.UUID) MovementKeyPrefix {
	return MovementKeyPrefix{movementID: movementID}
}

// MovementID returns the movement the prefix belongs to
func (p MovementKeyPrefix) MovementID() uuid.UUID {
	return p.movementID
}

// String renders BANK:<id>: including the trailing separator, so that
// one movement's prefix can never match another movement's keys.
func (p MovementKeyPrefix) String() string {
	return keyNamespace + keySeparator + p.movementID.String() + keySeparator
}

// Matches reports whether the stored key belongs to this movement
func (p MovementKeyPrefix) Matches(key string) bool {
	parsed, err := ParseIdempotencyKey(key)
	return err == nil && parsed.MovementID == p.movementID
}
