package database

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrMalformedTx is returned when a transaction is missing a required field.
var ErrMalformedTx = errors.New("malformed transaction")

// =============================================================================

// Tx is the transactional information between two parties. The signature is
// an opaque placeholder and is never verified.
type Tx struct {
	From      string        `json:"from"`                // Name of the party sending the amount.
	To        string        `json:"to"`                  // Name of the party receiving the amount.
	Amount    uint64        `json:"amount"`              // Monetary value moved by this transaction.
	Fee       uint64        `json:"fee"`                 // Fee offered to the miner to include this transaction.
	Signature hexutil.Bytes `json:"signature,omitempty"` // Placeholder signature, 0x prefixed hex on the wire.
}

// NewTx constructs a new transaction.
func NewTx(from string, to string, amount uint64, fee uint64, sig []byte) (Tx, error) {
	tx := Tx{
		From:      from,
		To:        to,
		Amount:    amount,
		Fee:       fee,
		Signature: sig,
	}

	if err := tx.Validate(); err != nil {
		return Tx{}, err
	}

	return tx, nil
}

// Validate performs the structural checks on the transaction. Balances and
// double spends are not checked.
func (tx Tx) Validate() error {
	if tx.From == "" {
		return fmt.Errorf("%w: from is required", ErrMalformedTx)
	}

	if tx.To == "" {
		return fmt.Errorf("%w: to is required", ErrMalformedTx)
	}

	return nil
}

// Equals reports whether two transactions carry the same information.
func (tx Tx) Equals(otherTx Tx) bool {
	return tx.From == otherTx.From &&
		tx.To == otherTx.To &&
		tx.Amount == otherTx.Amount &&
		tx.Fee == otherTx.Fee &&
		bytes.Equal(tx.Signature, otherTx.Signature)
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	return fmt.Sprintf("%s->%s:%d:%d", tx.From, tx.To, tx.Amount, tx.Fee)
}
