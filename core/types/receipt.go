package types

import "github.com/ethereum/go-ethereum/common"

// ReceiptStatus reports whether a transaction took effect.
type ReceiptStatus string

const (
	ReceiptSuccess ReceiptStatus = "success"
	ReceiptFailed  ReceiptStatus = "failed"
)

// Receipt records the outcome of an applied transaction. A failed receipt
// carries no events because the transaction's writes were discarded.
type Receipt struct {
	ID        string            `json:"id"`
	TxHash    common.Hash       `json:"txHash"`
	Kind      TxKind            `json:"kind"`
	Block     uint64            `json:"block"`
	Status    ReceiptStatus     `json:"status"`
	Error     string            `json:"error,omitempty"`
	ErrorKind string            `json:"errorKind,omitempty"`
	Output    map[string]string `json:"output,omitempty"`
	Events    []Event           `json:"events,omitempty"`
}
