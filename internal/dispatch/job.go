// Package dispatch serializes print jobs onto the printer
package dispatch

import (
	"fmt"
	"time"

	"github.com/thereceipt/escpos-driver/internal/layout"
)

// Kind selects the job handler
type Kind int

const (
	Receipt Kind = iota
	XMLReceipt
	Cashbox
	PrintStatus
	StatusPing
)

func (k Kind) String() string {
	switch k {
	case Receipt:
		return "receipt"
	case XMLReceipt:
		return "xml_receipt"
	case Cashbox:
		return "cashbox"
	case PrintStatus:
		return "print_status"
	case StatusPing:
		return "status"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Payload is the kind-specific job data. Cashbox, PrintStatus and
// StatusPing jobs carry none.
type Payload interface {
	isPayload()
}

// ReceiptPayload is the data of a Receipt job
type ReceiptPayload struct {
	Receipt *layout.Receipt
}

// XMLPayload is the data of an XMLReceipt job
type XMLPayload struct {
	Document string
}

func (ReceiptPayload) isPayload() {}
func (XMLPayload) isPayload()     {}

// Job is one unit of work. It is immutable once enqueued.
type Job struct {
	EnqueuedAt time.Time
	Kind       Kind
	Payload    Payload
}
