package gateway

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MockCall records one outbound request made through the Mock so tests can
// assert on what would have gone over the wire.
type MockCall struct {
	Op          string
	Reference   string
	References  []string
	Amount      *decimal.Decimal
	Description string
}

// Mock is the simulated gateway mode: it serves caller-supplied canned
// snapshots without network access and enforces the same argument contract
// as the live client.
type Mock struct {
	Snapshots map[string]TransactionSnapshot

	// Err, when set, is returned from every call, simulating a transport
	// failure.
	Err error

	CreateResponse *PaymentResponse
	RefundResponse *TransactionSnapshot

	Calls []MockCall
}

func NewMock() *Mock {
	return &Mock{Snapshots: map[string]TransactionSnapshot{}}
}

func (m *Mock) record(call MockCall) {
	m.Calls = append(m.Calls, call)
}

func (m *Mock) CreatePayment(req PaymentRequest) (*PaymentResponse, error) {
	m.record(MockCall{Op: "create", Description: req.Description})
	if m.Err != nil {
		return nil, m.Err
	}
	if m.CreateResponse == nil {
		return nil, &Error{Message: "mock: no create response configured"}
	}
	return m.CreateResponse, nil
}

func (m *Mock) GetTransaction(reference string) (*TransactionSnapshot, error) {
	if reference == "" {
		return nil, ErrMissingReference
	}
	m.record(MockCall{Op: "get", Reference: reference})
	if m.Err != nil {
		return nil, m.Err
	}
	snapshot, ok := m.Snapshots[reference]
	if !ok {
		return nil, &Error{StatusCode: 404, Message: fmt.Sprintf("mock: unknown reference %s", reference)}
	}
	snapshot.Normalize()
	return &snapshot, nil
}

func (m *Mock) GetTransactions(references []string) ([]TransactionSnapshot, error) {
	if len(references) == 0 {
		return nil, ErrMissingReferences
	}
	m.record(MockCall{Op: "getMany", References: references})
	if m.Err != nil {
		return nil, m.Err
	}
	var snapshots []TransactionSnapshot
	for _, ref := range references {
		if snapshot, ok := m.Snapshots[ref]; ok {
			snapshot.Normalize()
			snapshots = append(snapshots, snapshot)
		}
	}
	return snapshots, nil
}

func (m *Mock) Refund(reference string, amount *decimal.Decimal, description string) (*TransactionSnapshot, error) {
	if reference == "" {
		return nil, ErrMissingReference
	}
	m.record(MockCall{Op: "refund", Reference: reference, Amount: amount, Description: description})
	if m.Err != nil {
		return nil, m.Err
	}
	if m.RefundResponse == nil {
		return nil, &Error{Message: "mock: no refund response configured"}
	}
	return m.RefundResponse, nil
}

func (m *Mock) Reverse(reference string, description string) (*TransactionSnapshot, error) {
	if reference == "" {
		return nil, ErrMissingReference
	}
	m.record(MockCall{Op: "reverse", Reference: reference, Description: description})
	if m.Err != nil {
		return nil, m.Err
	}
	if m.RefundResponse == nil {
		return nil, &Error{Message: "mock: no reversal response configured"}
	}
	return m.RefundResponse, nil
}

func (m *Mock) Cancel(reference string) (*TransactionSnapshot, error) {
	if reference == "" {
		return nil, ErrMissingReference
	}
	m.record(MockCall{Op: "cancel", Reference: reference})
	if m.Err != nil {
		return nil, m.Err
	}
	snapshot, ok := m.Snapshots[reference]
	if !ok {
		return nil, &Error{StatusCode: 404, Message: fmt.Sprintf("mock: unknown reference %s", reference)}
	}
	snapshot.Status = StatusFailed
	snapshot.FailureCode = "cancelled"
	return &snapshot, nil
}

var _ Gateway = (*Mock)(nil)
