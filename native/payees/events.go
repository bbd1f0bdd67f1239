package payees

import (
	"encoding/hex"
	"strconv"

	"unitfarm/core/events"
	"unitfarm/core/types"
)

const (
	// EventTypeDeposit is emitted when fees are apportioned among payees.
	EventTypeDeposit = "payees.deposit"
	// EventTypeWithdraw is emitted when a payee collects its balance.
	EventTypeWithdraw = "payees.withdraw"
)

type eventEnvelope struct {
	evt *types.Event
}

func (e eventEnvelope) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e eventEnvelope) Event() *types.Event { return e.evt }

// DepositEvent records a fee deposit.
func DepositEvent(from string, amount string, assigned string, dust string, ts int64) *types.Event {
	return &types.Event{
		Type: EventTypeDeposit,
		Attributes: map[string]string{
			"from":      from,
			"amount":    amount,
			"assigned":  assigned,
			"dust":      dust,
			"timestamp": strconv.FormatInt(ts, 10),
		},
	}
}

// WithdrawEvent records a payee withdrawal.
func WithdrawEvent(payee string, amount string, ts int64) *types.Event {
	return &types.Event{
		Type: EventTypeWithdraw,
		Attributes: map[string]string{
			"payee":     payee,
			"amount":    amount,
			"timestamp": strconv.FormatInt(ts, 10),
		},
	}
}

func wrap(evt *types.Event) events.Event { return eventEnvelope{evt: evt} }

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}
