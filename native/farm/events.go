package farm

import (
	"strconv"

	"unitfarm/core/events"
	"unitfarm/core/types"
)

const (
	// EventTypeBootstrap is emitted once when the market opens.
	EventTypeBootstrap = "farm.bootstrap"
	// EventTypeBuy is emitted after a purchase settles.
	EventTypeBuy = "farm.buy"
	// EventTypeCompound is emitted when units convert into producers.
	EventTypeCompound = "farm.compound"
	// EventTypeSell is emitted after a redemption pays out.
	EventTypeSell = "farm.sell"
	// EventTypeReferralBound is emitted the first time a referrer is recorded.
	EventTypeReferralBound = "farm.referral.bound"
	// EventTypeReferralRewarded is emitted whenever a referrer is credited.
	EventTypeReferralRewarded = "farm.referral.rewarded"
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

// WrapEvent converts a raw event payload into the emitter-friendly envelope.
func WrapEvent(evt *types.Event) events.Event { return eventEnvelope{evt: evt} }

func stamp(ts int64) string { return strconv.FormatInt(ts, 10) }

// BootstrapEvent announces the market opening.
func BootstrapEvent(admin string, poolUnits string, ts int64) *types.Event {
	return &types.Event{
		Type: EventTypeBootstrap,
		Attributes: map[string]string{
			"admin":     admin,
			"poolUnits": poolUnits,
			"timestamp": stamp(ts),
		},
	}
}

// BuyEvent captures a settled purchase.
func BuyEvent(account string, referrer string, paid string, fee string, units string, ts int64) *types.Event {
	return &types.Event{
		Type: EventTypeBuy,
		Attributes: map[string]string{
			"account":   account,
			"referrer":  referrer,
			"paid":      paid,
			"fee":       fee,
			"units":     units,
			"timestamp": stamp(ts),
		},
	}
}

// CompoundEvent captures a conversion of units into producers.
func CompoundEvent(account string, units string, newProducers string, producers string, boost string, ts int64) *types.Event {
	return &types.Event{
		Type: EventTypeCompound,
		Attributes: map[string]string{
			"account":      account,
			"units":        units,
			"newProducers": newProducers,
			"producers":    producers,
			"marketBoost":  boost,
			"timestamp":    stamp(ts),
		},
	}
}

// SellEvent captures a redemption.
func SellEvent(account string, units string, gross string, fee string, payout string, ts int64) *types.Event {
	return &types.Event{
		Type: EventTypeSell,
		Attributes: map[string]string{
			"account":   account,
			"units":     units,
			"gross":     gross,
			"fee":       fee,
			"payout":    payout,
			"timestamp": stamp(ts),
		},
	}
}

// ReferralBoundEvent records the first binding of a referrer.
func ReferralBoundEvent(account string, referrer string, ts int64) *types.Event {
	return &types.Event{
		Type: EventTypeReferralBound,
		Attributes: map[string]string{
			"account":   account,
			"referrer":  referrer,
			"timestamp": stamp(ts),
		},
	}
}

// ReferralRewardedEvent records units credited to a referrer.
func ReferralRewardedEvent(referrer string, account string, units string, ts int64) *types.Event {
	return &types.Event{
		Type: EventTypeReferralRewarded,
		Attributes: map[string]string{
			"referrer":  referrer,
			"account":   account,
			"units":     units,
			"timestamp": stamp(ts),
		},
	}
}
