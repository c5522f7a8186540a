package market

import (
	"strconv"

	"fytemarket/events"
)

const (
	// EventTypeListed is emitted when a new listing is created.
	EventTypeListed = "market.listed"
	// EventTypeClosed is emitted when a listing leaves the active index.
	EventTypeClosed = "market.closed"
	// EventTypeDeleted is emitted when a listing is tombstoned.
	EventTypeDeleted = "market.deleted"
	// EventTypePurchase is emitted for every settled purchase.
	EventTypePurchase = "market.purchase"
	// EventTypeEdited is emitted when listing fields are replaced.
	EventTypeEdited = "market.edited"
	// EventTypeRoleGranted is emitted when an address joins the role set.
	EventTypeRoleGranted = "market.role_granted"
	// EventTypeRoleRevoked is emitted when an address leaves the role set.
	EventTypeRoleRevoked = "market.role_revoked"
	// EventTypeTokenChanged is emitted when settlement is repointed.
	EventTypeTokenChanged = "market.token_changed"
	// EventTypeWithdrawal is emitted when proceeds move to the owner.
	EventTypeWithdrawal = "market.withdrawal"
)

func listedEvent(id uint64, listingType ListingType) events.Event {
	return events.Event{
		Type: EventTypeListed,
		Attributes: map[string]string{
			"listingId": strconv.FormatUint(id, 10),
			"type":      listingType.String(),
		},
	}
}

func closedEvent(id uint64) events.Event {
	return events.Event{
		Type: EventTypeClosed,
		Attributes: map[string]string{
			"listingId": strconv.FormatUint(id, 10),
		},
	}
}

func deletedEvent(id uint64) events.Event {
	return events.Event{
		Type: EventTypeDeleted,
		Attributes: map[string]string{
			"listingId": strconv.FormatUint(id, 10),
		},
	}
}

func purchaseEvent(id uint64, buyer string, quantity uint64, cost string) events.Event {
	return events.Event{
		Type: EventTypePurchase,
		Attributes: map[string]string{
			"listingId": strconv.FormatUint(id, 10),
			"buyer":     buyer,
			"amount":    strconv.FormatUint(quantity, 10),
			"cost":      cost,
		},
	}
}

func editedEvent(id uint64) events.Event {
	return events.Event{
		Type: EventTypeEdited,
		Attributes: map[string]string{
			"listingId": strconv.FormatUint(id, 10),
		},
	}
}

func roleGrantedEvent(addr string) events.Event {
	return events.Event{
		Type: EventTypeRoleGranted,
		Attributes: map[string]string{
			"address": addr,
		},
	}
}

func roleRevokedEvent(addr string) events.Event {
	return events.Event{
		Type: EventTypeRoleRevoked,
		Attributes: map[string]string{
			"address": addr,
		},
	}
}

func tokenChangedEvent(symbol string) events.Event {
	return events.Event{
		Type: EventTypeTokenChanged,
		Attributes: map[string]string{
			"symbol": symbol,
		},
	}
}

func withdrawalEvent(owner string, amount string) events.Event {
	return events.Event{
		Type: EventTypeWithdrawal,
		Attributes: map[string]string{
			"owner":  owner,
			"amount": amount,
		},
	}
}
