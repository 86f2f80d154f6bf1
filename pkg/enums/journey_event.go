package enums

import "fmt"

// JourneyEvent labels an entry in the patient journey / audit log.
type JourneyEvent string

const (
	JourneyEventClientRegistered  JourneyEvent = "client_registered"
	JourneyEventClientDiscovered  JourneyEvent = "client_discovered"
	JourneyEventOrderCreated      JourneyEvent = "order_created"
	JourneyEventOrderSyncFailed   JourneyEvent = "order_sync_failed"
	JourneyEventOrdersReconciled  JourneyEvent = "orders_reconciled"
	JourneyEventWalletLinked      JourneyEvent = "wallet_linked"
	JourneyEventAdminAction       JourneyEvent = "admin_action"
	JourneyEventKYCStatusChanged  JourneyEvent = "kyc_status_changed"
	JourneyEventShippingUpdated   JourneyEvent = "shipping_updated"
	JourneyEventStrainCatalogSync JourneyEvent = "strain_catalog_synced"
)

var validJourneyEvents = []JourneyEvent{
	JourneyEventClientRegistered,
	JourneyEventClientDiscovered,
	JourneyEventOrderCreated,
	JourneyEventOrderSyncFailed,
	JourneyEventOrdersReconciled,
	JourneyEventWalletLinked,
	JourneyEventAdminAction,
	JourneyEventKYCStatusChanged,
	JourneyEventShippingUpdated,
	JourneyEventStrainCatalogSync,
}

// IsValid reports whether e is a known journey event.
func (e JourneyEvent) IsValid() bool {
	for _, candidate := range validJourneyEvents {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseJourneyEvent converts raw filter input into a JourneyEvent.
func ParseJourneyEvent(value string) (JourneyEvent, error) {
	for _, candidate := range validJourneyEvents {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid journey event %q", value)
}
