package domain

import "time"

const (
	ActivityAddition = "ADDITION"
	ActivityTransfer = "TRANSFER"
)

// ActivityLog is the append-only record of one quantity-affecting
// operation, carrying enough data to reverse it. Entries are written by
// the ledger inside the same transaction as the mutation they describe,
// and only the undo engine ever flips Undone, exactly once.
type ActivityLog struct {
	ID   string
	Type string

	// ADDITION fields.
	ProductID string
	Path      string

	// TRANSFER fields.
	WarehouseProductID string
	StoreProductID     string
	StoreID            string

	Name         string
	Quantity     int
	LocationName string
	ActorID      string
	Undone       bool
	Timestamp    time.Time
}

func NewAdditionLog(productID string, location Location, name string, quantity int, locationName, actorID string) ActivityLog {
	return ActivityLog{
		Type:         ActivityAddition,
		ProductID:    productID,
		Path:         location.CollectionPath(),
		Name:         name,
		Quantity:     quantity,
		LocationName: locationName,
		ActorID:      actorID,
	}
}

func NewTransferLog(warehouseProductID, storeProductID, storeID, name string, quantity int, locationName, actorID string) ActivityLog {
	return ActivityLog{
		Type:               ActivityTransfer,
		WarehouseProductID: warehouseProductID,
		StoreProductID:     storeProductID,
		StoreID:            storeID,
		Name:               name,
		Quantity:           quantity,
		LocationName:       locationName,
		ActorID:            actorID,
	}
}
