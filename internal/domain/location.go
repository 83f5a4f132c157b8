package domain

import (
	"fmt"
	"strings"
)

// WarehouseName is the display name of the central warehouse, which is a
// distinguished location rather than a Store record.
const WarehouseName = "Warehouse"

// Location is the closed set of places a product quantity is tracked:
// the central warehouse or one named store branch.
type Location struct {
	storeID string
}

func Warehouse() Location {
	return Location{}
}

func StoreLocation(storeID string) Location {
	return Location{storeID: storeID}
}

func (l Location) IsWarehouse() bool {
	return l.storeID == ""
}

func (l Location) StoreID() string {
	return l.storeID
}

// CollectionPath renders the location as the logical collection path the
// activity log records for additions: "products" for the warehouse,
// "stores/{storeId}/products" for a store branch.
func (l Location) CollectionPath() string {
	if l.IsWarehouse() {
		return "products"
	}
	return fmt.Sprintf("stores/%s/products", l.storeID)
}

// ParseLocationPath is the inverse of CollectionPath, used when replaying
// an activity log entry.
func ParseLocationPath(path string) (Location, error) {
	if path == "products" {
		return Warehouse(), nil
	}
	rest, ok := strings.CutPrefix(path, "stores/")
	if !ok {
		return Location{}, fmt.Errorf("unrecognized location path %q", path)
	}
	storeID, ok := strings.CutSuffix(rest, "/products")
	if !ok || storeID == "" || strings.Contains(storeID, "/") {
		return Location{}, fmt.Errorf("unrecognized location path %q", path)
	}
	return StoreLocation(storeID), nil
}
