package enums

import "fmt"

// ProductionOrderStatus is a strictly linear sequence.
type ProductionOrderStatus string

const (
	ProductionOrderStatusPending      ProductionOrderStatus = "PENDING"
	ProductionOrderStatusInProduction ProductionOrderStatus = "IN_PRODUCTION"
	ProductionOrderStatusCompleted    ProductionOrderStatus = "COMPLETED"
	ProductionOrderStatusShipped      ProductionOrderStatus = "SHIPPED"
	ProductionOrderStatusDelivered    ProductionOrderStatus = "DELIVERED"
)

var productionOrderSequence = []ProductionOrderStatus{
	ProductionOrderStatusPending,
	ProductionOrderStatusInProduction,
	ProductionOrderStatusCompleted,
	ProductionOrderStatusShipped,
	ProductionOrderStatusDelivered,
}

func (s ProductionOrderStatus) IsValid() bool {
	for _, candidate := range productionOrderSequence {
		if candidate == s {
			return true
		}
	}
	return false
}

// Next returns the unique successor. ok is false for DELIVERED and unknown values.
func (s ProductionOrderStatus) Next() (ProductionOrderStatus, bool) {
	for i, candidate := range productionOrderSequence {
		if candidate == s && i+1 < len(productionOrderSequence) {
			return productionOrderSequence[i+1], true
		}
	}
	return "", false
}

func ParseProductionOrderStatus(value string) (ProductionOrderStatus, error) {
	for _, candidate := range productionOrderSequence {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid production order status %q", value)
}
