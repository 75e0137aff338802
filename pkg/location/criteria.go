package location

// Accuracy is the accuracy class a provider must satisfy.
type Accuracy int

const (
	AccuracyFine Accuracy = iota + 1
	AccuracyCoarse
)

// Power is the power class a provider may consume.
type Power int

const (
	PowerLow Power = iota + 1
	PowerMedium
	PowerHigh
)

// Criteria is the selection input handed to a Registry.
type Criteria struct {
	Accuracy    Accuracy
	Power       Power
	CostAllowed bool
}

// CriteriaFor maps a priority onto provider selection criteria using a fixed table.
// Unknown priorities are treated like PriorityLowPower.
func CriteriaFor(priority Priority) Criteria {
	criteria := Criteria{CostAllowed: true}
	switch priority {
	case PriorityHighAccuracy:
		criteria.Accuracy, criteria.Power = AccuracyFine, PowerHigh
	case PriorityBalancedPowerAccuracy:
		criteria.Accuracy, criteria.Power = AccuracyFine, PowerMedium
	default:
		criteria.Accuracy, criteria.Power = AccuracyCoarse, PowerLow
	}
	return criteria
}
