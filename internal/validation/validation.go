// Package validation checks predict inputs against the ranges the deployed
// model was trained on. Values outside these bounds are not invalid numbers,
// they are customers the model has never seen; rejecting them up front keeps
// nonsense assignments out of the predictions log.
package validation

// Bounds for each input, inclusive on both ends.
const (
	IncomeMin   = 10000
	IncomeMax   = 120000
	AgeMin      = 18
	AgeMax      = 100
	SpendingMin = 0
	SpendingMax = 5000
	RecencyMin  = 0
	RecencyMax  = 120
)

// Check validates the four inputs in a fixed order and returns the first
// failing check's message verbatim. ok is true when all checks pass.
// Pure function, no I/O.
func Check(income float64, age int, spending float64, recency int) (msg string, ok bool) {
	if income < IncomeMin || income > IncomeMax {
		return "Income should be between 10,000 and 120,000.", false
	}
	if age < AgeMin || age > AgeMax {
		return "Age must be between 18 and 100.", false
	}
	if spending < SpendingMin || spending > SpendingMax {
		return "Total spending should be between 0 and 5,000.", false
	}
	if recency < RecencyMin || recency > RecencyMax {
		return "Recency should be between 0 and 120 days.", false
	}
	return "", true
}
