package converter

// Operator is one of the expression operators that can be rewritten into a
// query predicate.
type Operator uint8

// Recognized operators. Any other tag parses as OpUnknown.
const (
	OpUnknown Operator = iota
	OpEq
	OpGt
	OpGte
	OpLt
	OpLte
	OpIn
	OpAnd
	OpOr
)

var operatorTags = [...]string{
	OpUnknown: "",
	OpEq:      "$eq",
	OpGt:      "$gt",
	OpGte:     "$gte",
	OpLt:      "$lt",
	OpLte:     "$lte",
	OpIn:      "$in",
	OpAnd:     "$and",
	OpOr:      "$or",
}

// ParseOperator returns the operator spelled by tag. Tags are case sensitive.
func ParseOperator(tag string) (Operator, bool) {
	switch tag {
	case "$eq":
		return OpEq, true
	case "$gt":
		return OpGt, true
	case "$gte":
		return OpGte, true
	case "$lt":
		return OpLt, true
	case "$lte":
		return OpLte, true
	case "$in":
		return OpIn, true
	case "$and":
		return OpAnd, true
	case "$or":
		return OpOr, true
	}
	return OpUnknown, false
}

// String returns the operator tag, such as "$gte".
func (o Operator) String() string {
	if int(o) >= len(operatorTags) {
		return ""
	}
	return operatorTags[o]
}

// IsLogical reports whether o combines sub-conditions.
func (o Operator) IsLogical() bool {
	return o == OpAnd || o == OpOr
}

// IsOrdering reports whether o is one of the range comparisons.
func (o Operator) IsOrdering() bool {
	return o >= OpGt && o <= OpLte
}
