package query

import (
	"fmt"
	"strings"

	"github.com/crimson-games/bakuretsu/internal/orm/dialect"
)

// Operator represents a comparison operator
type Operator int

const (
	OpEqual Operator = iota
	OpNotEqual
	OpGreaterThan
	OpGreaterThanOrEqual
	OpLessThan
	OpLessThanOrEqual
	OpIn
	OpNotIn
	OpLike
	OpIsNull
	OpIsNotNull
	OpBetween
)

// String returns the string representation of the operator
func (o Operator) String() string {
	switch o {
	case OpEqual:
		return "="
	case OpNotEqual:
		return "<>"
	case OpGreaterThan:
		return ">"
	case OpGreaterThanOrEqual:
		return ">="
	case OpLessThan:
		return "<"
	case OpLessThanOrEqual:
		return "<="
	case OpIn:
		return "IN"
	case OpNotIn:
		return "NOT IN"
	case OpLike:
		return "LIKE"
	case OpIsNull:
		return "IS NULL"
	case OpIsNotNull:
		return "IS NOT NULL"
	case OpBetween:
		return "BETWEEN"
	default:
		return "UNKNOWN"
	}
}

// ParseOperator parses the SQL spelling of an operator, as typed on the
// command line
func ParseOperator(s string) (Operator, error) {
	switch strings.ToUpper(strings.Join(strings.Fields(s), " ")) {
	case "=", "==":
		return OpEqual, nil
	case "!=", "<>":
		return OpNotEqual, nil
	case ">":
		return OpGreaterThan, nil
	case ">=":
		return OpGreaterThanOrEqual, nil
	case "<":
		return OpLessThan, nil
	case "<=":
		return OpLessThanOrEqual, nil
	case "IN":
		return OpIn, nil
	case "NOT IN":
		return OpNotIn, nil
	case "LIKE":
		return OpLike, nil
	case "IS NULL":
		return OpIsNull, nil
	case "IS NOT NULL":
		return OpIsNotNull, nil
	case "BETWEEN":
		return OpBetween, nil
	}
	return 0, fmt.Errorf("unsupported operator: %q", s)
}

// Condition represents a WHERE condition. Raw conditions carry their own
// SQL fragment and arguments instead of a column comparison.
type Condition struct {
	Column   string
	Operator Operator
	Value    any

	Raw  string
	Args []any
}

// toSQL renders the condition with '?' placeholders, appending its bind
// arguments to args. quoted is the dialect-quoted column.
func (c *Condition) toSQL(quoted string, args *[]any) (string, error) {
	if c.Raw != "" {
		*args = append(*args, c.Args...)
		return "(" + c.Raw + ")", nil
	}

	switch c.Operator {
	case OpEqual, OpNotEqual, OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual, OpLike:
		*args = append(*args, c.Value)
		return fmt.Sprintf("%s %s ?", quoted, c.Operator), nil

	case OpIn, OpNotIn:
		values, ok := c.Value.([]any)
		if !ok {
			return "", fmt.Errorf("%s operator requires []any value, got %T", c.Operator, c.Value)
		}
		if len(values) == 0 {
			// IN () is not valid SQL
			if c.Operator == OpIn {
				return "1 = 0", nil
			}
			return "1 = 1", nil
		}
		*args = append(*args, values...)
		return fmt.Sprintf("%s %s (%s)", quoted, c.Operator, dialect.Placeholders(len(values))), nil

	case OpIsNull, OpIsNotNull:
		return fmt.Sprintf("%s %s", quoted, c.Operator), nil

	case OpBetween:
		values, ok := c.Value.([]any)
		if !ok || len(values) != 2 {
			return "", fmt.Errorf("BETWEEN operator requires [min, max] values")
		}
		*args = append(*args, values[0], values[1])
		return fmt.Sprintf("%s BETWEEN ? AND ?", quoted), nil

	default:
		return "", fmt.Errorf("unsupported operator: %v", c.Operator)
	}
}
