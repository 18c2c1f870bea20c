package cassandra

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"reflect"
	"time"

	"github.com/gocql/gocql"
)

// newElem returns a pointer to a zero value of the column's Go type, or nil
// when gocql has no mapping for it.
func newElem(info gocql.TypeInfo) (elem any) {
	defer func() {
		if recover() != nil {
			elem = nil
		}
	}()
	return info.New()
}

// nullString converts a decoded scan destination into a row value.
func nullString(dest any) sql.NullString {
	v := reflect.ValueOf(dest).Elem()
	if v.IsNil() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatValue(v.Elem().Interface()), Valid: true}
}

// formatValue returns the text form of a decoded CQL value.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case []byte:
		return "0x" + hex.EncodeToString(val)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case gocql.UUID:
		return val.String()
	case gocql.Duration:
		return fmt.Sprintf("%dmo%dd%dns", val.Months, val.Days, val.Nanoseconds)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}
