package database

import (
	"fmt"
	"time"
)

// sqliteTimeFormats are the layouts the SQLite driver may hand back for TIMESTAMP columns.
var sqliteTimeFormats = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// timestamp scans a time column regardless of whether the driver returns time.Time or text.
type timestamp struct {
	t *time.Time
}

func (ts timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*ts.t = v.UTC()
		return nil
	case string:
		return ts.parse(v)
	case []byte:
		return ts.parse(string(v))
	case nil:
		*ts.t = time.Time{}
		return nil
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (ts timestamp) parse(s string) error {
	for _, layout := range sqliteTimeFormats {
		if parsed, err := time.Parse(layout, s); err == nil {
			*ts.t = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unparseable timestamp %q", s)
}
