package core

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	DateLayout      = "2006-01-02"
	YearMonthLayout = "2006-01"
)

// Date is a calendar day in UTC.
type Date struct {
	time.Time
}

// YearMonth identifies a budget month.
type YearMonth struct {
	Year  int
	Month time.Month
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, invalid("date", fmt.Sprintf("invalid date %q: expected YYYY-MM-DD", s))
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	return nil
}

func (d Date) YearMonth() YearMonth {
	return YearMonth{Year: d.Time.Year(), Month: d.Time.Month()}
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// NewYearMonth creates a YearMonth from year and month (1-12).
func NewYearMonth(year, month int) YearMonth {
	return YearMonth{Year: year, Month: time.Month(month)}
}

// ParseYearMonth parses a YYYY-MM string.
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse(YearMonthLayout, s)
	if err != nil {
		return YearMonth{}, invalid("month", fmt.Sprintf("invalid month %q: expected YYYY-MM", s))
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

func (ym YearMonth) Validate() error {
	if ym.Month < time.January || ym.Month > time.December {
		return ErrInvalidMonth
	}
	if ym.Year < 1 || ym.Year > 9999 {
		return ErrInvalidMonth
	}
	return nil
}

// FirstDay returns the first calendar day of the month.
func (ym YearMonth) FirstDay() Date {
	return NewDate(ym.Year, int(ym.Month), 1)
}

// LastDay returns the last calendar day of the month.
func (ym YearMonth) LastDay() Date {
	return Date{Time: ym.FirstDay().AddDate(0, 1, -1)}
}

// Contains reports whether d falls inside the month.
func (ym YearMonth) Contains(d Date) bool {
	return d.Time.Year() == ym.Year && d.Time.Month() == ym.Month
}

// Before orders months chronologically.
func (ym YearMonth) Before(o YearMonth) bool {
	if ym.Year != o.Year {
		return ym.Year < o.Year
	}
	return ym.Month < o.Month
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

func (ym YearMonth) MarshalJSON() ([]byte, error) {
	return json.Marshal(ym.String())
}

func (ym *YearMonth) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseYearMonth(s)
	if err != nil {
		return err
	}
	*ym = parsed
	return nil
}
