package store

import (
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

func mapNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func textParam(v string) pgtype.Text {
	if v == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: v, Valid: true}
}

func int4PtrParam(v *int) pgtype.Int4 {
	if v == nil {
		return pgtype.Int4{}
	}
	return pgtype.Int4{Int32: int32(*v), Valid: true}
}

func timeParam(v *time.Time) pgtype.Timestamptz {
	if v == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *v, Valid: true}
}

func intPtrVal(v pgtype.Int4) *int {
	if !v.Valid {
		return nil
	}
	out := int(v.Int32)
	return &out
}

func timePtrVal(v pgtype.Timestamptz) *time.Time {
	if !v.Valid {
		return nil
	}
	out := v.Time.UTC()
	return &out
}

func textVal(v pgtype.Text) string {
	if !v.Valid {
		return ""
	}
	return v.String
}

// optParam converts one column of a conditional write into a driver value.
func optParam[T any](o Opt[T]) any {
	if o.Val == nil {
		return nil
	}
	switch v := any(*o.Val).(type) {
	case time.Time:
		return timeParam(&v)
	case int:
		return int4PtrParam(&v)
	case AnteDecision:
		return textParam(string(v))
	case Decision:
		return textParam(string(v))
	case SessionStatus:
		return string(v)
	case RoundStatus:
		return string(v)
	default:
		return v
	}
}

// optIsNull reports whether the column must be NULL, including "" decisions.
func optIsNull[T any](o Opt[T]) bool {
	if o.Val == nil {
		return true
	}
	switch v := any(*o.Val).(type) {
	case AnteDecision:
		return v == ""
	case Decision:
		return v == ""
	default:
		return false
	}
}
