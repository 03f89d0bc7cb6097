package dberr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "pg unique", err: &pgconn.PgError{Code: "23505"}, want: true},
		{name: "pg unique wrapped", err: fmt.Errorf("create: %w", &pgconn.PgError{Code: "23505"}), want: true},
		{name: "pg fk violation", err: &pgconn.PgError{Code: "23503"}, want: false},
		{name: "sqlite unique", err: errors.New("UNIQUE constraint failed: products.barcode"), want: true},
		{name: "pg text only", err: errors.New(`duplicate key value violates unique constraint "idx_products_barcode"`), want: true},
		{name: "unrelated", err: errors.New("record not found"), want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsUniqueViolation(tc.err); got != tc.want {
				t.Fatalf("IsUniqueViolation(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestIsUndefinedCapability(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "pg undefined function", err: &pgconn.PgError{Code: "42883"}, want: true},
		{name: "pg undefined table", err: &pgconn.PgError{Code: "42P01"}, want: true},
		{name: "pg undefined column", err: &pgconn.PgError{Code: "42703"}, want: true},
		{name: "pg undefined object", err: &pgconn.PgError{Code: "42704"}, want: true},
		{name: "pg wrapped", err: fmt.Errorf("query: %w", &pgconn.PgError{Code: "42P01"}), want: true},
		{name: "pg unique is not capability", err: &pgconn.PgError{Code: "23505"}, want: false},
		{name: "sqlite function", err: errors.New("no such function: earth_distance"), want: true},
		{name: "sqlite table", err: errors.New("no such table: product_aliases"), want: true},
		{name: "sqlite column", err: errors.New("no such column: host_store_id"), want: true},
		{name: "pg text function", err: errors.New("function ll_to_earth(double precision, double precision) does not exist"), want: true},
		{name: "pg text relation", err: errors.New(`relation "current_prices" does not exist`), want: true},
		{name: "pg text operator", err: errors.New("operator does not exist: text % text"), want: true},
		{name: "plain does not exist", err: errors.New("user does not exist"), want: false},
		{name: "data error", err: errors.New("invalid input syntax for type uuid"), want: false},
		{name: "network error", err: errors.New("connection refused"), want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsUndefinedCapability(tc.err); got != tc.want {
				t.Fatalf("IsUndefinedCapability(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
