package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/salonmonarch/booking/services/booking-service/internal/model"
)

var domainSentinels = []error{
	model.ErrNotFound,
	model.ErrSlotConflict,
	model.ErrAdminExists,
	model.ErrTransient,
}

func duplicateWrite(index string) error {
	return mongo.WriteException{WriteErrors: []mongo.WriteError{{
		Code:    11000,
		Message: fmt.Sprintf("E11000 duplicate key error collection: salon.appointments index: %s dup key: { }", index),
	}}}
}

func TestMongoErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{name: "approved slot insert", err: duplicateWrite(approvedSlotIndex), want: model.ErrSlotConflict},
		{name: "approved slot findAndModify", err: mongo.CommandError{
			Code:    11000,
			Message: "E11000 duplicate key error collection: salon.appointments index: " + approvedSlotIndex + " dup key: { }",
		}, want: model.ErrSlotConflict},
		{name: "admin email", err: duplicateWrite(adminEmailIndex), want: model.ErrAdminExists},
		{name: "id collision", err: duplicateWrite("_id_"), want: nil},
		{name: "no documents", err: mongo.ErrNoDocuments, want: model.ErrNotFound},
		{name: "deadline", err: context.DeadlineExceeded, want: model.ErrTransient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := mongoError("op", tc.err)
			if got == nil {
				t.Fatal("expected an error")
			}
			if tc.want != nil {
				if !errors.Is(got, tc.want) {
					t.Fatalf("expected %v, got %v", tc.want, got)
				}
				return
			}
			for _, sentinel := range domainSentinels {
				if errors.Is(got, sentinel) {
					t.Fatalf("unexpected mapping to %v: %v", sentinel, got)
				}
			}
			if !errors.As(got, new(mongo.WriteException)) {
				t.Fatalf("driver error lost: %v", got)
			}
		})
	}

	if mongoError("op", nil) != nil {
		t.Fatal("nil must stay nil")
	}
}

func TestPgErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{name: "approved slot", err: &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: approvedSlotIndex}, want: model.ErrSlotConflict},
		{name: "admin email", err: &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: adminEmailIndex}, want: model.ErrAdminExists},
		{name: "primary key", err: &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "appointments_pkey"}, want: nil},
		{name: "no rows", err: pgx.ErrNoRows, want: model.ErrNotFound},
		{name: "deadline", err: context.DeadlineExceeded, want: model.ErrTransient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := pgError("op", tc.err)
			if tc.want != nil {
				if !errors.Is(got, tc.want) {
					t.Fatalf("expected %v, got %v", tc.want, got)
				}
				return
			}
			for _, sentinel := range domainSentinels {
				if errors.Is(got, sentinel) {
					t.Fatalf("unexpected mapping to %v: %v", sentinel, got)
				}
			}
		})
	}
}
