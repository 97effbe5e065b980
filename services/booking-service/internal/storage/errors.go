package storage

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/salonmonarch/booking/services/booking-service/internal/model"
)

const (
	pgUniqueViolation = "23505"

	approvedSlotIndex = "appointments_one_approved_per_slot"
	adminEmailIndex   = "admins_email_key"
)

// transient reports whether err means the backend could not answer in time
// or could not be reached.
func transient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	if pgconn.Timeout(err) {
		return true
	}
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func wrapTransient(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, model.ErrTransient, err)
}

// pgError maps a Postgres error onto the appointment sentinels.
func pgError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, model.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		switch pgErr.ConstraintName {
		case approvedSlotIndex:
			return fmt.Errorf("%s: %w", op, model.ErrSlotConflict)
		case adminEmailIndex:
			return fmt.Errorf("%s: %w", op, model.ErrAdminExists)
		}
	}
	if transient(err) {
		return wrapTransient(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// mongoError maps a MongoDB error onto the appointment sentinels.
func mongoError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s: %w", op, model.ErrNotFound)
	}
	if mongo.IsDuplicateKeyError(err) {
		switch {
		case duplicateOn(err, approvedSlotIndex):
			return fmt.Errorf("%s: %w", op, model.ErrSlotConflict)
		case duplicateOn(err, adminEmailIndex):
			return fmt.Errorf("%s: %w", op, model.ErrAdminExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if transient(err) {
		return wrapTransient(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// duplicateOn reports whether a duplicate key error names index. Inserts
// surface a WriteException, findAndModify a CommandError.
func duplicateOn(err error, index string) bool {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if strings.Contains(e.Message, index) {
				return true
			}
		}
	}
	var cmdErr mongo.CommandError
	return errors.As(err, &cmdErr) && strings.Contains(cmdErr.Message, index)
}
