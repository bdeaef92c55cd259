package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"facility-access-control/internal/config"
)

// Storage errors shared with the domain packages.
var (
	ErrNotFound            = errors.New("record not found")
	ErrResourceUnavailable = errors.New("resource unavailable")
	ErrNoActiveLoan        = errors.New("no active loan for resource")
	ErrCardInUse           = errors.New("card already bound to another entity")
)

type Provider interface {
	Close() error
	SchemaVersion(ctx context.Context) (int, error)

	// Directory lookups
	PersonByCard(ctx context.Context, cardUID string) (*Person, error)
	BookByCard(ctx context.Context, cardUID string) (*Book, error)
	ComputerByCard(ctx context.Context, cardUID string) (*Computer, error)
	PersonByID(ctx context.Context, id int64) (*Person, error)

	// Entity administration
	CreatePerson(ctx context.Context, p *Person) error
	CreateBook(ctx context.Context, b *Book) error
	CreateComputer(ctx context.Context, c *Computer) error
	SearchBooks(ctx context.Context, query string) ([]Book, error)
	SetResourceStatus(ctx context.Context, kind EntityKind, id int64, status ResourceStatus) error
	ResourceStatus(ctx context.Context, kind EntityKind, id int64) (ResourceStatus, error)

	// Access ledger
	LastAction(ctx context.Context, kind EntityKind, id int64) (AccessAction, error)
	AppendAccessEvent(ctx context.Context, event *AccessEvent) (int64, error)
	LastAccessEvent(ctx context.Context) (*AccessEvent, error)
	ListAccessEvents(ctx context.Context, limit int) ([]AccessEvent, error)
	PurgeAccessEvents(ctx context.Context) (int64, error)

	// Loans
	ReserveResource(ctx context.Context, kind EntityKind, resourceID, personID int64, now, dueAt time.Time) (*Loan, error)
	ReleaseResource(ctx context.Context, kind EntityKind, resourceID int64, now time.Time) (*Loan, error)
	ActiveLoan(ctx context.Context, kind EntityKind, resourceID int64) (*Loan, error)
	ListActiveLoans(ctx context.Context, now time.Time) ([]LoanDetail, error)
	ReminderSent(ctx context.Context, loanID int64, daysLeft int) (bool, error)
	MarkReminderSent(ctx context.Context, loanID int64, daysLeft int, now time.Time) error

	// Appointments
	CreateAppointment(ctx context.Context, a *Appointment) error
	ListAppointments(ctx context.Context) ([]Appointment, error)
	AppointmentByID(ctx context.Context, id int64) (*Appointment, error)
	ScheduledAppointment(ctx context.Context, personID int64, day string) (*Appointment, error)
	CheckInAppointment(ctx context.Context, id int64, now time.Time) (bool, error)
	CompleteExpiredCheckIns(ctx context.Context, cutoff time.Time) (int64, error)
	MissPastScheduled(ctx context.Context, today string) (int64, error)
	CompletePastCheckedIn(ctx context.Context, today string) (int64, error)

	// Reader devices
	CreateReaderDevice(ctx context.Context, device ReaderDevice) error
	GetReaderDevice(ctx context.Context, deviceID string) (*ReaderDevice, error)
	UpdateReaderStatus(ctx context.Context, deviceID string, status ReaderStatus) error

	// Operators
	CreateOperator(ctx context.Context, op *Operator) error
	OperatorByEmail(ctx context.Context, email string) (*Operator, error)
}

func NewProvider(config *config.Storage) Provider {
	switch {
	case config.SQLite != nil:
		provider := NewSQLiteProvider(config)
		if provider == nil {
			return nil
		}
		if err := provider.runMigrations("sqlite3"); err != nil {
			slog.Error("Failed to run migrations", "error", err)
			return nil
		}
		return provider

	default:
		slog.Error("Unsupported storage configuration", "config", config)
	}

	return nil
}
