package storage

import "time"

// EntityKind tags which directory namespace an entity belongs to.
type EntityKind string

const (
	KindPerson   EntityKind = "person"
	KindBook     EntityKind = "book"
	KindComputer EntityKind = "computer"
)

// ResourceStatus is the lifecycle state of a loanable resource.
type ResourceStatus string

const (
	ResourceFree        ResourceStatus = "free"
	ResourceLoaned      ResourceStatus = "loaned"
	ResourceMaintenance ResourceStatus = "maintenance"
)

// AccessAction is the kind of ledger entry a tap produced.
type AccessAction string

const (
	ActionEntry        AccessAction = "entry"
	ActionExit         AccessAction = "exit"
	ActionUnrecognized AccessAction = "unrecognized"

	// ActionNone is returned by LastAction when an entity has no history.
	ActionNone AccessAction = ""
)

type LoanStatus string

const (
	LoanActive LoanStatus = "active"
	LoanClosed LoanStatus = "closed"
)

type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentCheckedIn AppointmentStatus = "checked_in"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentMissed    AppointmentStatus = "missed"
)

type ReaderStatus string

const (
	ReaderPending  ReaderStatus = "pending"
	ReaderApproved ReaderStatus = "approved"
	ReaderRevoked  ReaderStatus = "revoked"
)

type Person struct {
	ID        int64     `db:"id"`
	FullName  string    `db:"full_name"`
	Email     string    `db:"email"`
	CardUID   *string   `db:"card_uid"`
	CreatedAt time.Time `db:"created_at"`
}

type Book struct {
	ID      int64          `db:"id"`
	Title   string         `db:"title"`
	Author  string         `db:"author"`
	CardUID *string        `db:"card_uid"`
	Status  ResourceStatus `db:"status"`
}

type Computer struct {
	ID      int64          `db:"id"`
	Brand   string         `db:"brand"`
	Model   string         `db:"model"`
	CardUID *string        `db:"card_uid"`
	Status  ResourceStatus `db:"status"`
}

// AccessEvent is an append-only ledger row. At most one of the entity
// references is set; all nil means the card was unrecognized. ID ordering
// is the source of truth for "most recent action".
type AccessEvent struct {
	ID         int64        `db:"id"`
	PersonID   *int64       `db:"person_id"`
	BookID     *int64       `db:"book_id"`
	ComputerID *int64       `db:"computer_id"`
	Action     AccessAction `db:"action"`
	CardUID    string       `db:"card_uid"`
	LoanID     *int64       `db:"loan_id"`
	RecordedAt time.Time    `db:"recorded_at"`
}

type Loan struct {
	ID           int64      `db:"id"`
	ResourceKind EntityKind `db:"resource_kind"`
	ResourceID   int64      `db:"resource_id"`
	PersonID     int64      `db:"person_id"`
	StartedAt    time.Time  `db:"started_at"`
	DueAt        time.Time  `db:"due_at"`
	EndedAt      *time.Time `db:"ended_at"`
	Status       LoanStatus `db:"status"`
}

// LoanDetail is a loan joined with borrower and resource display data,
// used by listings and the reminder job.
type LoanDetail struct {
	Loan
	BorrowerName  string `db:"borrower_name"`
	BorrowerEmail string `db:"borrower_email"`
	ResourceName  string `db:"resource_name"`
	DaysRemaining int    `db:"days_remaining"`
}

// Appointment is a scheduled reservation of facility time. Day is a
// YYYY-MM-DD date and StartTime a HH:MM wall time, both facility-local.
type Appointment struct {
	ID          int64             `db:"id"`
	PersonID    int64             `db:"person_id"`
	Day         string            `db:"day"`
	StartTime   string            `db:"start_time"`
	Area        string            `db:"area"`
	Status      AppointmentStatus `db:"status"`
	CheckedInAt *time.Time        `db:"checked_in_at"`
}

type ReaderDevice struct {
	ID        string       `db:"id"`
	Name      string       `db:"name"`
	Status    ReaderStatus `db:"status"`
	CreatedAt time.Time    `db:"created_at"`
}

type Operator struct {
	ID           int64     `db:"id"`
	FullName     string    `db:"full_name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}
