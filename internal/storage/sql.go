package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/jmoiron/sqlx"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"facility-access-control/internal/config"
)

type SQLProvider struct {
	db *sqlx.DB

	config *config.Storage

	logger *slog.Logger
}

func NewSQLProvider(config *config.Storage, driverName string, dataSource string) (provider *SQLProvider) {
	db, err := sqlx.Open(driverName, dataSource)
	if err != nil {
		return nil
	}

	// An in-memory sqlite database exists per connection; pin the pool to
	// one so every query sees the same schema.
	if dataSource == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	logger := slog.With("component", "storage")

	return &SQLProvider{
		db:     db,
		config: config,
		logger: logger,
	}
}

func (p *SQLProvider) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

func (p *SQLProvider) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := p.db.GetContext(ctx, &version, `SELECT COALESCE(MAX(version), 0) FROM migrations`)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// ---------------------------------------------------------------------------
// Directory lookups
// ---------------------------------------------------------------------------

func (p *SQLProvider) PersonByCard(ctx context.Context, cardUID string) (*Person, error) {
	var person Person
	err := p.db.GetContext(ctx, &person,
		`SELECT id, full_name, email, card_uid, created_at FROM persons WHERE card_uid = ?`, cardUID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return &person, nil
}

func (p *SQLProvider) BookByCard(ctx context.Context, cardUID string) (*Book, error) {
	var book Book
	err := p.db.GetContext(ctx, &book,
		`SELECT id, title, author, card_uid, status FROM books WHERE card_uid = ?`, cardUID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return &book, nil
}

func (p *SQLProvider) ComputerByCard(ctx context.Context, cardUID string) (*Computer, error) {
	var computer Computer
	err := p.db.GetContext(ctx, &computer,
		`SELECT id, brand, model, card_uid, status FROM computers WHERE card_uid = ?`, cardUID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return &computer, nil
}

func (p *SQLProvider) PersonByID(ctx context.Context, id int64) (*Person, error) {
	var person Person
	err := p.db.GetContext(ctx, &person,
		`SELECT id, full_name, email, card_uid, created_at FROM persons WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return &person, nil
}

// ---------------------------------------------------------------------------
// Entity administration
// ---------------------------------------------------------------------------

// cardBound reports whether the UID is already bound anywhere in the
// directory. The card namespace is shared between persons, books and
// computers even though each table carries its own unique index.
func (p *SQLProvider) cardBound(ctx context.Context, cardUID string) (bool, error) {
	var n int
	err := p.db.GetContext(ctx, &n, `
		SELECT
			(SELECT COUNT(*) FROM persons WHERE card_uid = ?) +
			(SELECT COUNT(*) FROM books WHERE card_uid = ?) +
			(SELECT COUNT(*) FROM computers WHERE card_uid = ?)`,
		cardUID, cardUID, cardUID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (p *SQLProvider) checkCardFree(ctx context.Context, cardUID *string) error {
	if cardUID == nil || *cardUID == "" {
		return nil
	}
	bound, err := p.cardBound(ctx, *cardUID)
	if err != nil {
		return err
	}
	if bound {
		return ErrCardInUse
	}
	return nil
}

func (p *SQLProvider) CreatePerson(ctx context.Context, person *Person) error {
	if err := p.checkCardFree(ctx, person.CardUID); err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx,
		`INSERT INTO persons (full_name, email, card_uid) VALUES (?, ?, ?)`,
		person.FullName, person.Email, person.CardUID)
	if err != nil {
		return err
	}
	person.ID, err = res.LastInsertId()
	return err
}

func (p *SQLProvider) CreateBook(ctx context.Context, book *Book) error {
	if err := p.checkCardFree(ctx, book.CardUID); err != nil {
		return err
	}
	if book.Status == "" {
		book.Status = ResourceFree
	}
	res, err := p.db.ExecContext(ctx,
		`INSERT INTO books (title, author, card_uid, status) VALUES (?, ?, ?, ?)`,
		book.Title, book.Author, book.CardUID, book.Status)
	if err != nil {
		return err
	}
	book.ID, err = res.LastInsertId()
	return err
}

func (p *SQLProvider) CreateComputer(ctx context.Context, computer *Computer) error {
	if err := p.checkCardFree(ctx, computer.CardUID); err != nil {
		return err
	}
	if computer.Status == "" {
		computer.Status = ResourceFree
	}
	res, err := p.db.ExecContext(ctx,
		`INSERT INTO computers (brand, model, card_uid, status) VALUES (?, ?, ?, ?)`,
		computer.Brand, computer.Model, computer.CardUID, computer.Status)
	if err != nil {
		return err
	}
	computer.ID, err = res.LastInsertId()
	return err
}

// foldAccents strips combining marks so "informática" matches "informatica".
// Titles and author names in the catalogue are mostly Spanish.
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

func (p *SQLProvider) SearchBooks(ctx context.Context, query string) ([]Book, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	var books []Book
	err := p.db.SelectContext(ctx, &books,
		`SELECT id, title, author, card_uid, status FROM books ORDER BY title`)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(foldAccents(query))
	var matched []Book
	for _, b := range books {
		haystack := strings.ToLower(foldAccents(b.Title + " " + b.Author))
		if strings.Contains(haystack, needle) {
			matched = append(matched, b)
		}
	}
	return matched, nil
}

func resourceTable(kind EntityKind) (string, error) {
	switch kind {
	case KindBook:
		return "books", nil
	case KindComputer:
		return "computers", nil
	default:
		return "", fmt.Errorf("entity kind %q is not a loanable resource", kind)
	}
}

func (p *SQLProvider) SetResourceStatus(ctx context.Context, kind EntityKind, id int64, status ResourceStatus) error {
	table, err := resourceTable(kind)
	if err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET status = ? WHERE id = ?`, table), status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *SQLProvider) ResourceStatus(ctx context.Context, kind EntityKind, id int64) (ResourceStatus, error) {
	table, err := resourceTable(kind)
	if err != nil {
		return "", err
	}
	var status ResourceStatus
	err = p.db.GetContext(ctx, &status,
		fmt.Sprintf(`SELECT status FROM %s WHERE id = ?`, table), id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	} else if err != nil {
		return "", err
	}
	return status, nil
}

// ---------------------------------------------------------------------------
// Operators
// ---------------------------------------------------------------------------

func (p *SQLProvider) CreateOperator(ctx context.Context, op *Operator) error {
	res, err := p.db.ExecContext(ctx,
		`INSERT INTO operators (full_name, email, password_hash) VALUES (?, ?, ?)`,
		op.FullName, op.Email, op.PasswordHash)
	if err != nil {
		return err
	}
	op.ID, err = res.LastInsertId()
	return err
}

func (p *SQLProvider) OperatorByEmail(ctx context.Context, email string) (*Operator, error) {
	var op Operator
	err := p.db.GetContext(ctx, &op,
		`SELECT id, full_name, email, password_hash, created_at FROM operators WHERE email = ?`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return &op, nil
}
