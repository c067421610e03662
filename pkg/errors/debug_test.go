package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestDumpNil(t *testing.T) {
	if d := Dump(nil); d.TopMessage != "" || len(d.Chain) != 0 {
		t.Fatalf("expected empty dump, got %+v", d)
	}
}

func TestDumpPgxUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_quotes_quote_number", TableName: "quotes", Message: "duplicate key value"}
	err := Wrap(CodeConflict, fmt.Errorf("insert quote: %w", pgErr), "quote number taken")

	d := Dump(err)
	if d.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %s", d.Code)
	}
	if !d.UniqueViolation {
		t.Fatal("expected unique violation flag")
	}
	if d.PGConstraint != "ux_quotes_quote_number" || d.PGTable != "quotes" {
		t.Fatalf("unexpected pg fields %+v", d)
	}
	if d.Retryable {
		t.Fatal("conflicts are not retryable")
	}
	if len(d.Chain) != 3 {
		t.Fatalf("expected 3 chain entries, got %d", len(d.Chain))
	}
}

func TestDumpPqSerializationFailureIsRetryable(t *testing.T) {
	err := fmt.Errorf("tx: %w", &pq.Error{Code: "40001", Message: "could not serialize access"})
	d := Dump(err)
	if d.PGCode != "40001" {
		t.Fatalf("unexpected pg code %s", d.PGCode)
	}
	if !d.Retryable {
		t.Fatal("expected serialization failure to be retryable")
	}
	if d.UniqueViolation {
		t.Fatal("unexpected unique violation flag")
	}
}

func TestDumpPlainError(t *testing.T) {
	d := Dump(stdErrors.New("boom"))
	if d.TopMessage != "boom" || d.Code != "" || d.PGCode != "" {
		t.Fatalf("unexpected dump %+v", d)
	}
}
