// Package snapshot keeps a copy of every exported table in a sqlite (or
// libsql) database, keyed by the day the data was fetched.
package snapshot

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"openbankingbr/internal/components/assert"
	"openbankingbr/internal/components/telemetry"
	configlibsql "openbankingbr/lib/configutil/libsql"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

//go:embed schema.sql
var Schema string

const (
	report_db_query = "db.query"
	report_push     = "snapshot.push"
)

var tracer = otel.Tracer("openbankingbr.internal.snapshot")

type Store struct {
	db  *sql.DB
	tel telemetry.API
}

// Open opens `target` and applies the schema, see configlibsql.Struct for the
// accepted targets.
func Open(target string, tel telemetry.API) (*Store, error) {
	db, err := configlibsql.Struct{Target: target}.OpenDB()
	if err != nil {
		return nil, err
	}
	store, err := NewStore(db, tel)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewStore applies the schema to `db`.
func NewStore(db *sql.DB, tel telemetry.API) (*Store, error) {
	assert.NotNil(db)
	assert.NotNil(tel)

	_, err := db.Exec(Schema)
	if err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{
		db:  db,
		tel: telemetry.NewScopedAPI("snapshot", tel),
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Push replaces the rows of `family` on `day` with `rows`, each row must have
// one value per column of `header`.
func (s *Store) Push(ctx context.Context, day, family string, header []string, rows [][]string) error {
	ctx, span := tracer.Start(ctx, "Push")
	defer span.End()
	span.SetAttributes(
		attribute.String("custom.day", day),
		attribute.String("custom.family", family),
		attribute.Int("custom.rows", len(rows)),
	)

	participantIdx := -1
	for i, column := range header {
		if column == "PARTICIPANTE_ID" {
			participantIdx = i
		}
	}
	if participantIdx < 0 {
		return fmt.Errorf("header of %s has no PARTICIPANTE_ID", family)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.tel.ReportBroken(report_db_query, fmt.Errorf("make tx: %w", err))
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, "delete from export_row where data_base = ? and family = ?", day, family)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "delete export_row", day, family)
		return err
	}

	insert, err := tx.PrepareContext(ctx, "insert into export_row(data_base, family, seq, participante_id, columns) values (?, ?, ?, ?, ?)")
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "prepare insert export_row")
		return err
	}
	defer insert.Close()

	for i, row := range rows {
		if len(row) != len(header) {
			err := fmt.Errorf("row %d of %s has %d values, expected %d", i+1, family, len(row), len(header))
			s.tel.ReportBroken(report_push, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "malformed row")
			return err
		}
		columns := make(map[string]string, len(header))
		for j, column := range header {
			columns[column] = row[j]
		}
		serialized, err := json.Marshal(columns)
		if err != nil {
			return err
		}
		_, err = insert.ExecContext(ctx, day, family, i+1, row[participantIdx], string(serialized))
		if err != nil {
			s.tel.ReportBroken(report_db_query, err, "insert export_row", day, family, i+1)
			return err
		}
	}

	err = tx.Commit()
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "commit")
		return err
	}
	s.tel.ReportDebug("pushed snapshot", day, family, len(rows))
	return nil
}

// Count returns the amount of rows of `family` stored for `day`.
func (s *Store) Count(ctx context.Context, day, family string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "select count(*) from export_row where data_base = ? and family = ?", day, family).Scan(&count)
	return count, err
}

// Participants returns the amount of rows per participant of `family` stored for `day`.
func (s *Store) Participants(ctx context.Context, day, family string) (map[string]int, error) {
	rows, err := s.db.QueryContext(
		ctx,
		"select participante_id, count(*) from export_row where data_base = ? and family = ? group by participante_id",
		day, family,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var participant string
		var count int
		err := rows.Scan(&participant, &count)
		if err != nil {
			return nil, err
		}
		out[participant] = count
	}
	return out, rows.Err()
}
