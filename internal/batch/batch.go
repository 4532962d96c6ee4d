// Package batch exports the records of every participant of the directory to
// one delimited file per family.
package batch

import (
	"context"
	"errors"
	"fmt"
	"openbankingbr/internal/catalog"
	"openbankingbr/internal/components/assert"
	"openbankingbr/internal/components/chrono"
	"openbankingbr/internal/components/telemetry"
	"openbankingbr/internal/model"
	"os"
	"path/filepath"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_batch_run         = "batch.run"
	report_batch_participant = "batch.participant"
	report_batch_sink        = "batch.sink"
)

// DirectoryParticipant is the name BatchError carries when the directory itself failed.
const DirectoryParticipant = "directory"

var tracer = otel.Tracer("openbankingbr.internal.batch")

// BatchError is returned when a participant could not be exported and errors
// are not being ignored.
type BatchError struct {
	Participant string
	Err         error
}

func (e BatchError) Error() string {
	return fmt.Sprintf("participant %s: %v", e.Participant, e.Err)
}

func (e BatchError) Unwrap() error {
	return e.Err
}

// Source is implemented by *catalog.Catalog.
type Source interface {
	Participants(ctx context.Context) ([]model.Participant, error)
	Load(ctx context.Context, p model.Participant, sections catalog.Sections) (model.Participant, error)
}

// Sink receives a copy of every exported table, it is implemented by *snapshot.Store.
type Sink interface {
	Push(ctx context.Context, day string, family string, header []string, rows [][]string) error
}

type Options struct {
	DataDir  string
	Format   Format
	Families []Family
	// IgnoreErrors skips the participants that fail instead of aborting the batch.
	IgnoreErrors bool
}

// Report summarizes a finished batch.
type Report struct {
	Day          string
	Participants int
	Totals       map[Family]int
	Files        map[Family]string
	// Skipped are the names of the participants that failed with IgnoreErrors.
	Skipped []string
	// DirectoryFailed is set when the directory could not be loaded with IgnoreErrors,
	// in that case only headers were written.
	DirectoryFailed bool
}

type Exporter struct {
	source Source
	sink   Sink
	clock  chrono.API
	tel    telemetry.API
	opts   Options
}

// NewExporter creates an Exporter, `sink` may be nil.
func NewExporter(source Source, sink Sink, clock chrono.API, tel telemetry.API, opts Options) *Exporter {
	assert.NotNil(source)
	assert.NotNil(clock)
	assert.NotNil(tel)

	if len(opts.Families) == 0 {
		opts.Families = Families
	}
	if opts.Format.Delimiter == 0 {
		opts.Format.Delimiter = DefaultFormat().Delimiter
	}
	if opts.Format.Encoding == "" {
		opts.Format.Encoding = EncodingUTF8
	}

	return &Exporter{
		source: source,
		sink:   sink,
		clock:  clock,
		tel:    telemetry.NewScopedAPI("batch", tel),
		opts:   opts,
	}
}

// FileName returns the file `family` is exported to on `day`.
func FileName(dataDir, day string, family Family) string {
	return filepath.Join(dataDir, fmt.Sprintf("%s_openbanking_%s.csv", day, family))
}

func (e *Exporter) sections() catalog.Sections {
	sections := catalog.Sections{}
	for _, f := range e.opts.Families {
		switch f {
		case FamilyAgencias:
			sections.Agencias = true
		case FamilyProdutos, FamilyServicos, FamilyPacotes:
			sections.Produtos = true
		}
	}
	return sections
}

// Run exports every participant. Files of the same day are replaced only
// when the batch completes, a failed batch leaves them untouched.
func (e *Exporter) Run(ctx context.Context) (Report, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	day := chrono.Today(e.clock)
	report := Report{
		Day:    day,
		Totals: map[Family]int{},
		Files:  map[Family]string{},
	}
	span.SetAttributes(attribute.String("custom.day", day))

	err := os.MkdirAll(e.opts.DataDir, 0755)
	if err != nil {
		return Report{}, err
	}

	files := map[Family]*csvFile{}
	tables := map[Family][][]string{}
	discard := func() {
		for _, f := range files {
			f.discard()
		}
	}
	for _, family := range e.opts.Families {
		path := FileName(e.opts.DataDir, day, family)
		f, err := createCSV(path, e.opts.Format, Header(family))
		if err != nil {
			discard()
			return Report{}, err
		}
		files[family] = f
		tables[family] = [][]string{}
		report.Files[family] = path
		report.Totals[family] = 0
	}

	participants, err := e.source.Participants(ctx)
	if err != nil {
		span.RecordError(err)
		if !e.opts.IgnoreErrors {
			discard()
			span.SetStatus(codes.Error, "failed to load directory")
			return Report{}, BatchError{Participant: DirectoryParticipant, Err: err}
		}
		e.tel.ReportWarning(report_batch_run, "failed to load directory, writing empty files", err)
		report.DirectoryFailed = true
		participants = nil
	}
	report.Participants = len(participants)

	sections := e.sections()
	for i, p := range participants {
		loaded, err := e.source.Load(ctx, p, sections)
		if err != nil {
			if ctx.Err() != nil {
				discard()
				return Report{}, ctx.Err()
			}
			span.RecordError(err)
			if !e.opts.IgnoreErrors {
				discard()
				span.SetStatus(codes.Error, "failed to load participant")
				return Report{}, BatchError{Participant: p.Name, Err: err}
			}
			e.tel.ReportWarning(report_batch_participant, "skipped participant", p.Name, err)
			report.Skipped = append(report.Skipped, p.Name)
			continue
		}

		for _, family := range e.opts.Families {
			rows := Rows(family, day, i+1, loaded)
			err = files[family].write(rows)
			if err != nil {
				discard()
				return Report{}, fmt.Errorf("write %s: %w", family, err)
			}
			for _, row := range rows {
				tables[family] = append(tables[family], row.Values)
			}
			report.Totals[family] += len(rows)
		}
		e.tel.ReportDebug("exported participant", p.Name, strconv.Itoa(i+1))
	}

	var commitErr error
	for _, family := range e.opts.Families {
		err := files[family].commit()
		if err != nil {
			commitErr = errors.Join(commitErr, fmt.Errorf("commit %s: %w", family, err))
		}
		e.tel.ReportCount(fmt.Sprintf("%s.%s", report_batch_run, family), int64(report.Totals[family]))
	}
	if commitErr != nil {
		return Report{}, commitErr
	}

	if e.sink != nil {
		for _, family := range e.opts.Families {
			err := e.sink.Push(ctx, day, string(family), Header(family), tables[family])
			if err != nil {
				e.tel.ReportBroken(report_batch_sink, err, family)
				return report, fmt.Errorf("push %s: %w", family, err)
			}
		}
	}

	span.SetAttributes(
		attribute.Int("custom.participants", report.Participants),
		attribute.Int("custom.skipped", len(report.Skipped)),
	)
	return report, nil
}

// ModelKeys returns the keys of the rows `participants` produce for `family`.
func ModelKeys(participants []model.Participant, family Family) map[Key]bool {
	keys := map[Key]bool{}
	for _, p := range participants {
		switch family {
		case FamilyAgencias:
			for _, a := range p.Agencias {
				keys[Key{Participant: p.ID, Code: strconv.FormatInt(a.Codigo, 10)}] = true
			}
		case FamilyProdutos:
			for _, produto := range p.Produtos {
				keys[Key{Participant: p.ID, Code: joinKey(produto.Seq)}] = true
			}
		case FamilyServicos:
			for _, produto := range p.Produtos {
				if !produto.Detailed() {
					continue
				}
				for _, servico := range produto.Servicos {
					keys[Key{Participant: p.ID, Code: joinKey(produto.Seq, servico.Seq)}] = true
				}
			}
		case FamilyPacotes:
			for _, produto := range p.Produtos {
				if !produto.Detailed() {
					continue
				}
				for _, pacote := range produto.Pacotes {
					keys[Key{Participant: p.ID, Code: joinKey(produto.Seq, pacote.Seq)}] = true
				}
			}
		}
	}
	return keys
}
