package batch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Encoding is the character encoding of the exported files.
type Encoding string

const (
	EncodingUTF8 Encoding = "utf8"
	// EncodingCP1252 is what spreadsheet software on Windows expects by default.
	EncodingCP1252 Encoding = "cp1252"
)

var ErrMissingColumn = errors.New("missing column")

// ParseEncoding accepts the usual spellings of utf8 and cp1252.
func ParseEncoding(name string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf8", "utf-8":
		return EncodingUTF8, nil
	case "cp1252", "windows-1252", "windows1252":
		return EncodingCP1252, nil
	}
	return "", fmt.Errorf("unknown encoding '%s', expected utf8 or cp1252", name)
}

// Format describes how rows are encoded in a file.
type Format struct {
	Delimiter rune
	Encoding  Encoding
}

func DefaultFormat() Format {
	return Format{Delimiter: ',', Encoding: EncodingUTF8}
}

// ParseDelimiter returns the single character of `text`, "\t" is accepted for tabs.
func ParseDelimiter(text string) (rune, error) {
	if text == `\t` {
		return '\t', nil
	}
	if utf8.RuneCountInString(text) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got '%s'", text)
	}
	r, _ := utf8.DecodeRuneInString(text)
	if r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return 0, fmt.Errorf("invalid delimiter '%s'", text)
	}
	return r, nil
}

// csvFile is a file being written, rows go to a temporary file that only
// replaces the destination on commit.
type csvFile struct {
	path    string
	file    *os.File
	encoder io.WriteCloser
	writer  *csv.Writer
}

func createCSV(path string, format Format, header []string) (*csvFile, error) {
	file, err := os.CreateTemp(filepath.Dir(path), ".openbanking-*.csv")
	if err != nil {
		return nil, err
	}

	f := &csvFile{path: path, file: file}
	var out io.Writer = file
	if format.Encoding == EncodingCP1252 {
		f.encoder = transform.NewWriter(file, encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder()))
		out = f.encoder
	}
	f.writer = csv.NewWriter(out)
	if format.Delimiter != 0 {
		f.writer.Comma = format.Delimiter
	}

	err = f.writer.Write(header)
	if err != nil {
		f.discard()
		return nil, err
	}
	return f, nil
}

func (f *csvFile) write(rows []Row) error {
	for _, row := range rows {
		err := f.writer.Write(row.Values)
		if err != nil {
			return err
		}
	}
	return nil
}

func (f *csvFile) commit() error {
	f.writer.Flush()
	err := f.writer.Error()
	if err == nil && f.encoder != nil {
		err = f.encoder.Close()
	}
	if err == nil {
		err = f.file.Sync()
	}
	closeErr := f.file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(f.file.Name())
		return err
	}
	return os.Rename(f.file.Name(), f.path)
}

func (f *csvFile) discard() {
	f.file.Close()
	os.Remove(f.file.Name())
}

// Key identifies an exported record: the participant it belongs to and its
// code within the participant.
type Key struct {
	Participant string
	Code        string
}

// ReadKeys reads back a file written by the exporter and returns the keys of its rows.
func ReadKeys(path string, family Family, format Format) (map[Key]bool, error) {
	columns, ok := keyColumns[family]
	if !ok {
		return nil, fmt.Errorf("unknown family '%s'", family)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var in io.Reader = file
	if format.Encoding == EncodingCP1252 {
		in = transform.NewReader(file, charmap.Windows1252.NewDecoder())
	}
	reader := csv.NewReader(in)
	if format.Delimiter != 0 {
		reader.Comma = format.Delimiter
	}

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := map[string]int{}
	for i, name := range header {
		index[name] = i
	}

	participantIdx, ok := index["PARTICIPANTE_ID"]
	if !ok {
		return nil, fmt.Errorf("%w: PARTICIPANTE_ID", ErrMissingColumn)
	}
	codeIdx := make([]int, len(columns))
	for i, column := range columns {
		idx, ok := index[column]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, column)
		}
		codeIdx[i] = idx
	}

	keys := map[Key]bool{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		parts := make([]string, len(codeIdx))
		for i, idx := range codeIdx {
			parts[i] = record[idx]
		}
		keys[Key{
			Participant: record[participantIdx],
			Code:        strings.Join(parts, "/"),
		}] = true
	}
	return keys, nil
}
