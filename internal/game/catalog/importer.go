package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// ErrInvalidImport is returned for CSV exports the importer cannot read.
var ErrInvalidImport = errors.New("invalid card import")

// ImportColumns are the CSV headers the importer understands. Multi-valued
// cells separate values with "/".
var ImportColumns = []string{"code", "name", "category", "colors", "cost", "power", "counter", "keywords", "types", "attributes"}

var requiredColumns = []string{"code", "name", "category"}

// ImportResult summarizes a merge.
type ImportResult struct {
	Added   int
	Updated int
	Skipped []string // row descriptions that could not be imported
}

// ReadCSV parses a card export with a header row into catalog entries.
// Rows that fail to parse are reported in skipped rather than aborting.
func ReadCSV(r io.Reader) (entries []CardEntry, skipped []string, err error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidImport, err)
	}
	if len(records) < 2 {
		return nil, nil, fmt.Errorf("%w: no data rows", ErrInvalidImport)
	}

	columns := make(map[string]int)
	for i, h := range records[0] {
		columns[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, nil, fmt.Errorf("%w: missing column %q", ErrInvalidImport, name)
		}
	}

	for i, record := range records[1:] {
		row := i + 2
		cell := func(name string) string {
			idx, ok := columns[name]
			if !ok || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}
		entry, err := importRow(cell)
		if err != nil {
			skipped = append(skipped, fmt.Sprintf("row %d: %v", row, err))
			continue
		}
		entries = append(entries, entry)
	}
	return entries, skipped, nil
}

func importRow(cell func(string) string) (CardEntry, error) {
	entry := CardEntry{
		Code:       cell("code"),
		Name:       cell("name"),
		Colors:     splitCell(cell("colors")),
		Keywords:   splitCell(cell("keywords")),
		Types:      splitCell(cell("types")),
		Attributes: splitCell(cell("attributes")),
	}
	if entry.Code == "" {
		return CardEntry{}, fmt.Errorf("missing code")
	}
	category, err := parseCategory(cell("category"))
	if err != nil {
		return CardEntry{}, err
	}
	entry.Category = string(category)

	for name, dst := range map[string]*int{"cost": &entry.Cost, "power": &entry.Power, "counter": &entry.Counter} {
		raw := cell(name)
		if raw == "" || raw == "-" {
			continue
		}
		n, err := cast.ToIntE(raw)
		if err != nil {
			return CardEntry{}, fmt.Errorf("%s: %q is not a number", name, raw)
		}
		*dst = n
	}
	return entry, nil
}

func splitCell(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, "/") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Merge upserts imported cards into file by code. Printed fields are
// replaced; effects already written for a card are kept. Cards are left
// sorted by code.
func Merge(file *File, imported []CardEntry) ImportResult {
	var result ImportResult
	index := make(map[string]int, len(file.Cards))
	for i, c := range file.Cards {
		index[c.Code] = i
	}
	for _, entry := range imported {
		if i, ok := index[entry.Code]; ok {
			entry.Effects = file.Cards[i].Effects
			file.Cards[i] = entry
			result.Updated++
			continue
		}
		index[entry.Code] = len(file.Cards)
		file.Cards = append(file.Cards, entry)
		result.Added++
	}
	sort.SliceStable(file.Cards, func(i, j int) bool {
		return file.Cards[i].Code < file.Cards[j].Code
	})
	return result
}

// ReadFile reads a catalog file, returning an empty file if it does not
// exist yet.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &File{}, nil
	}
	if err != nil {
		return nil, err
	}
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog YAML: %w", err)
	}
	return &file, nil
}

// Marshal encodes a catalog file as YAML.
func (f *File) Marshal() ([]byte, error) {
	return yaml.Marshal(f)
}
