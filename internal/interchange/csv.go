package interchange

import (
	"bytes"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"github.com/xelth-com/pantrysync/internal/models"
)

// RequiredColumns must be present in a product CSV header.
var RequiredColumns = []string{"name", "category"}

// CSVRow is one line of a product CSV. Flags are read as text and coerced
// so that "yes", "1" and blanks all work.
type CSVRow struct {
	Name       string `csv:"name"`
	Category   string `csv:"category"`
	InShopping string `csv:"inShopping,omitempty"`
	InPantry   string `csv:"inPantry,omitempty"`
	InStock    string `csv:"inStock,omitempty"`
	InSeason   string `csv:"inSeason,omitempty"`
}

// ParseCSV checks the header and decodes every row.
func ParseCSV(r io.Reader) ([]CSVRow, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}

	header, err := gocsv.LazyCSVReader(bytes.NewReader(raw)).Read()
	if err != nil {
		return nil, &ValidationError{Reason: "csv has no header row"}
	}
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = true
	}
	var missing []string
	for _, col := range RequiredColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Fields: missing, Reason: "missing required columns"}
	}

	var rows []CSVRow
	if err := gocsv.UnmarshalBytes(raw, &rows); err != nil {
		return nil, &ValidationError{Reason: "malformed csv (" + err.Error() + ")"}
	}
	return rows, nil
}

// Flags returns the coerced flag values keyed by flag name. Blank cells are
// left out so they do not overwrite existing values.
func (r CSVRow) Flags() map[string]bool {
	out := make(map[string]bool)
	for name, v := range map[string]string{
		models.FlagInShopping: r.InShopping,
		models.FlagInPantry:   r.InPantry,
		models.FlagInStock:    r.InStock,
		models.FlagInSeason:   r.InSeason,
	} {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		out[name] = v == "yes" || v == "y" || cast.ToBool(v)
	}
	return out
}

// EncodeCSV writes products in the import column layout.
func EncodeCSV(products []models.Product) ([]byte, error) {
	rows := make([]CSVRow, 0, len(products))
	for _, p := range products {
		rows = append(rows, CSVRow{
			Name:       p.Name,
			Category:   p.Category,
			InShopping: cast.ToString(p.InShopping),
			InPantry:   cast.ToString(p.InPantry),
			InStock:    cast.ToString(p.InStock),
			InSeason:   cast.ToString(p.InSeason),
		})
	}
	out, err := gocsv.MarshalBytes(&rows)
	return out, errors.Wrap(err, "encode csv")
}
