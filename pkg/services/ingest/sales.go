package ingest

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/de-tools/promo-lab/pkg/models/domain"
	"github.com/de-tools/promo-lab/pkg/models/store"
	"github.com/de-tools/promo-lab/pkg/store/baseline"
	"github.com/de-tools/promo-lab/pkg/store/sqldb"
	"github.com/rs/zerolog"
)

var salesColumns = []string{
	"date", "channel", "department", "promo_flag", "discount_pct", "sales_value", "margin_value", "units",
}

type Settings struct {
	// BatchSize is the number of sales rows written per transaction (default: 500)
	BatchSize int
}

func DefaultSettings() Settings {
	return Settings{BatchSize: 500}
}

type Progress struct {
	ProcessedRecords int64
	LastDate         time.Time
}

// Loader fills the baseline store from sales exports and model files.
type Loader struct {
	db       *sql.DB
	store    baseline.Store
	settings Settings
	progress func(Progress)
}

func NewLoader(db *sql.DB, store baseline.Store, settings Settings) *Loader {
	if settings.BatchSize <= 0 {
		settings.BatchSize = DefaultSettings().BatchSize
	}
	return &Loader{
		db:       db,
		store:    store,
		settings: settings,
		progress: func(Progress) {},
	}
}

// OnProgress registers a callback invoked after every committed batch.
func (l *Loader) OnProgress(fn func(Progress)) {
	l.progress = fn
}

// LoadSales reads a CSV export with a header row and writes it in batches,
// one transaction per batch. Batches committed before a failure stay committed.
func (l *Loader) LoadSales(ctx context.Context, r io.Reader) (int64, error) {
	logger := zerolog.Ctx(ctx)

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}
	index, err := columnIndex(header)
	if err != nil {
		return 0, err
	}

	var (
		processed int64
		batch     = make([]store.SalesRecord, 0, l.settings.BatchSize)
		line      = 1
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := sqldb.InTransaction(ctx, l.db, func(ctx context.Context) error {
			return l.store.AddSales(ctx, batch)
		})
		if err != nil {
			return fmt.Errorf("store batch ending at line %d: %w", line, err)
		}
		processed += int64(len(batch))
		l.progress(Progress{ProcessedRecords: processed, LastDate: batch[len(batch)-1].Date})
		logger.Debug().Int64("processed", processed).Msg("sales batch committed")
		batch = batch[:0]
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return processed, fmt.Errorf("read line %d: %w", line, err)
		}

		record, err := parseSalesRow(row, index)
		if err != nil {
			return processed, fmt.Errorf("line %d: %w", line, err)
		}
		batch = append(batch, record)
		if len(batch) == l.settings.BatchSize {
			if err := flush(); err != nil {
				return processed, err
			}
		}
	}
	if err := flush(); err != nil {
		return processed, err
	}

	logger.Info().Int64("records", processed).Msg("sales loaded")
	return processed, nil
}

func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	var missing []string
	for _, col := range salesColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return index, nil
}

func parseSalesRow(row []string, index map[string]int) (store.SalesRecord, error) {
	get := func(col string) string {
		return strings.TrimSpace(row[index[col]])
	}

	date, err := time.Parse(domain.DateLayout, get("date"))
	if err != nil {
		return store.SalesRecord{}, fmt.Errorf("date: %w", err)
	}
	promo, err := strconv.ParseBool(get("promo_flag"))
	if err != nil {
		return store.SalesRecord{}, fmt.Errorf("promo_flag: %w", err)
	}

	numbers := map[string]float64{}
	for _, col := range []string{"discount_pct", "sales_value", "margin_value", "units"} {
		raw := get(col)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return store.SalesRecord{}, fmt.Errorf("%s: %w", col, err)
		}
		numbers[col] = v
	}

	department := get("department")
	if department == "" {
		return store.SalesRecord{}, fmt.Errorf("department is empty")
	}

	return store.SalesRecord{
		Date:        date,
		Channel:     strings.ToLower(get("channel")),
		Department:  department,
		PromoFlag:   promo,
		DiscountPct: numbers["discount_pct"],
		SalesValue:  numbers["sales_value"],
		MarginValue: numbers["margin_value"],
		Units:       numbers["units"],
	}, nil
}
