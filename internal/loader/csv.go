package loader

import (
	"context"
	"encoding/csv"
	"io"
	"os"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/commission-staging/internal/model"
)

// csvRecord is the CSV wire shape of one certificate split row. Dates stay
// strings here; the feed mixes layouts.
type csvRecord struct {
	CertificateID  string  `csv:"certificate_id"`
	GroupID        string  `csv:"group_id"`
	GroupName      string  `csv:"group_name"`
	EffectiveDate  string  `csv:"effective_date"`
	ProductCode    string  `csv:"product_code"`
	PlanCode       string  `csv:"plan_code"`
	CertStatus     string  `csv:"cert_status"`
	SitusState     string  `csv:"situs_state"`
	Premium        float64 `csv:"premium"`
	SplitSequence  int     `csv:"split_sequence"`
	SplitPercent   float64 `csv:"split_percent"`
	TierLevel      int     `csv:"tier_level"`
	BrokerID       string  `csv:"broker_id"`
	BrokerName     string  `csv:"broker_name"`
	BrokerNPN      string  `csv:"broker_npn"`
	ScheduleCode   string  `csv:"schedule_code"`
	PaidBrokerID   string  `csv:"paid_broker_id"`
	PaidBrokerName string  `csv:"paid_broker_name"`
}

// CSV loads certificate split records from a CSV extract.
type CSV struct {
	Path string
}

// NewCSV creates a CSV loader for the given file.
func NewCSV(path string) *CSV {
	return &CSV{Path: path}
}

// Load reads and converts the whole file, skipping inactive rows.
func (l *CSV) Load(ctx context.Context) ([]model.CertificateSplitRecord, error) {
	log := zap.L().With(zap.String("component", "loader.csv"))

	f, err := os.Open(l.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: open csv %s", l.Path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	dec, err := csvutil.NewDecoder(reader)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: csv header %s", l.Path)
	}

	var records []model.CertificateSplitRecord
	skipped := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "loader: csv cancelled")
		}

		var row csvRecord
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrapf(err, "loader: decode csv row %d", len(records)+skipped+1)
		}

		if !activeStatus(row.CertStatus) {
			skipped++
			continue
		}

		date, err := parseDate(row.EffectiveDate)
		if err != nil {
			return nil, eris.Wrapf(err, "loader: csv certificate %s", row.CertificateID)
		}

		records = append(records, model.CertificateSplitRecord{
			CertificateID:  row.CertificateID,
			GroupID:        row.GroupID,
			GroupName:      row.GroupName,
			EffectiveDate:  date,
			ProductCode:    row.ProductCode,
			PlanCode:       row.PlanCode,
			CertStatus:     row.CertStatus,
			SitusState:     row.SitusState,
			Premium:        row.Premium,
			SplitSequence:  row.SplitSequence,
			SplitPercent:   row.SplitPercent,
			TierLevel:      row.TierLevel,
			BrokerID:       row.BrokerID,
			BrokerName:     row.BrokerName,
			BrokerNPN:      row.BrokerNPN,
			ScheduleCode:   row.ScheduleCode,
			PaidBrokerID:   row.PaidBrokerID,
			PaidBrokerName: row.PaidBrokerName,
		})
	}

	log.Info("csv load complete", zap.Int("records", len(records)), zap.Int("inactive_skipped", skipped))
	return records, nil
}
