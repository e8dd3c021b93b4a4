// Package loader supplies the flat certificate split record set from its
// supported sources: a Postgres source table, CSV extracts, or XLSX
// extracts. Every loader filters to active certificates and returns records
// ready for extraction.
package loader

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/commission-staging/internal/model"
)

// Loader produces the complete input record set for one batch.
type Loader interface {
	Load(ctx context.Context) ([]model.CertificateSplitRecord, error)
}

var dateLayouts = []string{"2006-01-02", "01/02/2006", time.RFC3339}

// parseDate tries the supported source date layouts.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Truncate(24 * time.Hour), nil
		}
	}
	return time.Time{}, eris.Errorf("loader: unparseable date %q", s)
}

// activeStatus reports whether a certificate status counts as active. The
// feed is pre-filtered by contract; blank statuses are treated as active.
func activeStatus(status string) bool {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "", "A", "ACTIVE":
		return true
	}
	return false
}

// mapColumns builds a case-insensitive column name to index map.
func mapColumns(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, col := range header {
		m[strings.ToLower(strings.TrimSpace(col))] = i
	}
	return m
}

// getCol gets a column value by name, returning empty string if absent.
func getCol(row []string, colIdx map[string]int, name string) string {
	idx, ok := colIdx[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// recordFromStrings converts one string row (CSV/XLSX shape) into a
// certificate split record.
func recordFromStrings(row []string, colIdx map[string]int) (model.CertificateSplitRecord, error) {
	date, err := parseDate(getCol(row, colIdx, "effective_date"))
	if err != nil {
		return model.CertificateSplitRecord{}, err
	}

	return model.CertificateSplitRecord{
		CertificateID:  getCol(row, colIdx, "certificate_id"),
		GroupID:        getCol(row, colIdx, "group_id"),
		GroupName:      getCol(row, colIdx, "group_name"),
		EffectiveDate:  date,
		ProductCode:    getCol(row, colIdx, "product_code"),
		PlanCode:       getCol(row, colIdx, "plan_code"),
		CertStatus:     getCol(row, colIdx, "cert_status"),
		SitusState:     getCol(row, colIdx, "situs_state"),
		Premium:        parseFloatOr(getCol(row, colIdx, "premium"), 0),
		SplitSequence:  parseIntOr(getCol(row, colIdx, "split_sequence"), 1),
		SplitPercent:   parseFloatOr(getCol(row, colIdx, "split_percent"), 0),
		TierLevel:      parseIntOr(getCol(row, colIdx, "tier_level"), 1),
		BrokerID:       getCol(row, colIdx, "broker_id"),
		BrokerName:     getCol(row, colIdx, "broker_name"),
		BrokerNPN:      getCol(row, colIdx, "broker_npn"),
		ScheduleCode:   getCol(row, colIdx, "schedule_code"),
		PaidBrokerID:   getCol(row, colIdx, "paid_broker_id"),
		PaidBrokerName: getCol(row, colIdx, "paid_broker_name"),
	}, nil
}

func parseIntOr(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return n
}

func parseFloatOr(s string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fallback
	}
	return f
}
