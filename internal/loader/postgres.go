package loader

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/commission-staging/internal/db"
	"github.com/sells-group/commission-staging/internal/model"
)

// sourceColumns is the column order for the source table query and scan.
var sourceColumns = []string{
	"certificate_id", "group_id", "group_name", "effective_date",
	"product_code", "plan_code", "cert_status", "situs_state", "premium",
	"split_sequence", "split_percent", "tier_level",
	"broker_id", "broker_name", "broker_npn", "schedule_code",
	"paid_broker_id", "paid_broker_name",
}

// Postgres loads certificate split records from a source table. The query
// orders by (certificate_id, split_sequence, tier_level) so the record
// stream arrives in the contract's stable order.
type Postgres struct {
	pool  db.Pool
	table string
}

// NewPostgres creates a Postgres loader against the given source table.
func NewPostgres(pool db.Pool, table string) *Postgres {
	return &Postgres{pool: pool, table: table}
}

// Load queries the full active record set.
func (l *Postgres) Load(ctx context.Context) ([]model.CertificateSplitRecord, error) {
	log := zap.L().With(zap.String("component", "loader.postgres"))

	sql := fmt.Sprintf(
		`SELECT %s FROM %s WHERE upper(coalesce(cert_status, 'A')) IN ('A', 'ACTIVE')
		 ORDER BY certificate_id, split_sequence, tier_level`,
		joinColumns(sourceColumns), l.table,
	)

	rows, err := l.pool.Query(ctx, sql)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: query %s", l.table)
	}
	defer rows.Close()

	var records []model.CertificateSplitRecord
	for rows.Next() {
		var rec model.CertificateSplitRecord
		if err := rows.Scan(
			&rec.CertificateID, &rec.GroupID, &rec.GroupName, &rec.EffectiveDate,
			&rec.ProductCode, &rec.PlanCode, &rec.CertStatus, &rec.SitusState, &rec.Premium,
			&rec.SplitSequence, &rec.SplitPercent, &rec.TierLevel,
			&rec.BrokerID, &rec.BrokerName, &rec.BrokerNPN, &rec.ScheduleCode,
			&rec.PaidBrokerID, &rec.PaidBrokerName,
		); err != nil {
			return nil, eris.Wrap(err, "loader: scan source row")
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "loader: read %s", l.table)
	}

	log.Info("postgres load complete", zap.String("table", l.table), zap.Int("records", len(records)))
	return records, nil
}

func joinColumns(cols []string) string {
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}
