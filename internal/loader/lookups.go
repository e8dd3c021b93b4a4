package loader

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/commission-staging/internal/model"
)

type scheduleMapRow struct {
	ScheduleCode string `csv:"schedule_code"`
	ScheduleID   int64  `csv:"schedule_id"`
}

type brokerMapRow struct {
	BrokerID string `csv:"broker_id"`
	MappedID string `csv:"mapped_id"`
}

// LoadLookups reads the externally supplied reference maps. Either path may
// be empty, yielding an empty map for that lookup: broker ids then pass
// through unchanged and all schedule codes resolve to 0 with warnings.
func LoadLookups(schedulePath, brokerPath string) (model.Lookups, error) {
	lookups := model.Lookups{
		BrokerIDs:   make(map[string]string),
		ScheduleIDs: make(map[string]int64),
	}

	if schedulePath != "" {
		rows, err := decodeCSVFile[scheduleMapRow](schedulePath)
		if err != nil {
			return model.Lookups{}, eris.Wrap(err, "lookups: schedule map")
		}
		for _, row := range rows {
			lookups.ScheduleIDs[row.ScheduleCode] = row.ScheduleID
		}
	}

	if brokerPath != "" {
		rows, err := decodeCSVFile[brokerMapRow](brokerPath)
		if err != nil {
			return model.Lookups{}, eris.Wrap(err, "lookups: broker map")
		}
		for _, row := range rows {
			lookups.BrokerIDs[row.BrokerID] = row.MappedID
		}
	}

	return lookups, nil
}

func decodeCSVFile[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	dec, err := csvutil.NewDecoder(reader)
	if err != nil {
		return nil, eris.Wrapf(err, "header %s", path)
	}

	var rows []T
	for {
		var row T
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrapf(err, "decode %s", path)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
