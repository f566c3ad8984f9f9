// Package schema normalizes raw tabular uploads into the engine's record
// model: it resolves column aliases, coerces amounts and timestamps, and
// resolves optional-column capabilities once for the whole dataset.
package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"fraudscope/internal/models"
)

// SchemaError means a required column could not be resolved for the
// dataset as a whole. The run is rejected.
type SchemaError struct {
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: required column %q could not be resolved", e.Column)
}

// DataQualityError means too many rows had unparsable required values.
type DataQualityError struct {
	BadRows  int
	Total    int
	MaxRatio float64
}

func (e *DataQualityError) Error() string {
	return fmt.Sprintf("data quality: %d of %d rows unparsable (limit %.0f%%)",
		e.BadRows, e.Total, e.MaxRatio*100)
}

// Column aliases are matched case-insensitively after trimming.
var (
	userIDAliases    = []string{"user_id", "userid", "customer_id", "customerid", "account_id", "user"}
	amountAliases    = []string{"amount", "transaction_amount", "txn_amount", "amt", "value"}
	timestampAliases = []string{"timestamp", "transaction_time", "txn_time", "datetime", "date", "time"}
	txnIDAliases     = []string{"transaction_id", "txn_id", "tx_id", "id"}

	merchantAliases    = []string{"merchant", "merchant_id", "merchant_name", "payee"}
	categoryAliases    = []string{"category", "merchant_category", "mcc"}
	countryAliases     = []string{"country", "country_code", "location_country"}
	latitudeAliases    = []string{"latitude", "lat"}
	longitudeAliases   = []string{"longitude", "lon", "lng", "long"}
	deviceAliases      = []string{"device_id", "deviceid", "device", "device_fingerprint"}
	ipAliases          = []string{"ip_address", "ip", "ipaddress", "client_ip"}
	failedLoginAliases = []string{"failed_login_attempts", "failed_logins", "failed_login_count"}
	newPayeeAliases    = []string{"is_new_payee", "new_payee"}
)

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
}

// Normalizer validates and coerces raw rows into a Dataset.
type Normalizer struct {
	// MaxUnparsableRatio is the fraction of rows allowed to have an
	// unparsable required value before the run fails.
	MaxUnparsableRatio float64
}

func NewNormalizer(maxUnparsableRatio float64) *Normalizer {
	if maxUnparsableRatio <= 0 {
		maxUnparsableRatio = 0.5
	}
	return &Normalizer{MaxUnparsableRatio: maxUnparsableRatio}
}

// Normalize turns a header plus raw string rows into a Dataset. The
// output always has exactly one record per input row, in input order.
func (n *Normalizer) Normalize(header []string, rows [][]string) (*models.Dataset, error) {
	cols := indexColumns(header)

	userIdx, ok := resolve(cols, userIDAliases)
	if !ok {
		return nil, &SchemaError{Column: "user_id"}
	}
	amountIdx, ok := resolve(cols, amountAliases)
	if !ok {
		return nil, &SchemaError{Column: "amount"}
	}
	timeIdx, ok := resolve(cols, timestampAliases)
	if !ok {
		return nil, &SchemaError{Column: "timestamp"}
	}

	txnIdx, hasTxnID := resolve(cols, txnIDAliases)
	merchantIdx, hasMerchant := resolve(cols, merchantAliases)
	categoryIdx, hasCategory := resolve(cols, categoryAliases)
	countryIdx, hasCountry := resolve(cols, countryAliases)
	latIdx, hasLat := resolve(cols, latitudeAliases)
	lonIdx, hasLon := resolve(cols, longitudeAliases)
	deviceIdx, hasDevice := resolve(cols, deviceAliases)
	ipIdx, hasIP := resolve(cols, ipAliases)
	failedIdx, hasFailed := resolve(cols, failedLoginAliases)
	payeeIdx, hasPayee := resolve(cols, newPayeeAliases)
	hasGeo := hasLat && hasLon

	records := make([]models.TransactionRecord, 0, len(rows))
	badRows := 0

	for i, row := range rows {
		rec := models.TransactionRecord{Index: i}

		rec.UserID = cell(row, userIdx)

		if v, err := strconv.ParseFloat(strings.TrimSpace(cell(row, amountIdx)), 64); err == nil {
			rec.Amount = v
			rec.HasAmount = true
		}
		if ts, ok := parseTimestamp(cell(row, timeIdx)); ok {
			rec.Timestamp = ts
			rec.HasTimestamp = true
		}
		if rec.UserID == "" || !rec.HasAmount || !rec.HasTimestamp {
			badRows++
		}

		if hasTxnID {
			rec.TransactionID = cell(row, txnIdx)
		}
		if rec.TransactionID == "" {
			rec.TransactionID = fmt.Sprintf("row-%d", i+1)
		}

		if hasMerchant {
			rec.Merchant = cell(row, merchantIdx)
		}
		if hasCategory {
			rec.Category = cell(row, categoryIdx)
		}
		if hasCountry {
			rec.Country = strings.ToUpper(strings.TrimSpace(cell(row, countryIdx)))
		}
		if hasGeo {
			lat, latErr := strconv.ParseFloat(strings.TrimSpace(cell(row, latIdx)), 64)
			lon, lonErr := strconv.ParseFloat(strings.TrimSpace(cell(row, lonIdx)), 64)
			if latErr == nil && lonErr == nil {
				rec.Latitude = lat
				rec.Longitude = lon
				rec.HasLocation = true
			}
		}
		if hasDevice {
			rec.DeviceID = cell(row, deviceIdx)
		}
		if hasIP {
			rec.IPAddress = cell(row, ipIdx)
		}
		if hasFailed {
			if v, err := strconv.Atoi(strings.TrimSpace(cell(row, failedIdx))); err == nil && v >= 0 {
				rec.FailedLogins = v
			}
		}
		if hasPayee {
			rec.IsNewPayee = parseBool(cell(row, payeeIdx))
		}

		records = append(records, rec)
	}

	if len(records) > 0 {
		ratio := float64(badRows) / float64(len(records))
		if ratio > n.MaxUnparsableRatio {
			return nil, &DataQualityError{BadRows: badRows, Total: len(records), MaxRatio: n.MaxUnparsableRatio}
		}
	}

	return &models.Dataset{
		Records: records,
		Capabilities: models.Capabilities{
			Geo:          hasGeo,
			Country:      hasCountry,
			Device:       hasDevice,
			IP:           hasIP,
			Merchant:     hasMerchant,
			FailedLogins: hasFailed,
			NewPayee:     hasPayee,
		},
	}, nil
}

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, exists := cols[key]; !exists {
			cols[key] = i
		}
	}
	return cols
}

func resolve(cols map[string]int, aliases []string) (int, bool) {
	for _, alias := range aliases {
		if idx, ok := cols[alias]; ok {
			return idx, true
		}
	}
	return -1, false
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	// Unix seconds show up in exported datasets often enough to accept.
	if v, err := strconv.ParseInt(s, 10, 64); err == nil && v > 1_000_000_000 && v < 10_000_000_000 {
		return time.Unix(v, 0).UTC(), true
	}
	return time.Time{}, false
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "t", "yes", "y":
		return true
	}
	return false
}
