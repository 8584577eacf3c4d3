package contracts

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// GetSupplyChainAnalytics aggregates every product on the ledger into a
// single report. The scan covers the PROD..PROD~ range only, so index
// entries, participants and the counter never pollute the tallies. Cost is
// O(total products); callers on large networks should expect a slow call
// and a large payload.
func (t *ProductTraceContract) GetSupplyChainAnalytics(ctx contractapi.TransactionContextInterface,
	startDate string, endDate string) (*SupplyChainAnalytics, error) {

	start, err := parsePeriodBound(startDate, time.Time{})
	if err != nil {
		return nil, validationf("invalid startDate %q: %v", startDate, err)
	}
	end, err := parsePeriodBound(endDate, time.Unix(1<<40, 0).UTC())
	if err != nil {
		return nil, validationf("invalid endDate %q: %v", endDate, err)
	}
	if end.Before(start) {
		return nil, validationf("endDate precedes startDate")
	}

	iter, err := ctx.GetStub().GetStateByRange(productIDPrefix, productIDPrefix+"~")
	if err != nil {
		return nil, fmt.Errorf("failed to scan products: %v", err)
	}
	defer iter.Close()

	report := &SupplyChainAnalytics{
		ProductsByStatus: map[string]int{},
		ProductsByType:   map[string]int{},
		ProductsByOwner:  map[string]int{},
		PeriodStart:      startDate,
		PeriodEnd:        endDate,
	}

	var (
		temperatureSum   float64
		temperatureCount int
		humiditySum      float64
		humidityCount    int
	)

	for iter.HasNext() {
		kv, err := iter.Next()
		if err != nil {
			return nil, err
		}
		var product Product
		if err := json.Unmarshal(kv.Value, &product); err != nil {
			return nil, fmt.Errorf("failed to decode product %s: %v", kv.Key, err)
		}

		report.TotalProducts++
		report.ProductsByStatus[string(product.Status)]++
		report.ProductsByType[product.ProductType]++
		report.ProductsByOwner[product.CurrentOwner]++
		report.TotalCertifications += len(product.Certifications)

		if product.Temperature != nil {
			temperatureSum += *product.Temperature
			temperatureCount++
		}
		if product.Humidity != nil {
			humiditySum += *product.Humidity
			humidityCount++
		}

		if created, err := time.Parse(time.RFC3339, product.CreatedAt); err == nil {
			if inPeriod(created, start, end) {
				report.ProductsCreatedInPeriod++
			}
		}

		for _, entry := range product.History {
			ts, err := time.Parse(time.RFC3339, entry.Timestamp)
			if err != nil || !inPeriod(ts, start, end) {
				continue
			}
			switch entry.Action {
			case actionHistoryTransferred:
				report.TransfersInPeriod++
			case actionHistoryLocation:
				report.LocationUpdatesInPeriod++
			}
		}
	}

	// Distinct owners, not the sum of per-owner counts.
	report.TotalActiveOwners = len(report.ProductsByOwner)

	if temperatureCount > 0 {
		avg := temperatureSum / float64(temperatureCount)
		report.AverageTemperature = &avg
	}
	if humidityCount > 0 {
		avg := humiditySum / float64(humidityCount)
		report.AverageHumidity = &avg
	}
	return report, nil
}

// parsePeriodBound accepts RFC3339 or plain dates; an empty bound falls
// back to the given default so half-open windows work.
func parsePeriodBound(value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", value)
}

func inPeriod(ts, start, end time.Time) bool {
	return !ts.Before(start) && !ts.After(end)
}
