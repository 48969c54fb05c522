package google

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"halya/internal/core"
	"halya/internal/store"
)

// parseResidents converts a values matrix (as returned by Sheets API)
// into residents. The first row must name the columns.
func parseResidents(values [][]interface{}) ([]core.Resident, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := toStrings(values[0])
	colID := indexOf(headers, store.ColResidentID)
	colAlley := indexOf(headers, store.ColAlley)
	colHouse := indexOf(headers, store.ColHouseNumber)
	colName := indexOf(headers, store.ColResidentName)
	colSheet := indexOf(headers, store.ColSheetName)
	if missing := missingColumns(map[string]int{
		store.ColResidentID:  colID,
		store.ColAlley:       colAlley,
		store.ColHouseNumber: colHouse,
	}); len(missing) > 0 {
		return nil, fmt.Errorf("unexpected residents header: missing %s; got headers=%v", strings.Join(missing, ","), headers)
	}

	out := make([]core.Resident, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		id := safeGet(row, colID)
		if id == "" {
			continue
		}
		house, err := parseHouse(safeGet(row, colHouse))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, core.Resident{
			ResidentID:   id,
			ResidentName: safeGet(row, colName),
			Alley:        safeGet(row, colAlley),
			HouseNumber:  house,
			SheetName:    safeGet(row, colSheet),
		})
	}
	return out, nil
}

// parsePayments converts a values matrix into payments. Rows without a
// resident id are skipped.
func parsePayments(values [][]interface{}) ([]core.Payment, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := toStrings(values[0])
	colID := indexOf(headers, store.ColID)
	colResident := indexOf(headers, store.ColResidentID)
	colDesc := indexOf(headers, store.ColDescription)
	colAmount := indexOf(headers, store.ColAmount)
	colYear := indexOf(headers, store.ColYear)
	colDate := indexOf(headers, store.ColPaymentDate)
	colSheet := indexOf(headers, store.ColSheetName)
	if missing := missingColumns(map[string]int{
		store.ColResidentID:  colResident,
		store.ColDescription: colDesc,
		store.ColAmount:      colAmount,
	}); len(missing) > 0 {
		return nil, fmt.Errorf("unexpected payments header: missing %s; got headers=%v", strings.Join(missing, ","), headers)
	}

	out := make([]core.Payment, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		rec := core.PaymentRecord{
			ID:          safeGet(row, colID),
			ResidentID:  safeGet(row, colResident),
			PaymentDate: safeGet(row, colDate),
			Description: safeGet(row, colDesc),
			Amount:      safeGet(row, colAmount),
			Year:        safeGet(row, colYear),
			SheetName:   safeGet(row, colSheet),
		}
		if rec.ResidentID == "" {
			continue
		}
		p, err := rec.Payment()
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if p.ID == 0 {
			p.ID = int64(i)
		}
		out = append(out, p)
	}
	return out, nil
}

func parseHouse(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f), nil
	}
	return 0, fmt.Errorf("invalid house number %q", s)
}

func missingColumns(cols map[string]int) []string {
	var missing []string
	for name, idx := range cols {
		if idx == -1 {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

func sortStrings(s []string) {
	sort.Strings(s)
}
