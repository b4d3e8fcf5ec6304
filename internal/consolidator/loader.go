package consolidator

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wonny/supplycast/internal/artifacts"
	"github.com/wonny/supplycast/internal/contracts"
)

// LoadForecasts reads every algorithm output of the supplier in the data folder
func LoadForecasts(layout artifacts.Layout, supplier int64) ([]contracts.ForecastRow, error) {
	paths, err := filepath.Glob(layout.ForecastGlob(supplier))
	if err != nil {
		return nil, fmt.Errorf("glob forecasts: %w", err)
	}
	sort.Strings(paths)

	var out []contracts.ForecastRow
	for _, p := range paths {
		rows, err := artifacts.ReadForecast(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filepath.Base(p), err)
		}
		out = append(out, rows...)
	}
	return out, nil
}

// SupplierLabel returns the cache label shared by the supplier's forecast artifacts
func SupplierLabel(layout artifacts.Layout, supplier int64) (string, error) {
	paths, err := filepath.Glob(layout.ForecastGlob(supplier))
	if err != nil {
		return "", fmt.Errorf("glob forecasts: %w", err)
	}
	if len(paths) == 0 {
		return "", fmt.Errorf("no forecast artifacts for supplier %d in %s", supplier, layout.Dir)
	}
	sort.Strings(paths)

	name := strings.TrimSuffix(filepath.Base(paths[0]), artifacts.ForecastSuffix)
	return contracts.Execution{Name: name}.Label(), nil
}
