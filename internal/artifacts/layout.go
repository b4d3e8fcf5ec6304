package artifacts

import (
	"fmt"
	"path/filepath"
)

// ForecastSuffix ends every algorithm output artifact name
const ForecastSuffix = "_Solicitudes_Compra.csv"

// Layout resolves artifact file names inside the data folder (FOLDER_DATOS)
// ⭐ SSOT: artifact 파일 이름은 여기서만 정의
type Layout struct {
	Dir string
}

// NewLayout 새 레이아웃 생성
func NewLayout(dir string) Layout {
	return Layout{Dir: dir}
}

// Sales is the merged sales + item cache keyed by supplier label
func (l Layout) Sales(label string) string {
	return filepath.Join(l.Dir, label+".csv")
}

// SalesCompact holds only (date, article, branch, units)
func (l Layout) SalesCompact(label string) string {
	return filepath.Join(l.Dir, label+"_Ventas.csv")
}

// Items is the item master cache
func (l Layout) Items(label string) string {
	return filepath.Join(l.Dir, label+"_Articulos.csv")
}

// Forecast is the per-execution algorithm output (status 20)
func (l Layout) Forecast(name string) string {
	return filepath.Join(l.Dir, name+ForecastSuffix)
}

// Extended is the forecast merged with reference data (status 30)
func (l Layout) Extended(name string) string {
	return filepath.Join(l.Dir, name+"_Pronostico_Extendido.csv")
}

// MissingMapping lists the (article, branch) pairs without canonical ids
func (l Layout) MissingMapping(name string) string {
	return filepath.Join(l.Dir, name+"_Errores_Missing_UUID.csv")
}

// Checkpoint is the resumable partial chart output
func (l Layout) Checkpoint(name string) string {
	return filepath.Join(l.Dir, name+"_Pronostico_Extendido_Con_Graficos.csv")
}

// Final is the charted artifact ready for publication (status 40)
func (l Layout) Final(name string) string {
	return filepath.Join(l.Dir, name+"_Pronostico_Extendido_FINAL.csv")
}

// Backtest is the rolling backtest report of a supplier
func (l Layout) Backtest(supplierCode int64) string {
	return filepath.Join(l.Dir, fmt.Sprintf("%d_Backtest.csv", supplierCode))
}

// ForecastGlob matches every algorithm output of a supplier
func (l Layout) ForecastGlob(supplierCode int64) string {
	return filepath.Join(l.Dir, fmt.Sprintf("%d_*", supplierCode)+ForecastSuffix)
}

// PublishedArtifacts are the files archived after a complete publication
func (l Layout) PublishedArtifacts(name string) []string {
	return []string{l.Final(name), l.Checkpoint(name), l.Forecast(name)}
}
