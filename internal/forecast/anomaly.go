package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/stat"

	"supplypulse/pkg/contracts/domain"
)

// AnomalyOptions configures the Z-score scan
type AnomalyOptions struct {
	// Threshold is the absolute Z-score above which a transaction is flagged
	Threshold float64
	// MinTransactions is the count a category must exceed to be evaluated
	MinTransactions int
}

// DefaultAnomalyOptions returns the standard scan settings
func DefaultAnomalyOptions() AnomalyOptions {
	return AnomalyOptions{Threshold: 3, MinTransactions: 10}
}

// AnomalyDetector flags transactions whose amount is an outlier within
// their category.
type AnomalyDetector struct {
	opts   AnomalyOptions
	logger *slog.Logger
}

// NewAnomalyDetector creates a detector. Non-positive options take defaults.
func NewAnomalyDetector(opts AnomalyOptions, logger *slog.Logger) *AnomalyDetector {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultAnomalyOptions()
	if opts.Threshold <= 0 {
		opts.Threshold = def.Threshold
	}
	if opts.MinTransactions <= 0 {
		opts.MinTransactions = def.MinTransactions
	}
	return &AnomalyDetector{
		opts:   opts,
		logger: logger.With(slog.String("component", "anomaly_detector")),
	}
}

// Detect scores every category separately. Categories with too few
// transactions or no variance are reported as not evaluated; a category
// whose statistics are not finite is reported as failed and the scan
// continues with the next one.
func (d *AnomalyDetector) Detect(ctx context.Context, ds *domain.Dataset) (domain.AnomalyReport, error) {
	report := domain.AnomalyReport{Threshold: d.opts.Threshold}

	var order []string
	byCategory := make(map[string][]domain.Record)
	for _, r := range ds.All() {
		if _, ok := byCategory[r.Category]; !ok {
			order = append(order, r.Category)
		}
		byCategory[r.Category] = append(byCategory[r.Category], r)
	}

	for _, category := range order {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		anomalies, eval := d.scoreCategory(category, byCategory[category])
		report.Anomalies = append(report.Anomalies, anomalies...)
		report.Categories = append(report.Categories, eval)
	}

	d.logger.InfoContext(ctx, "Anomaly scan completed",
		slog.String("kind", string(ds.Kind())),
		slog.Int("categories", len(report.Categories)),
		slog.Int("anomalies", len(report.Anomalies)))
	return report, nil
}

func (d *AnomalyDetector) scoreCategory(category string, records []domain.Record) ([]domain.AnomalyRecord, domain.CategoryEvaluation) {
	eval := domain.CategoryEvaluation{Category: category, Transactions: len(records)}

	if len(records) <= d.opts.MinTransactions {
		eval.Status = domain.NotEvaluated
		eval.Reason = fmt.Sprintf("insufficient data: %d transactions", len(records))
		return nil, eval
	}

	amounts := make([]float64, len(records))
	for i, r := range records {
		amounts[i] = r.Amount
	}
	// population statistics (ddof = 0)
	mean, variance := stat.PopMeanVariance(amounts, nil)
	if !finite(mean, variance) {
		eval.Status = domain.Failed
		eval.Reason = "model failure: non-finite category statistics"
		d.logger.Debug("Anomaly scoring failed", slog.String("category", category))
		return nil, eval
	}
	if variance == 0 {
		eval.Status = domain.NotEvaluated
		eval.Reason = "zero variance"
		return nil, eval
	}

	std := math.Sqrt(variance)
	var anomalies []domain.AnomalyRecord
	for i, r := range records {
		z := (amounts[i] - mean) / std
		if math.Abs(z) <= d.opts.Threshold {
			continue
		}
		anomalies = append(anomalies, domain.AnomalyRecord{
			Row:            r.Row,
			Date:           r.Date,
			Organization:   r.Organization,
			Article:        r.Article,
			Supplier:       r.Supplier,
			Equipment:      r.Equipment,
			Category:       category,
			Amount:         r.Amount,
			ZScore:         z,
			CategoryMean:   mean,
			CategoryStdDev: std,
		})
	}

	eval.Status = domain.Evaluated
	eval.Flagged = len(anomalies)
	return anomalies, eval
}
