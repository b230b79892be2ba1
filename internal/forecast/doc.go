// Package forecast holds the predictive stages of the pipeline.
//
// # Demand forecast
//
// Forecaster picks the top articles of a dataset by summed quantity (spend
// for equipment), builds each one's monthly history and fits an
// ARIMA(1,1,1) model without constant. Coefficients are estimated by
// conditional sum of squares on the differenced series with a Nelder-Mead
// search (gonum/optimize); tanh keeps both coefficients inside (-1, 1).
// Forecasts cover six months and never go below zero.
//
// Every article ends in exactly one ForecastOutcome:
//
//   - succeeded, with its series and a stock recommendation
//   - insufficient_data, when fewer than three months were observed
//   - model_failure, when the fit degenerates or produces non-finite values
//
// # Anomalies
//
// AnomalyDetector computes per-category Z-scores of transaction amounts
// with the population standard deviation and flags |Z| > 3. Categories with
// ten transactions or fewer, or without variance, are not evaluated.
//
// # Projection
//
// Project extends a least-squares line through monthly totals by three
// months with a ±30% band.
package forecast
