package server

import (
	"bytes"
	"errors"
	"io"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kktt667/Pair-Finder/internal/chart"
	"github.com/kktt667/Pair-Finder/internal/logger"
	"github.com/kktt667/Pair-Finder/internal/model"
	"github.com/kktt667/Pair-Finder/internal/scanner"
	"github.com/kktt667/Pair-Finder/internal/scheduler"
)

type handlers struct {
	cfg Config
}

// scanRequest overrides the configured parameters for one scan.
type scanRequest struct {
	Interval     *string `json:"interval"`
	LookbackDays *int    `json:"lookback_days"`
	UseHighs     *bool   `json:"use_highs"`
	Flip         *bool   `json:"flip"`
}

func (r scanRequest) apply(p model.ScanParameters) model.ScanParameters {
	if r.Interval != nil {
		p.Interval = strings.ToUpper(strings.TrimSpace(*r.Interval))
	}
	if r.LookbackDays != nil {
		p.LookbackDays = *r.LookbackDays
	}
	if r.UseHighs != nil {
		p.UseHighs = *r.UseHighs
	}
	if r.Flip != nil {
		p.Flip = *r.Flip
	}
	return p
}

type reportResponse struct {
	RunID      string               `json:"run_id"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
	Params     model.ScanParameters `json:"params"`
	Symbols    int                  `json:"symbols"`
	Rows       []model.SummaryRow   `json:"rows"`
	Rejected   int                  `json:"rejected"`
	Failures   []scanner.Failure    `json:"failures"`
	Selected   string               `json:"selected,omitempty"`
}

func newReportResponse(r *scanner.Report, rows []model.SummaryRow) reportResponse {
	failures := r.Failures
	if failures == nil {
		failures = []scanner.Failure{}
	}
	return reportResponse{
		RunID:      r.RunID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Params:     r.Params,
		Symbols:    len(r.Symbols),
		Rows:       rows,
		Rejected:   len(r.Rejected),
		Failures:   failures,
	}
}

// frameResponse carries indicator values rounded for display, with null for
// bars where the indicator is undefined.
type frameResponse struct {
	WVF       []*float64 `json:"wvf"`
	LowerBand []*float64 `json:"lower_band"`
	UpperBand []*float64 `json:"upper_band"`
	RangeHigh []*float64 `json:"range_high"`
	RangeLow  []*float64 `json:"range_low"`
}

type detailResponse struct {
	Symbol    string               `json:"symbol"`
	Interval  string               `json:"interval"`
	Candles   []model.Candle       `json:"candles"`
	Indicator frameResponse        `json:"indicator"`
	Alerts    model.AlertFrame     `json:"alerts"`
	Params    model.ScanParameters `json:"params"`
}

func newDetailResponse(d *model.Detail) detailResponse {
	ind := d.Indicator.Rounded()
	return detailResponse{
		Symbol:   d.Series.Symbol,
		Interval: d.Series.Interval,
		Candles:  d.Series.Candles,
		Indicator: frameResponse{
			WVF:       nullable(ind.WVF),
			LowerBand: nullable(ind.LowerBand),
			UpperBand: nullable(ind.UpperBand),
			RangeHigh: nullable(ind.RangeHigh),
			RangeLow:  nullable(ind.RangeLow),
		},
		Alerts: d.Alerts,
		Params: d.Params,
	}
}

func nullable(in []float64) []*float64 {
	out := make([]*float64, len(in))
	for i, v := range in {
		v := v
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out[i] = &v
	}
	return out
}

func (h *handlers) scan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	params := req.apply(h.cfg.Params)

	report, err := h.cfg.Runner.RunScan(c.Request.Context(), scheduler.TriggerHTTP, params)
	if err != nil {
		var cfgErr *model.ConfigurationError
		switch {
		case errors.As(err, &cfgErr):
			c.JSON(http.StatusBadRequest, gin.H{"error": cfgErr.Error(), "problems": cfgErr.Problems})
		case errors.Is(err, scheduler.ErrScanInProgress):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, newReportResponse(report, scanner.Summarize(report.Results)))
}

func (h *handlers) signals(c *gin.Context) {
	report := h.cfg.Session.Report()
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no scan has completed yet"})
		return
	}
	resp := newReportResponse(report, h.cfg.Session.Summary())
	resp.Selected = h.cfg.Session.Selected()
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) loadDetail(c *gin.Context) (*model.Detail, bool) {
	symbol := strings.ToUpper(c.Param("symbol"))
	d, err := h.cfg.Scanner.SelectDetail(c.Request.Context(), h.cfg.Session, symbol)
	if errors.Is(err, scanner.ErrUnknownSymbol) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return nil, false
	}
	if err != nil {
		logger.Warnf("detail %s: %v", symbol, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return nil, false
	}
	return d, true
}

func (h *handlers) detail(c *gin.Context) {
	d, ok := h.loadDetail(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newDetailResponse(d))
}

func (h *handlers) chart(c *gin.Context) {
	d, ok := h.loadDetail(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := chart.Render(&buf, d); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (h *handlers) tickers(c *gin.Context) {
	if h.cfg.Tickers == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "the data source has no ticker feed"})
		return
	}
	tickers, err := h.cfg.Tickers.FetchTickers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if quote := strings.ToUpper(c.Query("quote")); quote != "" {
		kept := tickers[:0]
		for _, t := range tickers {
			if strings.HasSuffix(t.Symbol, quote) {
				kept = append(kept, t)
			}
		}
		tickers = kept
	}
	sort.Slice(tickers, func(i, j int) bool { return tickers[i].Turnover24h > tickers[j].Turnover24h })
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if limit > 0 && len(tickers) > limit {
		tickers = tickers[:limit]
	}
	c.JSON(http.StatusOK, gin.H{"tickers": tickers})
}

func (h *handlers) runs(c *gin.Context) {
	if h.cfg.Recorder == nil {
		c.JSON(http.StatusOK, gin.H{"runs": []any{}})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	runs, err := h.cfg.Recorder.RecentScans(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}
