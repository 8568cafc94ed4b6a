package notifier

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kktt667/Pair-Finder/internal/model"
)

// MaxSummaryRows caps the rows listed in a scan summary message.
const MaxSummaryRows = 40

// FormatSummary formats the rows of a completed scan.
func FormatSummary(finishedAt time.Time, params model.ScanParameters, rows []model.SummaryRow, failed int) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>Vix Fix scan</b> | %s\n", finishedAt.UTC().Format("2006-01-02 15:04 MST")))
	b.WriteString(fmt.Sprintf("interval %s, last %d days", params.Interval, params.LookbackDays))
	if params.UseHighs {
		b.WriteString(", tops")
	}
	b.WriteString("\n\n")

	if len(rows) == 0 {
		b.WriteString("No active signals.\n")
	}
	for i, r := range rows {
		if i == MaxSummaryRows {
			b.WriteString(fmt.Sprintf("… and %d more\n", len(rows)-MaxSummaryRows))
			break
		}
		b.WriteString(fmt.Sprintf("<code>%-14s</code> %s %+.2f%% %s\n",
			r.Symbol, formatPrice(r.Close), r.PercentChange, formatTiers(r.Tiers)))
	}
	if failed > 0 {
		b.WriteString(fmt.Sprintf("\n⚠️ %d symbols failed to load\n", failed))
	}
	return b.String()
}

// FormatDetail formats the latest values and recent alerts of one symbol.
func FormatDetail(d *model.Detail, recentBars int) string {
	var b strings.Builder
	n := d.Series.Len()
	b.WriteString(fmt.Sprintf("🔎 <b>%s</b> | %s\n", d.Series.Symbol, d.Params.Interval))
	if n == 0 {
		b.WriteString("no data\n")
		return b.String()
	}

	last := d.Series.Candles[n-1]
	ind := d.Indicator.Rounded()
	b.WriteString(fmt.Sprintf("close %s  high %s  low %s\n", formatPrice(last.Close), formatPrice(last.High), formatPrice(last.Low)))
	b.WriteString(fmt.Sprintf("WVF %s  upper %s  range high %s\n\n",
		formatValue(ind.WVF[n-1]), formatValue(ind.UpperBand[n-1]), formatValue(ind.RangeHigh[n-1])))

	from := max(n-recentBars, 0)
	found := false
	for i := n - 1; i >= from; i-- {
		if !d.Alerts.AnyAt(i) {
			continue
		}
		found = true
		b.WriteString(fmt.Sprintf("%s %s\n", d.Series.Candles[i].Time.UTC().Format("2006-01-02 15:04"), formatTiers(d.Alerts.TiersAt(i))))
	}
	if !found {
		b.WriteString(fmt.Sprintf("no alerts in the last %d bars\n", n-from))
	}
	return b.String()
}

// FormatHelp lists the bot commands.
func FormatHelp() string {
	return "<b>Commands</b>\n" +
		"/scan run a scan now\n" +
		"/signals show the last scan\n" +
		"/detail SYMBOL show one symbol\n" +
		"/help this message"
}

// formatTiers renders the four alert tiers as A1..A4 badges.
func formatTiers(tiers [4]bool) string {
	parts := make([]string, 0, 4)
	for i, on := range tiers {
		if on {
			parts = append(parts, fmt.Sprintf("A%d", i+1))
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}

func formatPrice(v float64) string {
	switch abs := math.Abs(v); {
	case abs >= 100:
		return fmt.Sprintf("%.2f", v)
	case abs >= 1:
		return fmt.Sprintf("%.4f", v)
	default:
		return fmt.Sprintf("%.6g", v)
	}
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}
