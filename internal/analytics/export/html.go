package export

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/firmlens/firmlens/internal/analytics"
	"github.com/firmlens/firmlens/internal/analytics/svg"
)

var eurPrinter = message.NewPrinter(language.Latvian)

// BuildOverviewHTML renders the printable market overview: headline tables
// plus the registration trend and industry turnover charts.
func BuildOverviewHTML(overview analytics.Overview) (string, error) {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html lang=\"lv\"><head><meta charset=\"utf-8\"><style>")
	b.WriteString("body{font-family:\"DejaVu Sans\",Arial,sans-serif;font-size:12px;color:#1a1a1a;margin:28px;}")
	b.WriteString("h1{font-size:18px;margin-bottom:2px;}h2{font-size:14px;margin-top:20px;}")
	b.WriteString("table{width:100%;border-collapse:collapse;margin-top:8px;}th,td{border:1px solid #bbb;padding:4px 6px;text-align:right;}")
	b.WriteString("th{background:#f0f0f0;text-align:left;}td.label{text-align:left;}section{margin-bottom:18px;}figure{margin:12px 0 0 0;}")
	b.WriteString(".footer{margin-top:24px;font-size:9px;color:#777;}")
	b.WriteString("</style></head><body>")
	b.WriteString(fmt.Sprintf("<h1>Tirgus pārskats &mdash; %d. gads</h1>", overview.Year))

	b.WriteString("<section><h2>Uzņēmumi pēc statusa</h2><table><tbody>")
	for _, status := range overview.StatusCounts {
		b.WriteString("<tr><td class=\"label\">")
		b.WriteString(escapeText(status.Status))
		b.WriteString("</td><td>")
		b.WriteString(fmt.Sprintf("%d", status.Count))
		b.WriteString("</td></tr>")
	}
	b.WriteString("</tbody></table></section>")

	if len(overview.Registrations) > 0 {
		labels := make([]string, 0, len(overview.Registrations))
		series := make([]float64, 0, len(overview.Registrations))
		for _, month := range overview.Registrations {
			labels = append(labels, month.Month)
			series = append(series, float64(month.Count))
		}
		chart, err := svg.Line(0, 0, series, labels, svg.LineOpts{
			Title:       "Reģistrācijas pa mēnešiem",
			Description: "Jaunu uzņēmumu reģistrācijas pēdējos 12 mēnešos",
			ShowDots:    true,
		})
		if err != nil {
			return "", err
		}
		b.WriteString("<section><h2>Reģistrācijas pa mēnešiem</h2><figure>")
		b.WriteString(string(chart))
		b.WriteString("</figure></section>")
	}

	if len(overview.TopIndustries) > 0 {
		labels := make([]string, 0, len(overview.TopIndustries))
		series := make([]float64, 0, len(overview.TopIndustries))
		for _, industry := range overview.TopIndustries {
			labels = append(labels, industry.NACECode)
			series = append(series, turnoverOrZero(industry.Turnover))
		}
		chart, err := svg.Bars(0, 0, series, labels, svg.BarOpts{
			Title:       "Nozares pēc apgrozījuma",
			Description: "NACE nodaļas ar lielāko kopējo apgrozījumu",
			SeriesLabel: "Apgrozījums",
		})
		if err != nil {
			return "", err
		}

		b.WriteString("<section><h2>Nozares pēc apgrozījuma</h2><table><thead><tr><th>NACE</th><th>Nozare</th><th>Apgrozījums, EUR</th></tr></thead><tbody>")
		for _, industry := range overview.TopIndustries {
			b.WriteString("<tr><td class=\"label\">")
			b.WriteString(escapeText(industry.NACECode))
			b.WriteString("</td><td class=\"label\">")
			b.WriteString(escapeText(industry.Label))
			b.WriteString("</td><td>")
			b.WriteString(formatEUR(industry.Turnover))
			b.WriteString("</td></tr>")
		}
		b.WriteString("</tbody></table><figure>")
		b.WriteString(string(chart))
		b.WriteString("</figure></section>")
	}

	if len(overview.TopRegions) > 0 {
		b.WriteString("<section><h2>Reģioni pēc apgrozījuma</h2><table><thead><tr><th>Kods</th><th>Reģions</th><th>Apgrozījums, EUR</th></tr></thead><tbody>")
		for _, region := range overview.TopRegions {
			b.WriteString("<tr><td class=\"label\">")
			b.WriteString(escapeText(region.Code))
			b.WriteString("</td><td class=\"label\">")
			b.WriteString(escapeText(region.Name))
			b.WriteString("</td><td>")
			b.WriteString(formatEUR(region.Turnover))
			b.WriteString("</td></tr>")
		}
		b.WriteString("</tbody></table></section>")
	}

	b.WriteString(fmt.Sprintf("<div class=\"footer\">Sagatavots %s &middot; firmlens reģistra analītika</div>",
		overview.GeneratedAt.Format("02.01.2006")))
	b.WriteString("</body></html>")
	return b.String(), nil
}

func turnoverOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func formatEUR(v *float64) string {
	if v == nil {
		return "&ndash;"
	}
	return eurPrinter.Sprintf("%.2f", *v)
}

func escapeText(v string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&#39;",
	)
	return replacer.Replace(v)
}
