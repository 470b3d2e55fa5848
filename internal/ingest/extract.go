package ingest

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/roach88/dios/internal/domain"
)

var (
	taskPrefixRe    = regexp.MustCompile(`(?i)^(TODO|TASK|tarea|hacer)\s*[:\-]?\s*`)
	projectPrefixRe = regexp.MustCompile(`(?i)^(PROJECT|PROYECTO)\s*[:\-]?\s*`)
	amountRe        = regexp.MustCompile(`[\$€]?\s*(\d[\d,\.]*)`)
	incomeRe        = regexp.MustCompile(`(?i)(ingreso|income|cobr|recibi|recib[íi])`)
	transferRe      = regexp.MustCompile(`(?i)(transfer|envié|envi[eé])`)
	metricRe        = regexp.MustCompile(`(?i)METRIC[A-Z]*\s*:\s*([\p{L}\p{N}_][\p{L}\p{N}_\s]*?)\s*=\s*([\d\.]+)\s*([\p{L}\p{N}_]+)?`)
)

// taskTitle strips a leading task marker. Falls back to raw when nothing
// is left.
func taskTitle(raw string) string {
	return stripPrefix(taskPrefixRe, raw)
}

// projectName strips a leading project marker. Falls back to raw when
// nothing is left.
func projectName(raw string) string {
	return stripPrefix(projectPrefixRe, raw)
}

func stripPrefix(re *regexp.Regexp, raw string) string {
	rest := strings.TrimSpace(re.ReplaceAllString(raw, ""))
	if rest == "" {
		return raw
	}
	return rest
}

// parseAmount returns the first number in raw with thousands separators
// removed, or zero when there is none or it does not parse.
func parseAmount(raw string) decimal.Decimal {
	m := amountRe.FindStringSubmatch(raw)
	if m == nil {
		return decimal.Zero
	}
	num := strings.TrimRight(strings.ReplaceAll(m[1], ",", ""), ".")
	d, err := decimal.NewFromString(num)
	if err != nil {
		return decimal.Zero
	}
	return d.Round(2)
}

// transactionKind checks income markers before transfer markers; anything
// else is an expense.
func transactionKind(raw string) domain.TransactionKind {
	switch {
	case incomeRe.MatchString(raw):
		return domain.TransactionIncome
	case transferRe.MatchString(raw):
		return domain.TransactionTransfer
	default:
		return domain.TransactionExpense
	}
}

type metricParts struct {
	name  string
	value decimal.Decimal
	unit  *string
}

// parseMetric reads "METRIC: name = value unit". Unparseable input yields
// name "unknown" with value zero.
func parseMetric(raw string) metricParts {
	m := metricRe.FindStringSubmatch(raw)
	if m == nil {
		return metricParts{name: "unknown", value: decimal.Zero}
	}
	parts := metricParts{name: strings.TrimSpace(m[1]), value: decimal.Zero}
	if v, err := decimal.NewFromString(strings.TrimRight(m[2], ".")); err == nil {
		parts.value = v
	}
	if m[3] != "" {
		unit := m[3]
		parts.unit = &unit
	}
	return parts
}
