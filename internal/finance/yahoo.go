package finance

import (
	"errors"
	"math"
	"time"
)

// priceExtractor pulls one price field out of a chart result.
type priceExtractor struct {
	name    string
	extract func(r *yahooChartResult) []*float64
}

// priceExtractors are tried in order; the first with a usable value wins.
var priceExtractors = []priceExtractor{
	{name: "adjclose", extract: func(r *yahooChartResult) []*float64 {
		if len(r.Indicators.AdjClose) == 0 {
			return nil
		}
		return r.Indicators.AdjClose[0].AdjClose
	}},
	{name: "close", extract: func(r *yahooChartResult) []*float64 {
		if len(r.Indicators.Quote) == 0 {
			return nil
		}
		return r.Indicators.Quote[0].Close
	}},
}

// fallbackExtractor is used when no preferred field is present. Choosing it is logged.
var fallbackExtractor = priceExtractor{name: "open", extract: func(r *yahooChartResult) []*float64 {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	return r.Indicators.Quote[0].Open
}}

func usable(vals []*float64) bool {
	for _, v := range vals {
		if v != nil && *v > 0 && !math.IsInf(*v, 0) && !math.IsNaN(*v) {
			return true
		}
	}
	return false
}

// pickPrices returns the chosen field name and its values.
func pickPrices(r *yahooChartResult) (string, []*float64, bool) {
	for _, e := range priceExtractors {
		if vals := e.extract(r); usable(vals) {
			return e.name, vals, true
		}
	}
	if vals := fallbackExtractor.extract(r); usable(vals) {
		return fallbackExtractor.name, vals, true
	}
	return "", nil, false
}

// seriesFromResult converts a chart result into one price per trading day, keyed by the
// exchange-local calendar date. Missing or non-positive prices become NaN.
func (c *YahooClient) seriesFromResult(symbol string, r *yahooChartResult) ([]dailyPrice, error) {
	field, vals, ok := pickPrices(r)
	if !ok {
		return nil, errors.New("no usable price field in yahoo response")
	}
	if field == fallbackExtractor.name {
		c.log.Warn().
			Str("symbol", symbol).
			Str("field", field).
			Msg("adjclose and close missing, using fallback price field")
	}

	ts, prices := sanitizePrices(r.Timestamp, vals)
	loc := exchangeLocation(r.Meta.ExchangeTimezoneName, r.Meta.GmtOffset)

	out := make([]dailyPrice, 0, len(ts))
	index := make(map[time.Time]int, len(ts))
	for i, t := range ts {
		local := time.Unix(t, 0).In(loc)
		day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
		// Yahoo can repeat the live bar; the later print wins.
		if j, dup := index[day]; dup {
			out[j].price = prices[i]
			continue
		}
		index[day] = len(out)
		out = append(out, dailyPrice{day: day, price: prices[i]})
	}
	if len(out) == 0 {
		return nil, errors.New("yahoo returned no bars")
	}
	return out, nil
}
