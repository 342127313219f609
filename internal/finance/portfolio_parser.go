package finance

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	reOptimizePrefix = regexp.MustCompile(`^/optimize(?:@[\w_]+)?`)
	reWindowToken    = regexp.MustCompile(`^\d+[dwmyDWMY]$`)
	reTickerToken    = regexp.MustCompile(`^[A-Za-z0-9\.^_=\-]+$`)
)

// OptimizeArgs is a parsed optimization request from a chat command.
type OptimizeArgs struct {
	Tickers []string
	Trials  int // 0 means the configured default
	Window  string
}

// ParseOptimizeCommand parses "/optimize SPY AAPL MSFT [trials] [window]".
// A bare integer is the trial count, a token such as 2y or 90d is the window, anything
// else is a ticker. Tickers are upper-cased and de-duplicated in order.
func ParseOptimizeCommand(input string, maxTrials int) (OptimizeArgs, error) {
	input = strings.TrimSpace(input)
	input = strings.TrimSpace(reOptimizePrefix.ReplaceAllString(input, ""))

	var args OptimizeArgs
	var raw []string
	for _, tok := range strings.Fields(input) {
		switch {
		case reWindowToken.MatchString(tok):
			if args.Window != "" {
				return OptimizeArgs{}, fmt.Errorf("window given twice: %s and %s", args.Window, tok)
			}
			args.Window = strings.ToLower(tok)
		case isDigits(tok):
			n, err := strconv.Atoi(tok)
			if err != nil || n <= 0 {
				return OptimizeArgs{}, fmt.Errorf("invalid trial count %q", tok)
			}
			if maxTrials > 0 && n > maxTrials {
				return OptimizeArgs{}, fmt.Errorf("trial count %d exceeds limit %d", n, maxTrials)
			}
			args.Trials = n
		case reTickerToken.MatchString(tok):
			raw = append(raw, tok)
		default:
			return OptimizeArgs{}, fmt.Errorf("invalid symbol %q", tok)
		}
	}

	args.Tickers = normalizeTickers(raw)
	if len(args.Tickers) < 2 {
		return OptimizeArgs{}, fmt.Errorf("please provide at least two symbols, e.g. /optimize SPY TLT GLD 5000 3y")
	}
	return args, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
