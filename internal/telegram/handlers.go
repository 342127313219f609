package telegram

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"portfolioFrontier/internal/finance"
	"portfolioFrontier/internal/optimizer"
	"portfolioFrontier/internal/portfolio"
	"portfolioFrontier/internal/storage"
)

// MaxTrials caps the trial count a chat user may request.
const MaxTrials = 50000

var (
	// /optimize S1 S2 ... [trials] [window]
	reOptimize = regexp.MustCompile(`^/optimize(?:@[\w_]+)?(?:\s|$)`)
	// /history
	reHistory = regexp.MustCompile(`^/history(?:@[\w_]+)?$`)
	// /help
	reHelp = regexp.MustCompile(`^/(help|start)(?:@[\w_]+)?$`)
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Optimizer interface {
	Run(ctx context.Context, req optimizer.Request) (*optimizer.Outcome, error)
}

type RunHistory interface {
	RecentRuns(limit int) ([]storage.Run, error)
}

type Explainer interface {
	Explain(ctx context.Context, tickers []string, set portfolio.OptimalSet) (string, error)
}

// Defaults apply when a command leaves a parameter out.
type Defaults struct {
	Trials  int
	Window  string
	Seed    uint64
	Workers int
}

type Deps struct {
	Optimizer      Optimizer
	History        RunHistory // optional
	Explainer      Explainer  // optional
	Defaults       Defaults
	Timeout        time.Duration // per optimization
	ExplainTimeout time.Duration // per commentary request
}

type Handlers struct {
	api  sender
	deps Deps
	log  zerolog.Logger
	now  func() time.Time
}

func NewHandlers(api sender, deps Deps, log zerolog.Logger) *Handlers {
	if deps.Timeout <= 0 {
		deps.Timeout = 2 * time.Minute
	}
	if deps.ExplainTimeout <= 0 {
		deps.ExplainTimeout = 30 * time.Second
	}
	if deps.Defaults.Trials <= 0 {
		deps.Defaults.Trials = 10000
	}
	if deps.Defaults.Window == "" {
		deps.Defaults.Window = finance.DefaultWindow
	}
	return &Handlers{
		api:  api,
		deps: deps,
		log:  log.With().Str("component", "telegram").Logger(),
		now:  time.Now,
	}
}

func (h *Handlers) HandleMessage(m *tgbotapi.Message) {
	txt := strings.TrimSpace(m.Text)
	switch {
	case reOptimize.MatchString(txt):
		h.handleOptimize(m.Chat.ID, txt)
	case reHistory.MatchString(txt):
		h.handleHistory(m.Chat.ID)
	case reHelp.MatchString(txt):
		h.handleHelp(m.Chat.ID)
	}
}

func (h *Handlers) handleOptimize(chatID int64, txt string) {
	args, err := finance.ParseOptimizeCommand(txt, MaxTrials)
	if err != nil {
		h.reply(chatID, capitalize(err.Error()))
		return
	}
	if args.Trials == 0 {
		args.Trials = h.deps.Defaults.Trials
	}
	if args.Window == "" {
		args.Window = h.deps.Defaults.Window
	}
	start, end, err := finance.ParseWindow(args.Window, h.now())
	if err != nil {
		h.reply(chatID, capitalize(err.Error()))
		return
	}

	h.reply(chatID, fmt.Sprintf("Simulating %d portfolios of %s over %s…",
		args.Trials, strings.Join(args.Tickers, ", "), strings.ToUpper(args.Window)))

	ctx, cancel := context.WithTimeout(context.Background(), h.deps.Timeout)
	defer cancel()
	out, err := h.deps.Optimizer.Run(ctx, optimizer.Request{
		Tickers: args.Tickers,
		Start:   start,
		End:     end,
		Trials:  args.Trials,
		Seed:    h.deps.Defaults.Seed,
		Workers: h.deps.Defaults.Workers,
	})
	if err != nil {
		h.log.Warn().Err(err).Int64("chat_id", chatID).Strs("tickers", args.Tickers).Msg("optimization failed")
		h.reply(chatID, failureMessage(err))
		return
	}

	key := fmt.Sprintf("%s|%s|%d|%d", strings.Join(out.Assets, "_"), args.Window, args.Trials, out.Seed)
	img, err := finance.CachedFrontierChart(key, out.Results, out.Optimal)
	if err != nil {
		h.log.Warn().Err(err).Msg("frontier chart failed")
	} else {
		name := strings.Join(out.Assets, "_")
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name + "_frontier.png", Bytes: img})
		photo.Caption = fmt.Sprintf("Efficient frontier: %s • %s • %d trials (%d valid) • seed %d",
			strings.Join(out.Assets, ", "), strings.ToUpper(args.Window),
			out.Results.Len(), out.Results.ValidCount(), out.Seed)
		h.send(photo)
	}

	msg := tgbotapi.NewMessage(chatID, "```\n"+finance.AllocationText(out.Optimal)+"```")
	msg.ParseMode = "Markdown"
	h.send(msg)

	if h.deps.Explainer != nil {
		ectx, ecancel := context.WithTimeout(context.Background(), h.deps.ExplainTimeout)
		defer ecancel()
		text, err := h.deps.Explainer.Explain(ectx, out.Assets, out.Optimal)
		if err != nil {
			h.log.Warn().Err(err).Msg("commentary failed")
			return
		}
		h.reply(chatID, text)
	}
}

func (h *Handlers) handleHistory(chatID int64) {
	if h.deps.History == nil {
		h.reply(chatID, "Run history is not enabled.")
		return
	}
	runs, err := h.deps.History.RecentRuns(10)
	if err != nil {
		h.reply(chatID, "History failed: "+err.Error())
		return
	}
	if len(runs) == 0 {
		h.reply(chatID, "No runs recorded yet.")
		return
	}
	var b strings.Builder
	b.WriteString("Recent runs\n\n")
	for _, r := range runs {
		best := r.Optimal.MaxSharpe.Performance
		fmt.Fprintf(&b, "%s  %s\n  %d trials (%d valid) • best Sharpe %.2f (ret %.1f%%, vol %.1f%%) • seed %d\n",
			r.CreatedAt.Format("2006-01-02 15:04"), strings.Join(r.Tickers, ","),
			r.Trials, r.ValidTrials, best.Sharpe, best.Return*100, best.Volatility*100, r.Seed)
	}
	h.reply(chatID, b.String())
}

func (h *Handlers) handleHelp(chatID int64) {
	help := "Commands\n\n" +
		"- /optimize S1 S2 ... [trials] [window] - Monte Carlo portfolio optimization, e.g. /optimize SPY TLT GLD 5000 3y\n" +
		"- /history - Recent optimization runs\n" +
		"- /help - This message\n" +
		fmt.Sprintf("\nTrials default to %d (max %d). Window is Nd, Nw, Nm or Ny (default %s). Daily adjusted closes from Yahoo.",
			h.deps.Defaults.Trials, MaxTrials, h.deps.Defaults.Window)
	h.reply(chatID, help)
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, portfolio.ErrDataUnavailable):
		return "No price data available for those symbols."
	case errors.Is(err, portfolio.ErrEmptyResult):
		return "Not enough overlapping price history to compute returns. Try a longer window."
	case errors.Is(err, portfolio.ErrInsufficientAssets):
		return "At least two symbols with usable price data are required."
	case errors.Is(err, portfolio.ErrNoValidPortfolio):
		return "No simulated portfolio produced valid metrics."
	case errors.Is(err, context.DeadlineExceeded):
		return "Optimization timed out. Try fewer trials."
	default:
		return "Optimization failed: " + err.Error()
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (h *Handlers) send(c tgbotapi.Chattable) {
	if _, err := h.api.Send(c); err != nil {
		h.log.Warn().Err(err).Msg("telegram send failed")
	}
}

func (h *Handlers) reply(chatID int64, text string) {
	h.send(tgbotapi.NewMessage(chatID, text))
}
