package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/quantflow/stockpulse/internal/config"
	"github.com/quantflow/stockpulse/internal/tools"
)

// InteractiveSession drives the prompt-based workflow: pick an operation,
// enter a ticker, read the report, repeat.
type InteractiveSession struct {
	cfg   *config.Config
	tools *tools.StockTools
}

// NewInteractiveSession creates a new interactive session.
func NewInteractiveSession(cfg *config.Config) *InteractiveSession {
	return &InteractiveSession{
		cfg:   cfg,
		tools: tools.New(cfg),
	}
}

// operation labels shown in the selection prompt, in menu order.
var operationLabels = []string{
	"📋 Company profile",
	"💹 Realtime quote",
	"🔍 Search stocks",
	"📊 Kline data",
	"📐 Technical indicators",
	"📰 News & announcements",
	"💰 Financial summary",
	"📈 Trend analysis",
	"👋 Exit",
}

// Start begins the interactive session.
func (s *InteractiveSession) Start() error {
	DisplayWelcomeBanner()

	for {
		var choice string
		prompt := &survey.Select{
			Message:  "What would you like to do?",
			Options:  operationLabels,
			PageSize: len(operationLabels),
		}
		if err := survey.AskOne(prompt, &choice); err != nil {
			if errors.Is(err, terminal.InterruptErr) {
				fmt.Println("👋 Bye!")
				return nil
			}
			return err
		}

		if strings.Contains(choice, "Exit") {
			fmt.Println("👋 Bye!")
			return nil
		}

		if err := s.dispatch(choice); err != nil {
			if errors.Is(err, terminal.InterruptErr) {
				continue
			}
			return err
		}
		fmt.Println()
	}
}

func (s *InteractiveSession) dispatch(choice string) error {
	switch {
	case strings.Contains(choice, "Search"):
		keyword, err := promptKeyword()
		if err != nil {
			return err
		}
		s.print("search", func() (string, error) { return s.tools.SearchStock(keyword) })
		return nil

	case strings.Contains(choice, "Kline"):
		code, err := promptTicker()
		if err != nil {
			return err
		}
		period, err := promptPeriod()
		if err != nil {
			return err
		}
		s.print("kline", func() (string, error) { return s.tools.GetKlineData(code, period) })
		return nil

	case strings.Contains(choice, "News"):
		code, err := promptTicker()
		if err != nil {
			return err
		}
		count, err := promptCount(s.cfg.NewsCount)
		if err != nil {
			return err
		}
		s.print("news", func() (string, error) { return s.tools.GetStockNews(code, count) })
		return nil
	}

	code, err := promptTicker()
	if err != nil {
		return err
	}
	switch {
	case strings.Contains(choice, "profile"):
		s.print("info", func() (string, error) { return s.tools.GetStockInfo(code) })
	case strings.Contains(choice, "quote"):
		s.print("quote", func() (string, error) { return s.tools.GetRealtimeQuote(code) })
	case strings.Contains(choice, "indicators"):
		s.print("indicators", func() (string, error) { return s.tools.CalculateIndicators(code) })
	case strings.Contains(choice, "Financial"):
		s.print("financial", func() (string, error) { return s.tools.GetFinancialData(code) })
	case strings.Contains(choice, "Trend"):
		s.print("trend", func() (string, error) { return s.tools.AnalyzeTrend(code) })
	}
	return nil
}

func (s *InteractiveSession) print(op string, fn func() (string, error)) {
	fmt.Println()
	fmt.Print(reportStyle.Render(tools.Safe(op, fn)))
	fmt.Println()
}

func promptTicker() (string, error) {
	var code string
	prompt := &survey.Input{
		Message: "Enter the stock code (e.g. 600036, sh600036):",
		Help:    "Bare 6-digit codes are classified by prefix; sh/sz/bj prefixes are accepted too",
	}
	err := survey.AskOne(prompt, &code, survey.WithValidator(func(val interface{}) error {
		if strings.TrimSpace(val.(string)) == "" {
			return fmt.Errorf("stock code cannot be empty")
		}
		return nil
	}))
	return strings.TrimSpace(code), err
}

func promptKeyword() (string, error) {
	var keyword string
	prompt := &survey.Input{
		Message: "Enter a stock name or code fragment:",
	}
	err := survey.AskOne(prompt, &keyword, survey.WithValidator(survey.Required))
	return strings.TrimSpace(keyword), err
}

func promptPeriod() (string, error) {
	var period string
	prompt := &survey.Select{
		Message: "Candle period:",
		Options: []string{"daily", "weekly", "monthly"},
		Default: "daily",
	}
	err := survey.AskOne(prompt, &period)
	return period, err
}

func promptCount(fallback int) (int, error) {
	var raw string
	prompt := &survey.Input{
		Message: fmt.Sprintf("Number of news items (default %d):", fallback),
	}
	if err := survey.AskOne(prompt, &raw); err != nil {
		return 0, err
	}
	return parseCount(strings.TrimSpace(raw), fallback), nil
}
