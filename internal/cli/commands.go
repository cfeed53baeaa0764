// Package cli wires the engine operations into a cobra command tree with
// an interactive session as the default entry point.
package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/quantflow/stockpulse/internal/config"
	"github.com/quantflow/stockpulse/internal/logging"
	"github.com/quantflow/stockpulse/internal/tools"
)

const version = "1.0.0"

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cfg := config.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "stockpulse",
		Short: "StockPulse - A-share market data and technical analysis",
		Long: `StockPulse fetches A-share market data (quotes, klines, news, financials)
and derives technical indicators and a composite trend assessment from it.
Run without arguments for the interactive session.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				cfg.Debug = true
			}
			logging.Init(cfg.Debug)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return NewInteractiveSession(cfg).Start()
		},
	}

	rootCmd.AddCommand(newInfoCmd(cfg))
	rootCmd.AddCommand(newQuoteCmd(cfg))
	rootCmd.AddCommand(newSearchCmd(cfg))
	rootCmd.AddCommand(newKlineCmd(cfg))
	rootCmd.AddCommand(newIndicatorsCmd(cfg))
	rootCmd.AddCommand(newNewsCmd(cfg))
	rootCmd.AddCommand(newFinancialCmd(cfg))
	rootCmd.AddCommand(newTrendCmd(cfg))
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	return rootCmd
}

func newInfoCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "info [CODE]",
		Short: "Show the company profile for a stock code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp("info", func(t *tools.StockTools) (string, error) {
				return t.GetStockInfo(args[0])
			}, cfg)
		},
	}
}

func newQuoteCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "quote [CODE]",
		Short: "Show the realtime quote for a stock code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp("quote", func(t *tools.StockTools) (string, error) {
				return t.GetRealtimeQuote(args[0])
			}, cfg)
		},
	}
}

func newSearchCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "search [KEYWORD]",
		Short: "Search stocks by name or code fragment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp("search", func(t *tools.StockTools) (string, error) {
				return t.SearchStock(args[0])
			}, cfg)
		},
	}
}

func newKlineCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kline [CODE]",
		Short: "Show recent candles for a stock code",
		Long: `Show the most recent candles for a stock code.
Example: stockpulse kline 600036 --period=weekly`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			period, _ := cmd.Flags().GetString("period")
			return runOp("kline", func(t *tools.StockTools) (string, error) {
				return t.GetKlineData(args[0], period)
			}, cfg)
		},
	}
	cmd.Flags().String("period", "daily", "Candle period: daily, weekly or monthly")
	return cmd
}

func newIndicatorsCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "indicators [CODE]",
		Short: "Compute technical indicators for a stock code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp("indicators", func(t *tools.StockTools) (string, error) {
				return t.CalculateIndicators(args[0])
			}, cfg)
		},
	}
}

func newNewsCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "news [CODE]",
		Short: "Show recent news and announcements for a stock code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, _ := cmd.Flags().GetInt("count")
			return runOp("news", func(t *tools.StockTools) (string, error) {
				return t.GetStockNews(args[0], count)
			}, cfg)
		},
	}
	cmd.Flags().Int("count", 0, "Number of news items (default from config)")
	return cmd
}

func newFinancialCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "financial [CODE]",
		Short: "Show the financial summary for a stock code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp("financial", func(t *tools.StockTools) (string, error) {
				return t.GetFinancialData(args[0])
			}, cfg)
		},
	}
}

func newTrendCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "trend [CODE]",
		Short: "Run the composite trend analysis for a stock code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp("trend", func(t *tools.StockTools) (string, error) {
				return t.AnalyzeTrend(args[0])
			}, cfg)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("StockPulse v" + version)
			fmt.Println("A-share market data and technical analysis engine")
		},
	}
}

// runOp executes one engine operation and prints either the report or the
// flattened failure text. Operation failures are user-facing output, not
// process errors, so the exit code stays zero.
func runOp(name string, fn func(*tools.StockTools) (string, error), cfg *config.Config) error {
	t := tools.New(cfg)
	fmt.Print(tools.Safe(name, func() (string, error) { return fn(t) }))
	return nil
}

// parseCount is used by the interactive session for the news count prompt.
func parseCount(s string, fallback int) int {
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return fallback
}
