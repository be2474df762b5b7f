package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/stockcast-backend/internal/forecast"
)

const dateLayout = "2006-01-02"

type engineFlags struct {
	file           string
	now            string
	windowSize     int
	trendWeight    float64
	noTrend        bool
	minHistoryDays int
}

func newRootCmd() *cobra.Command {
	flags := &engineFlags{}
	root := &cobra.Command{
		Use:           "forecastctl",
		Short:         "Run the demand forecasting engine against a sales CSV",
		Long:          "forecastctl reads daily sales (date,quantity rows) and prints predictions or backtest results as JSON.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.file, "file", "f", "-", "sales CSV path, - for stdin")
	root.PersistentFlags().StringVar(&flags.now, "now", "", "reference date YYYY-MM-DD (default today, UTC)")
	root.PersistentFlags().IntVar(&flags.windowSize, "window", forecast.DefaultWindowSize, "weighted moving average window")
	root.PersistentFlags().Float64Var(&flags.trendWeight, "trend-weight", forecast.DefaultTrendWeight, "trend dampening weight, must be positive")
	root.PersistentFlags().BoolVar(&flags.noTrend, "no-trend", false, "drop the trend factor from predictions")
	root.PersistentFlags().IntVar(&flags.minHistoryDays, "min-history", forecast.DefaultMinHistoryDays, "records required before the full model is used")

	root.AddCommand(predictCmd(flags))
	root.AddCommand(dailyCmd(flags))
	root.AddCommand(backtestCmd(flags))
	return root
}

func predictCmd(flags *engineFlags) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict demand for a single day",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, history, err := flags.load(cmd)
			if err != nil {
				return err
			}
			var target time.Time
			if date != "" {
				if target, err = time.Parse(dateLayout, date); err != nil {
					return fmt.Errorf("invalid --date %q: %w", date, err)
				}
			}
			return writeJSON(cmd.OutOrStdout(), engine.Predict(history, target))
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "target date YYYY-MM-DD (default the reference date)")
	return cmd
}

func dailyCmd(flags *engineFlags) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "daily",
		Short: "Predict demand for each of the next days",
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 1 {
				return fmt.Errorf("--days must be positive")
			}
			engine, history, err := flags.load(cmd)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), engine.PredictDays(history, days))
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "number of days to forecast")
	return cmd
}

func backtestCmd(flags *engineFlags) *cobra.Command {
	var window int
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Evaluate walk-forward accuracy over the trailing window",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, history, err := flags.load(cmd)
			if err != nil {
				return err
			}
			result := engine.Backtest(history, window)
			if result == nil {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"result": nil, "reason": "insufficient data"})
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{"result": result})
		},
	}
	cmd.Flags().IntVar(&window, "test-window", forecast.DefaultWindowSize, "days held out for evaluation")
	return cmd
}

func (f *engineFlags) load(cmd *cobra.Command) (*forecast.Engine, []forecast.SalesRecord, error) {
	if !(f.trendWeight > 0) || math.IsInf(f.trendWeight, 0) {
		return nil, nil, fmt.Errorf("--trend-weight must be a positive number, use --no-trend to disable the trend")
	}
	now := time.Now().UTC()
	if f.now != "" {
		parsed, err := time.Parse(dateLayout, f.now)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid --now %q: %w", f.now, err)
		}
		now = parsed
	}

	var in io.Reader = cmd.InOrStdin()
	if f.file != "-" {
		file, err := os.Open(f.file)
		if err != nil {
			return nil, nil, err
		}
		defer file.Close()
		in = file
	}
	history, err := readHistory(in)
	if err != nil {
		return nil, nil, err
	}

	engine := forecast.NewEngine(forecast.Config{
		WindowSize:     f.windowSize,
		TrendWeight:    f.trendWeight,
		MinHistoryDays: f.minHistoryDays,
		DisableTrend:   f.noTrend,
	}, forecast.WithClock(func() time.Time { return now }))
	return engine, history, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
