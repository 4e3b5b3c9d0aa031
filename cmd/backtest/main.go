// Command backtest replays historical bars for the configured watchlist
// through the signal engine and prints a performance report. Bars come from
// the store by default, or from a CSV file when -csv is given.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"vn-signal-engine/config"
	"vn-signal-engine/internal/backtest"
	"vn-signal-engine/internal/logging"
	"vn-signal-engine/internal/model"
	"vn-signal-engine/internal/signalengine"
	"vn-signal-engine/internal/store"
)

func main() {
	csvPath := flag.String("csv", "", "path to a CSV file of bars (time,open,high,low,close,volume); defaults to loading from the store")
	symbol := flag.String("symbol", "", "symbol to tag CSV rows with; required when -csv is set")
	limit := flag.Int("limit", 5000, "max bars per symbol to load from the store")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logging.New(&logging.Config{Level: cfg.Logging.Level, Output: "stdout", JSONFormat: false, Component: "backtest"}))

	var bars []model.Bar
	ctx := context.Background()

	if *csvPath != "" {
		if *symbol == "" {
			fmt.Fprintln(os.Stderr, "-symbol is required with -csv")
			os.Exit(1)
		}
		bars, err = loadBarsFromCSV(*csvPath, *symbol, cfg.Engine.Timeframe)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load CSV: %v\n", err)
			os.Exit(1)
		}
	} else {
		db, err := store.Open(ctx, store.Config{
			DSN:      cfg.Database.DSN,
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			Database: cfg.Database.Name,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()
		repo := store.NewRepository(db)

		for _, sym := range cfg.Engine.Watchlist {
			symBars, err := repo.GetBars(ctx, sym, cfg.Engine.Timeframe, *limit)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to load bars for %s: %v\n", sym, err)
				os.Exit(1)
			}
			bars = append(bars, symBars...)
		}
	}

	if len(bars) == 0 {
		fmt.Fprintln(os.Stderr, "no bars to backtest")
		os.Exit(1)
	}

	engineCfg := signalengine.Config{
		ZoneWidthATRMultiplier: cfg.Engine.ZoneWidthATRMultiplier,
		SLBufferATRMultiplier:  cfg.Engine.SLBufferATRMultiplier,
		RiskRewardRatio:        cfg.Engine.RiskRewardRatio,
		DefaultQuantity:        cfg.Engine.DefaultQuantity,
		RSIPeriod:              cfg.Engine.RSIPeriod,
		MACDFast:               cfg.Engine.MACDFast,
		MACDSlow:               cfg.Engine.MACDSlow,
		MACDSignal:             cfg.Engine.MACDSignal,
		ATRPeriod:              cfg.Engine.ATRPeriod,
	}

	engine := backtest.NewEngine(engineCfg, cfg.Backtest.InitialCapital, cfg.Backtest.PositionSizePercent)
	result := engine.Run(bars)
	result.PrintReport()
}

var csvTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006",
	time.RFC3339,
}

// loadBarsFromCSV reads time/open/high/low/close/volume columns, trying
// several date layouts and several header names for the time column. The
// price and volume columns must be named open, high, low, close and volume
// exactly; a missing one reads as 0.
func loadBarsFromCSV(path, symbol, timeframe string) ([]model.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}

	timeCol := firstPresent(col, "time", "date", "datetime", "Time")
	if timeCol == -1 {
		return nil, fmt.Errorf("csv has no time/date column")
	}

	var bars []model.Bar
	for {
		row, err := r.Read()
		if err != nil {
			break
		}
		ts, ok := parseCSVTime(row[timeCol])
		if !ok {
			continue
		}
		bar := model.Bar{
			Symbol:    symbol,
			Timeframe: timeframe,
			Timestamp: ts,
			Open:      parseFloatAt(row, col, "open"),
			High:      parseFloatAt(row, col, "high"),
			Low:       parseFloatAt(row, col, "low"),
			Close:     parseFloatAt(row, col, "close"),
			Volume:    parseFloatAt(row, col, "volume"),
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func firstPresent(col map[string]int, names ...string) int {
	for _, n := range names {
		if i, ok := col[n]; ok {
			return i
		}
	}
	return -1
}

func parseFloatAt(row []string, col map[string]int, name string) float64 {
	i, ok := col[name]
	if !ok || i >= len(row) {
		return 0
	}
	v, _ := strconv.ParseFloat(row[i], 64)
	return v
}

func parseCSVTime(s string) (time.Time, bool) {
	for _, layout := range csvTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
