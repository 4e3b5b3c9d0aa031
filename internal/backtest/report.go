package backtest

import "fmt"

// PrintReport writes a human-readable performance summary to stdout,
// matching the reference system's console report.
func (r Result) PrintReport() {
	fmt.Println()
	fmt.Println("==================================================")
	fmt.Println("BACKTEST REPORT")
	fmt.Println("==================================================")
	fmt.Printf("Period: %s -> %s\n", r.StartDate.Format("2006-01-02"), r.EndDate.Format("2006-01-02"))
	fmt.Printf("Initial Capital: %.0f\n", r.InitialCapital)
	fmt.Printf("Final Capital: %.0f\n", r.FinalCapital)
	fmt.Println("--------------------------------------------------")
	fmt.Printf("Total PnL: %.0f (%.2f%%)\n", r.TotalPnL, r.TotalPnLPercent)
	fmt.Printf("Max Drawdown: %.2f%%\n", r.MaxDrawdownPercent)
	fmt.Println("--------------------------------------------------")
	fmt.Printf("Total Trades: %d\n", r.TotalTrades)
	fmt.Printf("Win Rate: %.1f%%\n", r.WinRate)
	fmt.Printf("Profit Factor: %.2f\n", r.ProfitFactor)
	fmt.Printf("Avg Win: %.0f\n", r.AverageWin)
	fmt.Printf("Avg Loss: %.0f\n", r.AverageLoss)
	fmt.Println("==================================================")
	fmt.Println()
}
