package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/Lfy181/sea-daily-briefing/internal/app"
)

var (
	simulatePair  string
	simulateRate  float64
	simulatePrior float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "模拟一次汇率观测并触发告警链路",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulatePair == "" {
			return errors.New("--pair 必须配置")
		}
		if simulateRate <= 0 {
			return errors.New("--rate 必须大于 0")
		}

		opts := app.SimulateOptions{
			Pair:  simulatePair,
			Rate:  simulateRate,
			Prior: simulatePrior,
		}
		return getApp().SimulateAlert(cmd.Context(), opts)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulatePair, "pair", "", "货币对, 例如 CNY/PHP")
	simulateCmd.Flags().Float64Var(&simulateRate, "rate", 0, "模拟观测到的汇率")
	simulateCmd.Flags().Float64Var(&simulatePrior, "prior", 0, "可选的基线汇率 (缺省视为首次观测)")
}
