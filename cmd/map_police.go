package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"SafeRoute-App/internal/domain/model"
)

var (
	mapPoliceIDs    []string
	mapPoliceLimit  int
	mapPoliceDryRun bool
)

var mapPoliceCmd = &cobra.Command{
	Use:   "map-police",
	Short: "セルごとに最寄り警察施設を探してpolice因子を更新する",
	Long:  "--ids を省略するとセルストアを先頭から --limit 件走査します。--dry-run では結果を表示するだけで書き込みません。",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		resp, err := a.police.MapPolice(cmd.Context(), &model.MapPoliceRequest{
			CellIDs: mapPoliceIDs,
			Limit:   mapPoliceLimit,
			DryRun:  mapPoliceDryRun,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	},
}

func init() {
	mapPoliceCmd.Flags().StringSliceVar(&mapPoliceIDs, "ids", nil, "対象のセルid（カンマ区切り）")
	mapPoliceCmd.Flags().IntVar(&mapPoliceLimit, "limit", 0, "走査する最大セル数（0は設定値）")
	mapPoliceCmd.Flags().BoolVar(&mapPoliceDryRun, "dry-run", false, "書き込みを行わない")
	rootCmd.AddCommand(mapPoliceCmd)
}
