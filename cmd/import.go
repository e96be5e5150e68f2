/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"fmt"
	"log"

	"github.com/pandora-hackathon/jejak-air/internal/config"
	"github.com/pandora-hackathon/jejak-air/internal/container"
	"github.com/spf13/cobra"
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import historical CSV data",
	Long: `Import historical CSV data into the database.
The data directory may contain cities.csv, laboratories.csv, users.csv,
commodities.csv, farms.csv, batches.csv, activities.csv and lab_tests.csv;
missing files are skipped. Historical activities are imported verbatim
without triggering the automatic seed activities or the lab test cascade.
All farm and batch risk scores are recalculated once at the end.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 加载配置
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		dataDir, _ := cmd.Flags().GetString("data-dir")
		if dataDir == "" {
			dataDir = cfg.Import.DataDir
		}

		// 2. 初始化容器(含迁移)
		ctr, err := container.NewContainer(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize container: %w", err)
		}
		defer ctr.Close()

		// 3. 执行导入
		log.Printf("Importing CSV data from %s ...", dataDir)
		summary, err := ctr.ImportService().ImportAll(dataDir)
		if err != nil {
			return fmt.Errorf("failed to import data: %w", err)
		}

		log.Printf("Import completed: %d cities, %d laboratories, %d users, %d commodities, %d farms, %d batches, %d activities, %d lab tests",
			summary.Cities, summary.Laboratories, summary.Users, summary.Commodities,
			summary.Farms, summary.Batches, summary.Activities, summary.LabTests)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().String("config", "", "Config file path (default: config.yaml)")
	importCmd.Flags().String("data-dir", "", "Folder containing the CSV files (default: ./data)")
}
