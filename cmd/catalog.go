package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shipmate-cli/shipmate/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the EC2 instance pricing catalog",
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <pricing.csv>",
	Short: "Import an instance pricing CSV into the local catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pool := catalog.NewPool(viper.GetString("catalog.path"), viper.GetInt("catalog.pool_size"))
		defer pool.Close()

		n, err := catalog.ImportCSV(pool, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d instance types into %s\n", n, viper.GetString("catalog.path"))
		return nil
	},
}

var catalogFindCmd = &cobra.Command{
	Use:   "find",
	Short: "Find the cheapest instance type for given cpu/ram requirements",
	RunE: func(cmd *cobra.Command, args []string) error {
		pool := catalog.NewPool(viper.GetString("catalog.path"), viper.GetInt("catalog.pool_size"))
		defer pool.Close()

		var cpuPtr *int
		var ramPtr *float64
		if cmd.Flags().Changed("cpu") {
			cpu, _ := cmd.Flags().GetInt("cpu")
			cpuPtr = &cpu
		}
		if cmd.Flags().Changed("ram") {
			ram, _ := cmd.Flags().GetFloat64("ram")
			ramPtr = &ram
		}

		res, err := catalog.FindBestInstance(cmd.Context(), pool, cpuPtr, ramPtr)
		if err != nil {
			return err
		}
		if !res.Found {
			fmt.Println(res.Message)
			return nil
		}
		fmt.Println(res.APIName)
		return nil
	},
}

func init() {
	catalogFindCmd.Flags().Int("cpu", 0, "minimum number of vCPUs")
	catalogFindCmd.Flags().Float64("ram", 0, "minimum memory in GiB")
	catalogCmd.AddCommand(catalogImportCmd)
	catalogCmd.AddCommand(catalogFindCmd)
	rootCmd.AddCommand(catalogCmd)
}
