package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shipmate-cli/shipmate/internal/agent"
	"github.com/shipmate-cli/shipmate/internal/catalog"
	"github.com/shipmate-cli/shipmate/internal/intent"
	"github.com/shipmate-cli/shipmate/internal/llm"
	"github.com/shipmate-cli/shipmate/internal/logging"
	"github.com/shipmate-cli/shipmate/internal/provision"
	"github.com/shipmate-cli/shipmate/internal/ui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start a deployment conversation",
	Long: `Chat opens an interactive session. Each message is classified into a
deployment intent by the configured language model; the resulting
configuration changes are shown after every turn. Say something like
"deploy a server with 4 cpus and 16 ram", adjust the result, then
confirm to deploy.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		debug := viper.GetBool("debug")
		if err := logging.Setup(viper.GetString("log.file"), viper.GetInt64("log.max_bytes"), viper.GetInt("log.backups")); err != nil {
			return fmt.Errorf("failed to set up logging: %w", err)
		}
		defer logging.Close()

		ctx := cmd.Context()

		model, err := llm.NewClient(ctx, viper.GetString("llm.provider"), debug)
		if err != nil {
			return err
		}

		pool := catalog.NewPool(viper.GetString("catalog.path"), viper.GetInt("catalog.pool_size"))
		defer pool.Close()

		prov, err := provision.NewClient(ctx, debug)
		if err != nil {
			return err
		}

		reflect, _ := cmd.Flags().GetBool("reflect")
		console := ui.NewConsole(os.Stdin, os.Stdout)
		prov.SetUserLog(console.LogToUser)
		session := agent.New(console, intent.NewClassifier(model), catalog.New(pool), prov, reflect)
		return session.Run(ctx)
	},
}

func init() {
	chatCmd.Flags().Bool("reflect", false, "run a second classification pass over the full transcript each turn")
	rootCmd.AddCommand(chatCmd)
}
