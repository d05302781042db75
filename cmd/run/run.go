package run

import (
	"github.com/Mmx233/PatchSync/config"
	"github.com/Mmx233/PatchSync/tools"
	"github.com/spf13/cobra"
)

var (
	configFile = tools.GetenvDefault(config.EnvPrefix+"CONFIG", "config.yaml")
	jsonOutput bool
	Cmd        = &cobra.Command{
		Use:   "run",
		Short: "Talk to the update server",
		Args:  cobra.NoArgs,
	}
)

func init() {
	Cmd.PersistentFlags().StringVarP(&configFile, "config", "c", configFile, "path of config file")
	Cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
	Cmd.AddCommand(syncCmd)
	Cmd.AddCommand(infoCmd)
	Cmd.AddCommand(noticeCmd)
}
