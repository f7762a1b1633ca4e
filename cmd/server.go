package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/avelychko/rolodex/dev/config"
	"github.com/avelychko/rolodex/server"
	"github.com/avelychko/rolodex/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start a rolodex server",
	Long:  `The rolodex server hosts the contacts API & its background jobs`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start(serverConfig(), isDevEnv)
	},
}

var serverConfigFile string

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringVar(&serverConfigFile, "sconfig", "", "Config for server (required outside dev mode)")
}

func serverConfig() *viper.Viper {
	viperConfig := viper.New()

	if isDevEnv {
		serverConfigFile = devConfigFilePath()
	}

	viperConfig.SetConfigFile(serverConfigFile)
	viperConfig.AutomaticEnv() // read in environment variables that match

	if err := viperConfig.ReadInConfig(); err != nil {
		log.Panic(fmt.Sprintf("error reading server config file: %v", err))
	}

	return viperConfig
}

// devConfigFilePath returns the dev config path, writing the default
// config file first if one doesn't exist yet.
func devConfigFilePath() string {
	workingDir, err := os.Getwd()
	if err != nil {
		log.Panic(err)
	}

	configDir := filepath.Join(workingDir, "dev", "config")
	if err := utils.CreateDirIfNotExist(configDir); err != nil {
		log.Panic(err)
	}

	configFilePath := filepath.Join(configDir, "server.yml")
	exists, err := utils.FileExist(configFilePath)
	if err != nil {
		log.Panic(err)
	}

	if !exists {
		if err := os.WriteFile(configFilePath, []byte(config.SERVER_YML), 0600); err != nil {
			log.Panic(err)
		}
	}

	return configFilePath
}
