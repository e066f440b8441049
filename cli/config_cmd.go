package cli

import (
	"fmt"
	"os"

	"github.com/Kota8102/agentcore-mastra-react-stack/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		data, err := marshalConfig(cfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the runtime configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := config.Validate(cfg); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid")
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the effective configuration to a config file",
	Long:  `Write defaults merged with the current environment to ~/.agentcore/config.json, or the path given by --config.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path := configPath
		if path == "" {
			if path, err = config.GetDefaultConfigPath(); err != nil {
				return err
			}
		}
		force, _ := cmd.Flags().GetBool("force")
		if err := writeConfigFile(cfg, config.ExpandUserPath(path), force); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configInitCmd)
}

// writeConfigFile 保存配置；文件已存在且未指定 force 时报错
func writeConfigFile(cfg *config.Config, path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	return config.Save(cfg, path)
}

// marshalConfig 输出 YAML，API key 只显示末尾四位
func marshalConfig(cfg *config.Config) ([]byte, error) {
	shown := *cfg
	if key := shown.Agent.APIKey; key != "" {
		if len(key) > 4 {
			shown.Agent.APIKey = "****" + key[len(key)-4:]
		} else {
			shown.Agent.APIKey = "****"
		}
	}
	return yaml.Marshal(&shown)
}
