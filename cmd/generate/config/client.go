package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/Mmx233/PatchSync/config"
	"github.com/Mmx233/PatchSync/examples"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	overwrite  bool
	serverAddr string
	dataDir    string
)

// ClientCmd is the client subcommand for generating client configuration files
var ClientCmd = &cobra.Command{
	Use:   "client",
	Short: "Generate client configuration file",
	RunE:  runClientGenerate,
}

func init() {
	ClientCmd.Flags().BoolVarP(&overwrite, "force", "f", false, "overwrite an existing file")
	ClientCmd.Flags().StringVar(&serverAddr, "server", "", "update server address (host:port)")
	ClientCmd.Flags().StringVar(&dataDir, "data-dir", "", "patch archive directory")
}

func runClientGenerate(cmd *cobra.Command, args []string) error {
	logger := log.With().Str("com", "generate").Logger()
	outputPath := GetConfigFile()

	if !overwrite {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("file already exists: %s", outputPath)
		}
	}

	if serverAddr != "" {
		if err := config.ValidateAddress(serverAddr); err != nil {
			return err
		}
	}

	template, err := examples.ClientConfig()
	if err != nil {
		return fmt.Errorf("load client config template: %w", err)
	}

	content, err := RenderClientConfig(template, serverAddr, dataDir)
	if err != nil {
		return err
	}

	if err := os.WriteFile(outputPath, content, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	logger.Info().Str("file", outputPath).Msg("generated client configuration")
	return nil
}

// RenderClientConfig sets server.address and data_dir in the template,
// keeping its comments. Empty values leave the template untouched.
func RenderClientConfig(template []byte, server, dir string) ([]byte, error) {
	if server == "" && dir == "" {
		return template, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(template, &doc); err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("template is not a yaml document")
	}
	root := doc.Content[0]

	if server != "" {
		node := mappingValue(root, "server")
		if node == nil {
			return nil, fmt.Errorf("template has no server section")
		}
		addr := mappingValue(node, "address")
		if addr == nil {
			return nil, fmt.Errorf("template has no server.address")
		}
		addr.Value = server
	}
	if dir != "" {
		node := mappingValue(root, "data_dir")
		if node == nil {
			return nil, fmt.Errorf("template has no data_dir")
		}
		node.Value = dir
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}
