package delegate

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/spf13/viper"
)

// ToolInfo reports the delegate tool's detected environment. Configure
// reads; it never writes.
type ToolInfo struct {
	// BinaryPath is the resolved executable path, or "" when not on PATH.
	BinaryPath string
	// Model is the model the tool's own config selects.
	Model string
	// Provider is the tool's configured model provider.
	Provider string
	// ApprovalMode is the tool's configured approval policy.
	ApprovalMode string
	// BedrockCredentials is true when the provider points at Bedrock and
	// AWS credentials resolve.
	BedrockCredentials bool
}

// Configure probes the delegate tool's environment: binary on PATH, the
// tool's local configuration file, and cloud credentials when the
// configured provider needs them. It mutates nothing.
func (e *Executor) Configure(ctx context.Context) (*ToolInfo, error) {
	info := &ToolInfo{}

	if path, err := exec.LookPath(e.cfg.Delegate.Binary); err == nil {
		info.BinaryPath = path
	}

	e.probeToolConfig(info)

	if strings.Contains(strings.ToLower(info.Provider), "bedrock") {
		info.BedrockCredentials = e.probeBedrockCredentials(ctx)
	}
	return info, nil
}

// probeToolConfig reads the tool's own config file (config.toml or
// config.yaml under ~/.codex or the binary's dot-directory) for model,
// provider, and approval settings.
func (e *Executor) probeToolConfig(info *ToolInfo) {
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}

	toolDir := filepath.Join(home, "."+filepath.Base(e.cfg.Delegate.Binary))
	for _, name := range []string{"config.toml", "config.yaml"} {
		path := filepath.Join(toolDir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		v := viper.New()
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			continue
		}
		info.Model = v.GetString("model")
		info.Provider = v.GetString("model_provider")
		if info.Provider == "" {
			info.Provider = v.GetString("provider")
		}
		info.ApprovalMode = v.GetString("approval_policy")
		if info.ApprovalMode == "" {
			info.ApprovalMode = v.GetString("approval_mode")
		}
		return
	}
}

// probeBedrockCredentials checks whether the default AWS credential chain
// resolves.
func (e *Executor) probeBedrockCredentials(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return false
	}
	_, err = cfg.Credentials.Retrieve(ctx)
	return err == nil
}
