package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
)

const (
	launchdLabel = "com.digestbot.scheduler"
	serviceName  = "digestbot"
)

// serviceFile is a rendered launchd plist or systemd user unit.
type serviceFile struct {
	Path    string
	Content string
	Hints   []string
}

func installDaemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Install digestbot as a service (launchd/systemd)",
		Long:  "Writes a service file that keeps \"digestbot run\" alive in the background.",
		RunE: func(cmd *cobra.Command, args []string) error {
			execPath, err := os.Executable()
			if err != nil {
				return fmt.Errorf("cannot determine executable path: %w", err)
			}
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("cannot determine home directory: %w", err)
			}
			sf, err := renderService(runtime.GOOS, home, execPath, resolveConfigPath(), envFile)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Join(home, ".digestbot", "logs"), 0o755); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(sf.Path), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(sf.Path, []byte(sf.Content), 0o644); err != nil {
				return err
			}
			fmt.Printf("Service installed: %s\n", sf.Path)
			for _, h := range sf.Hints {
				fmt.Println(h)
			}
			return nil
		},
	}
}

func uninstallDaemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the digestbot service file",
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("cannot determine home directory: %w", err)
			}
			path, err := servicePath(runtime.GOOS, home)
			if err != nil {
				return err
			}
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("remove service file: %w", err)
			}
			fmt.Printf("Service uninstalled: %s\n", path)
			return nil
		},
	}
}

func servicePath(goos, home string) (string, error) {
	switch goos {
	case "darwin":
		return filepath.Join(home, "Library", "LaunchAgents", launchdLabel+".plist"), nil
	case "linux":
		return filepath.Join(home, ".config", "systemd", "user", serviceName+".service"), nil
	default:
		return "", fmt.Errorf("unsupported OS: %s (supported: darwin, linux)", goos)
	}
}

// renderService builds the service definition for goos. envPath, when set,
// is passed through so the service sees the same .env file.
func renderService(goos, home, execPath, cfgPath, envPath string) (*serviceFile, error) {
	path, err := servicePath(goos, home)
	if err != nil {
		return nil, err
	}

	args := []string{"run", "--config", cfgPath}
	if envPath != "" {
		args = append(args, "--env-file", envPath)
	}

	switch goos {
	case "darwin":
		var argXML strings.Builder
		for _, a := range append([]string{execPath}, args...) {
			fmt.Fprintf(&argXML, "        <string>%s</string>\n", a)
		}
		r := strings.NewReplacer(
			"{{LABEL}}", launchdLabel,
			"{{ARGS}}", strings.TrimRight(argXML.String(), "\n"),
			"{{LOG}}", filepath.Join(home, ".digestbot", "logs", "digestbot.log"),
			"{{ERR_LOG}}", filepath.Join(home, ".digestbot", "logs", "digestbot-error.log"),
		)
		return &serviceFile{
			Path:    path,
			Content: r.Replace(launchdTemplate),
			Hints: []string{
				"To start: launchctl load " + path,
				"To stop:  launchctl unload " + path,
			},
		}, nil
	default:
		r := strings.NewReplacer(
			"{{EXEC}}", execPath+" "+strings.Join(args, " "),
		)
		return &serviceFile{
			Path:    path,
			Content: r.Replace(systemdTemplate),
			Hints: []string{
				"To enable: systemctl --user enable --now " + serviceName,
				"Logs:      journalctl --user -u " + serviceName,
			},
		}, nil
	}
}

const launchdTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{LABEL}}</string>
    <key>ProgramArguments</key>
    <array>
{{ARGS}}
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <true/>
    <key>StandardOutPath</key>
    <string>{{LOG}}</string>
    <key>StandardErrorPath</key>
    <string>{{ERR_LOG}}</string>
</dict>
</plist>`

const systemdTemplate = `[Unit]
Description=digestbot daily chat digest
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
ExecStart={{EXEC}}
Restart=on-failure
RestartSec=5
KillSignal=SIGTERM
TimeoutStopSec=15

[Install]
WantedBy=default.target`
