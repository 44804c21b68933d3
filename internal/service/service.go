// Package service installs `scribe bot` as a per-user launchd agent so
// digests keep firing after the terminal closes. macOS only.
package service

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/joho/godotenv"

	"github.com/chris/scribe/config"
)

const Label = "com.scribe.bot"

// Paths is where the agent's files live.
type Paths struct {
	Binary    string
	Plist     string
	WorkDir   string
	StdoutLog string
	StderrLog string
}

// DefaultPaths resolves the per-user locations.
func DefaultPaths() Paths {
	home, _ := os.UserHomeDir()
	logs := filepath.Join(home, "Library", "Logs")
	return Paths{
		Binary:    "/usr/local/bin/scribe",
		Plist:     filepath.Join(home, "Library", "LaunchAgents", Label+".plist"),
		WorkDir:   workDir(config.ConfigFile()),
		StdoutLog: filepath.Join(logs, "scribe-bot.log"),
		StderrLog: filepath.Join(logs, "scribe-bot.err.log"),
	}
}

// Install copies the running binary, writes the plist and loads it.
func Install(p Paths) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolving executable path: %w", err)
	}
	if exe, err = filepath.EvalSymlinks(exe); err != nil {
		return fmt.Errorf("resolving symlinks: %w", err)
	}
	if err := copyFile(exe, p.Binary, 0o755); err != nil {
		return err
	}

	if err := seedConfig(".env", config.ConfigFile()); err != nil {
		return err
	}

	plist, err := RenderPlist(p)
	if err != nil {
		return fmt.Errorf("generating plist: %w", err)
	}
	if _, err := os.Stat(p.Plist); err == nil {
		_ = launchctl("unload", p.Plist)
	}
	if err := os.MkdirAll(filepath.Dir(p.Plist), 0o755); err != nil {
		return fmt.Errorf("creating LaunchAgents dir: %w", err)
	}
	if err := os.WriteFile(p.Plist, []byte(plist), 0o644); err != nil {
		return fmt.Errorf("writing plist: %w", err)
	}
	if err := launchctl("load", p.Plist); err != nil {
		return fmt.Errorf("loading plist: %w", err)
	}
	return nil
}

// Uninstall unloads and removes the plist and the installed binary.
func Uninstall(p Paths) error {
	if _, err := os.Stat(p.Plist); err == nil {
		if err := launchctl("unload", p.Plist); err != nil {
			fmt.Fprintf(os.Stderr, "warning: unload failed: %v\n", err)
		}
		if err := os.Remove(p.Plist); err != nil {
			return fmt.Errorf("removing plist: %w", err)
		}
	}
	if err := os.Remove(p.Binary); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing binary: %w", err)
	}
	return nil
}

func Start() error { return launchctl("start", Label) }

func Stop() error { return launchctl("stop", Label) }

// Status prints launchctl's view of the agent.
func Status() error {
	cmd := exec.Command("launchctl", "list", Label)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		fmt.Println("service is not loaded")
	}
	return nil
}

func Logs(p Paths) error {
	cmd := exec.Command("tail", "-f", p.StdoutLog, p.StderrLog)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// workDir is the current directory when DATABASE_PATH in the user config is
// relative, so the agent opens the same database as the CLI. Otherwise ~/.scribe.
func workDir(configFile string) string {
	vars, _ := godotenv.Read(configFile)
	if dbPath, ok := vars["DATABASE_PATH"]; ok && !filepath.IsAbs(dbPath) {
		if wd, err := os.Getwd(); err == nil {
			return wd
		}
	}
	return filepath.Dir(configFile)
}

// seedConfig copies envFile to configFile unless configFile already exists.
func seedConfig(envFile, configFile string) error {
	if _, err := os.Stat(configFile); err == nil {
		return nil
	}
	data, err := os.ReadFile(envFile)
	if err != nil {
		return nil // nothing to seed from
	}
	if _, err := godotenv.Unmarshal(string(data)); err != nil {
		return fmt.Errorf("parsing %s: %w", envFile, err)
	}
	if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(configFile, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func copyFile(src, dst string, mode os.FileMode) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("reading binary: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dst), err)
	}
	if err := os.WriteFile(dst, data, mode); err != nil {
		return fmt.Errorf("copying binary to %s: %w", dst, err)
	}
	return nil
}

func launchctl(args ...string) error {
	cmd := exec.Command("launchctl", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("launchctl %s: %s", strings.Join(args, " "), strings.TrimSpace(stderr.String()))
	}
	return nil
}

var plistTemplate = template.Must(template.New("plist").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>{{.Label}}</string>
	<key>ProgramArguments</key>
	<array>
		<string>{{.Binary}}</string>
		<string>bot</string>
	</array>
	<key>WorkingDirectory</key>
	<string>{{.WorkDir}}</string>
	<key>RunAtLoad</key>
	<true/>
	<key>KeepAlive</key>
	<true/>
	<key>StandardOutPath</key>
	<string>{{.StdoutLog}}</string>
	<key>StandardErrorPath</key>
	<string>{{.StderrLog}}</string>
</dict>
</plist>
`))

// RenderPlist builds the launchd property list that runs `scribe bot`.
func RenderPlist(p Paths) (string, error) {
	var buf bytes.Buffer
	err := plistTemplate.Execute(&buf, struct {
		Paths
		Label string
	}{p, Label})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
