package main

import (
	"context"
	"flag"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON config file")
	debug := flag.Bool("debug", false, "enable development logging")
	headless := flag.Bool("headless", false, "run without the system tray")
	flag.Parse()

	log, err := newLogger(*debug)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	if err := run(*configPath, *headless, log); err != nil {
		log.Fatal("mudra failed", zap.Error(err))
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(configPath string, headless bool, log *zap.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(".env", filepath.Join(cfg.DataDir, ".env")); err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return errors.Wrap(err, "create data directory")
	}
	st, err := store.New(filepath.Join(cfg.DataDir, "mudra.db"))
	if err != nil {
		return err
	}
	defer st.Close()

	a, err := app.New(app.Config{Settings: cfg, Store: st}, log.Named("app"))
	if err != nil {
		return err
	}
	a.SetEnabled(true)
	if err := a.Start(); err != nil {
		a.Stop()
		return err
	}
	defer a.Stop()

	webDir := findWebDir(cfg.DataDir)
	if webDir != "" {
		log.Info("serving static files", zap.String("dir", webDir))
	}
	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		App:       a,
		Log:       log.Named("server"),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx, cfg.ListenAddr) }()

	if headless {
		select {
		case <-ctx.Done():
		case err := <-errCh:
			return err
		}
		return <-errCh
	}

	t := tray.New(a.IsEnabled())
	t.OnToggle(a.SetEnabled)
	t.OnSettings(func() {
		if err := openBrowser("http://" + browsable(cfg.ListenAddr)); err != nil {
			log.Warn("opening settings failed", zap.Error(err))
		}
	})
	t.OnQuit(stop)
	go func() {
		if err := <-errCh; err != nil {
			log.Error("http server stopped", zap.Error(err))
		}
		stop()
	}()
	t.Run(ctx, a)
	return nil
}

// browsable turns a listen address such as ":8080" into one a browser can open.
func browsable(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "127.0.0.1" + addr
	}
	return addr
}

func openBrowser(url string) error {
	name := "xdg-open"
	if runtime.GOOS == "darwin" {
		name = "open"
	}
	return exec.Command(name, url).Start()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and <data dir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	candidates := []string{"web", "../web", "../../web", filepath.Join(dataDir, "web")}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
