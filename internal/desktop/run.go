package desktop

import (
	"embed"
	"log/slog"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"jarvis/internal/config"
)

//go:embed all:frontend/dist
var assets embed.FS

// Run starts the desktop window and blocks until it is closed.
func Run(cfg config.Config, logger *slog.Logger) error {
	app := NewApp(cfg, logger)
	return wails.Run(&options.App{
		Title:     "J.A.R.V.I.S.",
		Width:     960,
		Height:    720,
		MinWidth:  640,
		MinHeight: 480,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 2, G: 6, B: 23, A: 1},
		OnStartup:        app.startup,
		OnShutdown:       app.shutdown,
		Bind:             []interface{}{app},
	})
}
