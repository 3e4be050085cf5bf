package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AmalBilal1/covid19-anomaly-detection/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	var watchInput bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored runs over a JSON HTTP API",
		Long: `Start an HTTP server exposing the wave catalog and recorded runs.

When a data source is configured, POST /api/detect starts a new detection.
With --watch the server also re-runs detection whenever the CSV input
changes and notifies subscribers of /api/events.`,
		Example: `  # Default address (127.0.0.1:8765)
  mortwatch serve

  # Custom port, re-detect on CSV changes
  mortwatch serve --port 9000 --watch`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			catalog, err := cc.Cfg.Catalog()
			if err != nil {
				return err
			}

			scfg := server.Config{
				Store:   cc.Store,
				Catalog: catalog,
				Host:    cc.Cfg.Serve.Host,
				Port:    cc.Cfg.Serve.Port,
				Logger:  cc.Logger,
			}

			// Detection over HTTP is optional; a server without input
			// still serves history.
			if p, err := cc.Pipeline(); err == nil {
				scfg.Detector = p
			} else if watchInput {
				return err
			} else {
				cc.Logger.Debug("detection disabled", "reason", err)
			}

			if watchInput {
				if cc.Cfg.Source.CSV == "" {
					return fmt.Errorf("--watch requires a CSV source (source.csv)")
				}
				scfg.WatchFile = cc.Cfg.Source.CSV
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			cc.Renderer.Success(fmt.Sprintf("Serving on http://%s:%d", scfg.Host, scfg.Port))
			if scfg.WatchFile != "" {
				cc.Renderer.Muted("Watching " + scfg.WatchFile)
			}
			return server.New(scfg).Serve(ctx)
		},
	}

	cmd.Flags().String("host", "", "Address to listen on (default: 127.0.0.1)")
	cmd.Flags().Int("port", 0, "Port to listen on (default: 8765)")
	cmd.Flags().BoolVarP(&watchInput, "watch", "w", false, "Re-run detection when the CSV input changes")

	return cmd
}
