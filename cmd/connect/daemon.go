package connect

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const daemonDesc = `
Serve tunnels in the foreground. Every source with a persisted tunnel
descriptor is re-established, the health monitor reaps tunnels whose bastion
connection dies, and a small admin API exposes the registry state.
`

type daemonCmd struct {
	adminAddr string
	sources   []string
}

func (c *daemonCmd) run() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	ctx := context.Background()

	a.super.Restore(ctx)
	for _, id := range c.sources {
		if _, err := a.super.Enable(ctx, id); err != nil {
			log.Error().Str("source", id).Err(err).Msg("could not enable source")
		}
	}
	a.super.StartMonitor(ctx)

	srv := c.adminServer(a)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("admin server failed")
		}
	}()
	log.Info().Str("addr", c.adminAddr).Msg("admin API listening")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	log.Info().Str("signal", s.String()).Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
	a.super.Close()
	return nil
}

func (c *daemonCmd) adminServer(a *app) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/tunnels", func(gc *gin.Context) {
		gc.JSON(http.StatusOK, a.super.ListActive())
	})

	r.GET("/sources", func(gc *gin.Context) {
		var out []map[string]interface{}
		for _, src := range a.catalog.All() {
			out = append(out, map[string]interface{}{
				"id":      src.ID,
				"name":    src.Name,
				"cloud":   src.Cloud,
				"type":    src.Kind,
				"tunnel":  src.RequiresTunnel(),
				"enabled": a.super.IsActive(src.ID),
			})
		}
		gc.JSON(http.StatusOK, out)
	})

	r.GET("/sessions", func(gc *gin.Context) {
		if a.history == nil {
			gc.JSON(http.StatusServiceUnavailable, map[string]string{"message": "session history unavailable"})
			return
		}
		sessions, err := a.history.ActiveSessions()
		if err != nil {
			gc.JSON(http.StatusInternalServerError, map[string]string{"message": err.Error()})
			return
		}
		gc.JSON(http.StatusOK, sessions)
	})

	return &http.Server{Addr: c.adminAddr, Handler: r}
}

func newDaemonCmd() *cobra.Command {
	c := &daemonCmd{}
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "serve tunnels for all enabled sources",
		Long:  daemonDesc,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run()
		},
	}
	cmd.Flags().StringVarP(&c.adminAddr, "admin-addr", "a", "127.0.0.1:7117", "address for the admin API")
	cmd.Flags().StringSliceVarP(&c.sources, "source", "s", nil, "additionally enable these sources on startup")
	return cmd
}
