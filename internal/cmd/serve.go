package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/AdamKhaddaj/ScribbleRendering/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the images of a generated tonal art map",
	Long: `Serve canvases and packed images under /tam/. With --archive they are read
from an archive database, otherwise from the map folder.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Listen address (host:port)")
	serveCmd.Flags().String("map-dir", "", "Map folder to serve (defaults to --output-dir)")
	serveCmd.Flags().String("archive", "", "Archive database to serve instead of a folder")
	serveCmd.Flags().String("cache-control", "no-store", "Cache-Control header for served images")

	mustBind := func(key string, name string) {
		if err := viper.BindPFlag(key, serveCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}

	mustBind("serve.addr", "addr")
	mustBind("serve.map_dir", "map-dir")
	mustBind("serve.archive", "archive")
	mustBind("serve.cache_control", "cache-control")
}

func runServe(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	addr := viper.GetString("serve.addr")
	mapDir := viper.GetString("serve.map_dir")
	if mapDir == "" {
		mapDir = viper.GetString("output-dir")
	}
	archivePath := viper.GetString("serve.archive")
	cacheControl := viper.GetString("serve.cache_control")

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	source := mapDir
	if archivePath != "" {
		h, err := server.NewArchiveHandler(server.ArchiveConfig{
			ArchivePath:  archivePath,
			CacheControl: cacheControl,
		}, logger)
		if err != nil {
			return err
		}
		defer h.Close()
		mux.Handle(server.ImagePrefix, withCORS(h.Handler()))
		source = archivePath
	} else {
		fs := http.FileServer(http.Dir(mapDir))
		mux.Handle(server.ImagePrefix, withCORS(http.StripPrefix(server.ImagePrefix, fs)))
	}

	logger.Info("Map server listening",
		"addr", addr,
		"source", source,
	)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	return srv.ListenAndServe()
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
