package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/MeKo-Tech/redliningmap/internal/geojson"
	"github.com/MeKo-Tech/redliningmap/internal/metrics"
	"github.com/MeKo-Tech/redliningmap/internal/server"
	"github.com/MeKo-Tech/redliningmap/internal/storage"
	"github.com/MeKo-Tech/redliningmap/internal/types"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the redlining API (area data, keyword search and pins)",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "127.0.0.1:3232", "Listen address (host:port)")
	serveCmd.Flags().String("data-file", filepath.Join("data", "fullDownload.json"), "GeoJSON file with the redlining dataset")
	serveCmd.Flags().Int("cache-size", server.DefaultCacheSize, "Number of bounding box responses kept in memory")

	serveCmd.Flags().String("storage-driver", "memory", "Pin storage driver (memory, sqlite, firestore)")
	serveCmd.Flags().String("sqlite-path", "pins.db", "SQLite database file for the sqlite driver")
	serveCmd.Flags().String("firestore-project", "", "Google Cloud project for the firestore driver")
	serveCmd.Flags().String("firestore-credentials", "", "Service account key file for the firestore driver")

	serveCmd.Flags().StringArray("warm-bbox", nil, "Bounding box to pre-cache at start-up, minLat,minLng,maxLat,maxLng (repeatable)")
	serveCmd.Flags().Int("warm-workers", runtime.NumCPU(), "Parallel workers for cache warm-up")

	mustBind := func(key string, name string) {
		if err := viper.BindPFlag(key, serveCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}

	mustBind("serve.addr", "addr")
	mustBind("serve.data_file", "data-file")
	mustBind("serve.cache_size", "cache-size")

	mustBind("storage.driver", "storage-driver")
	mustBind("storage.sqlite_path", "sqlite-path")
	mustBind("storage.firestore_project", "firestore-project")
	mustBind("storage.firestore_credentials", "firestore-credentials")

	mustBind("serve.warm_bboxes", "warm-bbox")
	mustBind("serve.warm_workers", "warm-workers")
}

func runServe(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	addr := viper.GetString("serve.addr")
	dataFile := viper.GetString("serve.data_file")
	cacheSize := viper.GetInt("serve.cache_size")

	warmBBoxes, err := parseBBoxes(viper.GetStringSlice("serve.warm_bboxes"))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close pin store", "error", err)
		}
	}()

	srv := server.New(server.Config{
		Dataset:   geojson.LoadDataset(dataFile, logger),
		Store:     store,
		Metrics:   metrics.New(),
		CacheSize: cacheSize,
		Logger:    logger,
	})

	if len(warmBBoxes) > 0 {
		srv.WarmCache(ctx, warmBBoxes, viper.GetInt("serve.warm_workers"))
	}

	httpSrv := &http.Server{Addr: addr, Handler: srv.Handler(), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-sigCh
		logger.Info("Received interrupt signal, shutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shut down server", "error", err)
		}
	}()

	logger.Info("redlining server listening",
		"addr", addr,
		"data_file", dataFile,
		"cache_size", cacheSize,
		"storage_driver", viper.GetString("storage.driver"),
	)

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// openStore creates the pin store selected by storage.driver.
func openStore(ctx context.Context) (storage.PinStore, error) {
	switch driver := viper.GetString("storage.driver"); driver {
	case "", "memory":
		return storage.NewMemoryStore(), nil
	case "sqlite":
		return storage.NewSQLiteStore(viper.GetString("storage.sqlite_path"))
	case "firestore":
		return storage.NewFirestoreStore(ctx, storage.FirestoreConfig{
			ProjectID:       viper.GetString("storage.firestore_project"),
			CredentialsFile: viper.GetString("storage.firestore_credentials"),
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", driver)
	}
}

func parseBBoxes(values []string) ([]types.BoundingBox, error) {
	bboxes := make([]types.BoundingBox, 0, len(values))
	for _, v := range values {
		b, err := types.ParseBBoxString(v)
		if err != nil {
			return nil, fmt.Errorf("invalid --warm-bbox: %w", err)
		}
		bboxes = append(bboxes, b)
	}
	return bboxes, nil
}
