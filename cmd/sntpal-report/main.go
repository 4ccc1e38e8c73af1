package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AndrewLester/sntpal/internal/log"
	"github.com/AndrewLester/sntpal/internal/ntp"
	"github.com/AndrewLester/sntpal/internal/rpc"
	"github.com/AndrewLester/sntpal/internal/templates"
	"github.com/AndrewLester/sntpal/pkg/sntpal"
)

type SyncRequest struct {
	Orig string
}

type SyncResponse struct {
	Orig, Recv, Xmt string
}

type reportServer struct {
	logger *zap.Logger
	fetch  func() (rpc.Status, error)
}

func fetchFromDaemon(socket string) func() (rpc.Status, error) {
	return func() (rpc.Status, error) {
		client, err := rpc.Dial(socket)
		if err != nil {
			return rpc.Status{}, err
		}
		defer client.Close()

		return client.FetchStatus()
	}
}

func (s *reportServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /status.json", s.handleStatus)
	mux.HandleFunc("POST /sync", s.handleSync)
	return mux
}

func (s *reportServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{}

	status, err := s.fetch()
	if err != nil {
		s.logger.Warn("error fetching status", zap.Error(err))
		data["Error"] = err.Error()
	} else {
		data["Server"] = status.Server
		data["Status"] = status
	}

	// Set these headers to bump performance.now() precision to 5 microseconds
	headerMap := w.Header()
	headerMap.Add("Cross-Origin-Opener-Policy", "same-origin")
	headerMap.Add("Cross-Origin-Embedder-Policy", "require-corp")
	w.WriteHeader(http.StatusOK)

	if err = templates.TemplateExecutor.ExecuteTemplate(w, templates.Index, data); err != nil {
		s.logger.Error("error rendering page", zap.Error(err))
	}
}

func (s *reportServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.fetch()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status) //nolint:errcheck
}

func (s *reportServer) handleSync(w http.ResponseWriter, r *http.Request) {
	recv := strconv.FormatUint(uint64(ntp.GetSystemTime()), 10)

	var syncRequest SyncRequest
	err := json.NewDecoder(r.Body).Decode(&syncRequest)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	syncResponse := SyncResponse{
		Orig: syncRequest.Orig,
		Recv: recv,
	}

	w.Header().Set("Content-Type", "application/json")

	syncResponse.Xmt = strconv.FormatUint(uint64(ntp.GetSystemTime()), 10)
	json.NewEncoder(w).Encode(syncResponse) //nolint:errcheck
}

func main() {
	var listen, socket, level string

	cmd := &cobra.Command{
		Use:          "sntpal-report",
		Short:        "Serve the sntpal daemon status as a web page",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := log.New(log.Config{Level: level})
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			report := &reportServer{logger: logger, fetch: fetchFromDaemon(socket)}

			server := &http.Server{
				Addr:              listen,
				Handler:           report.routes(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			go func() {
				<-ctx.Done()

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()

				server.Shutdown(shutdownCtx) //nolint:errcheck
			}()

			logger.Info("listening", zap.String("addr", listen))

			if err = server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}

			return nil
		},
	}

	port := os.Getenv("REPORT_PORT")
	if port == "" {
		port = "8080"
	}

	cmd.Flags().StringVar(&listen, "listen", ":"+port, "address to serve on")
	cmd.Flags().StringVar(&socket, "socket", sntpal.DefaultSocketPath, "daemon RPC socket")
	cmd.Flags().StringVar(&level, "log-level", "info", "log level")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
