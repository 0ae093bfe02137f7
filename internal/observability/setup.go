package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

var (
	// Global logger instance
	Logger *zap.Logger

	gamesStartedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "games_started_total",
			Help: "Total number of games started",
		},
	)

	gamesFinishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "games_finished_total",
			Help: "Total number of games finished, by outcome",
		},
		[]string{"outcome"},
	)

	answersRecordedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "answers_recorded_total",
			Help: "Total number of decoy answers submitted",
		},
	)

	votesRecordedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "votes_recorded_total",
			Help: "Total number of poll votes recorded",
		},
	)
)

// Server exposes the prometheus endpoint as a lifecycle component.
type Server struct {
	addr string
	srv  *http.Server
}

func NewServer(addr string) *Server {
	return &Server{addr: addr}
}

func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	s.srv = &http.Server{Addr: s.addr, Handler: mux}

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("metrics server failed")
		}
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}

func Init(ctx context.Context) error {
	var err error
	Logger, err = zap.NewProduction()
	if err != nil {
		return err
	}

	prometheus.MustRegister(gamesStartedTotal)
	prometheus.MustRegister(gamesFinishedTotal)
	prometheus.MustRegister(answersRecordedTotal)
	prometheus.MustRegister(votesRecordedTotal)

	tp := trace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	return nil
}

func RecordGameStarted() {
	gamesStartedTotal.Inc()
}

// RecordGameFinished counts a terminal transition; outcome is one of
// scored, aborted or cancelled.
func RecordGameFinished(outcome string) {
	gamesFinishedTotal.WithLabelValues(outcome).Inc()
}

func RecordAnswer() {
	answersRecordedTotal.Inc()
}

func RecordVote() {
	votesRecordedTotal.Inc()
}
