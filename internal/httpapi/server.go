package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/quorum/internal/engine"
	"github.com/roach88/quorum/internal/ir"
	"github.com/roach88/quorum/internal/ledger"
)

// CallerHeader carries the hex identity of the caller.
const CallerHeader = "X-Quorum-Caller"

// Submitter is the part of the sequencer the handlers need.
type Submitter interface {
	Submit(ctx context.Context, req engine.Request) (engine.Receipt, error)
}

// Reader is the part of the ledger the GET handlers need.
type Reader interface {
	Community(ctx context.Context, addr ir.Address) (ir.Community, error)
	Membership(ctx context.Context, addr ir.Address) (ir.Membership, error)
	Poll(ctx context.Context, addr ir.Address) (ir.Poll, error)
	Vote(ctx context.Context, addr ir.Address) (ir.Vote, error)
}

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	submitter Submitter
	reader    Reader
	logger    *slog.Logger
}

// New creates a Server. A nil logger uses slog.Default().
func New(submitter Submitter, reader Reader, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{submitter: submitter, reader: reader, logger: logger}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", s.healthz)

		r.Route("/communities", func(r chi.Router) {
			r.With(requireCaller).Post("/", s.initializeCommunity)
			r.Route("/{community}", func(r chi.Router) {
				r.Get("/", s.getCommunity)
				r.With(requireCaller).Post("/join", s.joinCommunity)
				r.Get("/members/{member}", s.getMembership)
				r.With(requireCaller).Post("/members/{member}/approve", s.approveMembership)
				r.With(requireCaller).Post("/polls", s.createPoll)
			})
		})

		r.Route("/polls/{poll}", func(r chi.Router) {
			r.Get("/", s.getPoll)
			r.Get("/votes/{voter}", s.getVote)
			r.With(requireCaller).Post("/votes", s.castVote)
			r.With(requireCaller).Post("/close", s.closePoll)
		})
	})

	return r
}

// logRequests logs one line per request through slog.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// NewHTTPServer wraps the handler in an http.Server listening on addr.
func (s *Server) NewHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Serve runs srv until ctx is cancelled, then shuts it down within timeout.
func Serve(ctx context.Context, srv *http.Server, timeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// statusFor maps rejection codes to HTTP statuses.
var statusFor = map[ledger.Code]int{
	ledger.CodeUnauthorized:        http.StatusForbidden,
	ledger.CodeUnauthorizedToClose: http.StatusForbidden,
	ledger.CodeNotApprovedMember:   http.StatusForbidden,
	ledger.CodeMembershipMismatch:  http.StatusForbidden,
	ledger.CodeNotFound:            http.StatusNotFound,
	ledger.CodeAlreadyExists:       http.StatusConflict,
	ledger.CodeAlreadyVoted:        http.StatusConflict,
	ledger.CodeAlreadyApproved:     http.StatusConflict,
	ledger.CodePollNotActive:       http.StatusConflict,
	ledger.CodePollExpired:         http.StatusConflict,
	ledger.CodeInvalidOptionCount:  http.StatusUnprocessableEntity,
	ledger.CodeInvalidEndTime:      http.StatusUnprocessableEntity,
	ledger.CodeInvalidOptionIndex:  http.StatusUnprocessableEntity,
	ledger.CodeInvalidName:         http.StatusUnprocessableEntity,
	ledger.CodeDescriptionTooLong:  http.StatusUnprocessableEntity,
	ledger.CodeQuestionTooLong:     http.StatusUnprocessableEntity,
	ledger.CodeOptionTooLong:       http.StatusUnprocessableEntity,
	ledger.CodeInvalidArgs:         http.StatusUnprocessableEntity,
}

// StatusFor returns the HTTP status for a rejection code. Unknown codes
// map to 400.
func StatusFor(code ledger.Code) int {
	if status, ok := statusFor[code]; ok {
		return status
	}
	return http.StatusBadRequest
}
