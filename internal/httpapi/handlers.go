package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/quorum/internal/engine"
	"github.com/roach88/quorum/internal/ir"
	"github.com/roach88/quorum/internal/ledger"
)

type callerKey struct{}

// requireCaller parses the caller header into the request context.
func requireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(CallerHeader)
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "MISSING_CALLER", CallerHeader+" header is required")
			return
		}
		caller, err := ir.ParseAddress(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "INVALID_CALLER", err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey{}, caller)))
	})
}

func callerFrom(ctx context.Context) ir.Address {
	caller, _ := ctx.Value(callerKey{}).(ir.Address)
	return caller
}

// addressParam parses a hex address path parameter. Writes a 400 and
// reports false when it is malformed.
func addressParam(w http.ResponseWriter, r *http.Request, name string) (ir.Address, bool) {
	addr, err := ir.ParseAddress(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ADDRESS", name+": "+err.Error())
		return ir.Address{}, false
	}
	return addr, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return false
	}
	return true
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]errorBody{"error": {Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeFailure writes a rejection with its mapped status, or a 500.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var lerr *ledger.Error
	if errors.As(err, &lerr) {
		writeError(w, StatusFor(lerr.Code), string(lerr.Code), lerr.Message)
		return
	}
	if errors.Is(err, engine.ErrStopped) {
		writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "sequencer is stopped")
		return
	}
	s.logger.Error("request failed",
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
		"error", err,
	)
	writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
}

// receiptBody is the response to a committed transition.
type receiptBody struct {
	Seq       int64      `json:"seq"`
	RequestID string     `json:"request_id"`
	ID        string     `json:"id"`
	Op        ir.Op      `json:"op"`
	At        int64      `json:"at"`
	Address   ir.Address `json:"address"`
}

// submit runs ins as the request's caller and writes the outcome.
func (s *Server) submit(w http.ResponseWriter, r *http.Request, ins ledger.Instruction, status int) {
	receipt, err := s.submitter.Submit(r.Context(), engine.Request{
		Caller:      callerFrom(r.Context()),
		Instruction: ins,
		RequestID:   middleware.GetReqID(r.Context()),
	})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, status, receiptBody{
		Seq:       receipt.Seq,
		RequestID: receipt.RequestID,
		ID:        receipt.TransitionID,
		Op:        receipt.Op,
		At:        receipt.At,
		Address:   receipt.Result,
	})
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type initializeCommunityRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) initializeCommunity(w http.ResponseWriter, r *http.Request) {
	var req initializeCommunityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.submit(w, r, ledger.InitializeCommunity{Name: req.Name, Description: req.Description}, http.StatusCreated)
}

func (s *Server) joinCommunity(w http.ResponseWriter, r *http.Request) {
	community, ok := addressParam(w, r, "community")
	if !ok {
		return
	}
	s.submit(w, r, ledger.JoinCommunity{Community: community}, http.StatusCreated)
}

func (s *Server) approveMembership(w http.ResponseWriter, r *http.Request) {
	community, ok := addressParam(w, r, "community")
	if !ok {
		return
	}
	member, ok := addressParam(w, r, "member")
	if !ok {
		return
	}
	s.submit(w, r, ledger.ApproveMembership{Community: community, Member: member}, http.StatusOK)
}

type createPollRequest struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	EndTime  int64    `json:"end_time"`
}

func (s *Server) createPoll(w http.ResponseWriter, r *http.Request) {
	community, ok := addressParam(w, r, "community")
	if !ok {
		return
	}
	var req createPollRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.submit(w, r, ledger.CreatePoll{
		Community: community,
		Question:  req.Question,
		Options:   req.Options,
		EndTime:   req.EndTime,
	}, http.StatusCreated)
}

type castVoteRequest struct {
	OptionIndex *int `json:"option_index"`
}

func (s *Server) castVote(w http.ResponseWriter, r *http.Request) {
	poll, ok := addressParam(w, r, "poll")
	if !ok {
		return
	}
	var req castVoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.OptionIndex == nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "option_index is required")
		return
	}
	s.submit(w, r, ledger.CastVote{Poll: poll, OptionIndex: *req.OptionIndex}, http.StatusCreated)
}

func (s *Server) closePoll(w http.ResponseWriter, r *http.Request) {
	poll, ok := addressParam(w, r, "poll")
	if !ok {
		return
	}
	s.submit(w, r, ledger.ClosePoll{Poll: poll}, http.StatusOK)
}

func (s *Server) getCommunity(w http.ResponseWriter, r *http.Request) {
	addr, ok := addressParam(w, r, "community")
	if !ok {
		return
	}
	c, err := s.reader.Community(r.Context(), addr)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) getMembership(w http.ResponseWriter, r *http.Request) {
	community, ok := addressParam(w, r, "community")
	if !ok {
		return
	}
	member, ok := addressParam(w, r, "member")
	if !ok {
		return
	}
	m, err := s.reader.Membership(r.Context(), ir.MembershipAddress(community, member))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) getPoll(w http.ResponseWriter, r *http.Request) {
	addr, ok := addressParam(w, r, "poll")
	if !ok {
		return
	}
	p, err := s.reader.Poll(r.Context(), addr)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) getVote(w http.ResponseWriter, r *http.Request) {
	poll, ok := addressParam(w, r, "poll")
	if !ok {
		return
	}
	voter, ok := addressParam(w, r, "voter")
	if !ok {
		return
	}
	v, err := s.reader.Vote(r.Context(), ir.VoteAddress(poll, voter))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
