// Package server exposes an environment over HTTP so that agents can drive
// it remotely.
package server

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/zeu5/evo-rl-tuning/evoenv"
	"github.com/zeu5/evo-rl-tuning/logging"
	"github.com/zeu5/evo-rl-tuning/types"
)

type ResetRequest struct {
	Seed *uint64 `json:"seed"`
}

type ResetResponse struct {
	State int        `json:"state"`
	Info  types.Info `json:"info"`
}

type StepRequest struct {
	Action *int `json:"action"`
}

type SpacesResponse struct {
	ActionSpace      int    `json:"action_space"`
	ObservationSpace int    `json:"observation_space"`
	ActionShape      [2]int `json:"action_shape"`
	ObservationShape [2]int `json:"observation_shape"`
	MaxSteps         int    `json:"max_steps"`
}

type StateResponse struct {
	Phase       string  `json:"phase"`
	Step        int     `json:"step"`
	MaxSteps    int     `json:"max_steps"`
	SuccessBin  int     `json:"success_bin"`
	DistanceBin int     `json:"distance_bin"`
	BestQuality float64 `json:"best_quality"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// Server serializes the requests to a single environment
type Server struct {
	Addr   string
	env    *evoenv.Environment
	lock   *sync.Mutex
	logger log.Logger
	router *gin.Engine
	server *http.Server
}

func New(addr string, env *evoenv.Environment, logger log.Logger) *Server {
	s := &Server{
		Addr:   addr,
		env:    env,
		lock:   new(sync.Mutex),
		logger: logging.OrNop(logger),
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/spaces", s.handleSpaces)
	r.GET("/state", s.handleState)
	r.POST("/reset", s.handleReset)
	r.POST("/step", s.handleStep)
	s.router = r
	s.server = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	return s
}

// Handler is the router serving the environment
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until the context is cancelled
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		level.Info(s.logger).Log("msg", "serving environment", "addr", s.Addr)
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleSpaces(c *gin.Context) {
	s.lock.Lock()
	a, o := s.env.ActionShape(), s.env.ObservationShape()
	resp := SpacesResponse{
		ActionSpace:      s.env.ActionSpace().N,
		ObservationSpace: s.env.ObservationSpace().N,
		ActionShape:      [2]int{a.Rows, a.Cols},
		ObservationShape: [2]int{o.Rows, o.Cols},
		MaxSteps:         s.env.MaxSteps(),
	}
	s.lock.Unlock()
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleState(c *gin.Context) {
	s.lock.Lock()
	successBin, distanceBin := s.env.Bins()
	resp := StateResponse{
		Phase:       s.env.Phase().String(),
		Step:        s.env.StepCount(),
		MaxSteps:    s.env.MaxSteps(),
		SuccessBin:  successBin,
		DistanceBin: distanceBin,
		BestQuality: s.env.BestQuality(),
	}
	s.lock.Unlock()
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleReset(c *gin.Context) {
	req := ResetRequest{}
	// an empty body resets without a seed
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "failed to unmarshal request"})
		return
	}

	s.lock.Lock()
	state, info, err := s.env.Reset(req.Seed, nil)
	s.lock.Unlock()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ResetResponse{State: state, Info: info})
}

func (s *Server) handleStep(c *gin.Context) {
	req := StepRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "failed to unmarshal request"})
		return
	}
	if req.Action == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing action"})
		return
	}

	s.lock.Lock()
	result, err := s.env.Step(*req.Action)
	s.lock.Unlock()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) fail(c *gin.Context, err error) {
	code := StatusCode(err)
	if code == http.StatusInternalServerError {
		level.Error(s.logger).Log("msg", "request failed", "path", c.Request.URL.Path, "err", err)
	}
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// StatusCode maps environment errors to HTTP status codes
func StatusCode(err error) int {
	switch {
	case errors.Is(err, evoenv.ErrInvalidAction):
		return http.StatusBadRequest
	case errors.Is(err, evoenv.ErrNotReady):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
