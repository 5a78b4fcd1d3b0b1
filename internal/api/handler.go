package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/0xPuncker/evm-indexer/internal/chain"
	"github.com/0xPuncker/evm-indexer/internal/config"
	"github.com/0xPuncker/evm-indexer/internal/cron"
	"github.com/0xPuncker/evm-indexer/internal/notifications"
	"github.com/0xPuncker/evm-indexer/pkg/abis"
	indexer "github.com/0xPuncker/evm-indexer/pkg/config"
	"github.com/0xPuncker/evm-indexer/pkg/types"
	"github.com/0xPuncker/evm-indexer/pkg/utils"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	monitor   *chain.Monitor
	notifier  *notifications.NotificationService
	logger    *logrus.Logger
	config    *config.Config
	Scheduler *cron.Scheduler
	started   time.Time
	router    *mux.Router
}

type ChainView struct {
	Name      string             `json:"name"`
	ID        uint64             `json:"id"`
	RPC       string             `json:"rpc"`
	Contracts []string           `json:"contracts"`
	Status    *types.ChainStatus `json:"status,omitempty"`
}

type ContractView struct {
	Name       string        `json:"name"`
	Chain      string        `json:"chain"`
	ABI        string        `json:"abi"`
	Address    string        `json:"address"`
	StartBlock uint64        `json:"startBlock"`
	Events     []abis.Event  `json:"events,omitempty"`
	Methods    []abis.Method `json:"methods,omitempty"`
}

// NewHandler wires the scheduler tasks and loads the configured jobs.
// notifier may be nil.
func NewHandler(monitor *chain.Monitor, notifier *notifications.NotificationService, logger *logrus.Logger, cfg *config.Config) (*Handler, error) {
	scheduler := cron.NewScheduler(logger, cfg.Jobs)

	var alerter cron.ContractAlerter
	if notifier.Enabled() {
		scheduler.SetNotifier(notifier)
		alerter = notifier
	}

	probeChains := cron.NewProbeChainsJob(monitor, logger)
	scheduler.RegisterTask(cron.TaskProbeChains, probeChains.Run)

	checker := cron.NewContractChecker(monitor, alerter, logger)
	scheduler.RegisterTask(cron.TaskCheckContracts, checker.Run)

	if err := scheduler.LoadPredefinedJobs(cfg.Jobs.Predefined); err != nil {
		return nil, fmt.Errorf("failed to load predefined jobs: %w", err)
	}

	h := &Handler{
		monitor:   monitor,
		notifier:  notifier,
		logger:    logger,
		config:    cfg,
		Scheduler: scheduler,
		started:   time.Now(),
	}
	h.router = h.newRouter()
	return h, nil
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"uptime": utils.FormatDuration(time.Since(h.started)),
	})
}

func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.monitor.Config().Redacted())
}

func (h *Handler) chainView(c types.Chain) ChainView {
	cfg := h.monitor.Config()

	view := ChainView{
		Name:      c.Name,
		ID:        c.ID,
		RPC:       indexer.RedactURL(c.RPC),
		Contracts: []string{},
	}
	for _, contract := range cfg.ContractsForChain(c.Name) {
		view.Contracts = append(view.Contracts, contract.Name)
	}
	if status, ok := h.monitor.Status(c.Name); ok {
		view.Status = status
	}
	return view
}

func (h *Handler) ListChains(w http.ResponseWriter, r *http.Request) {
	cfg := h.monitor.Config()

	chains := make([]ChainView, 0, len(cfg.ChainNames()))
	for _, name := range cfg.ChainNames() {
		c, _ := cfg.Chain(name)
		chains = append(chains, h.chainView(c))
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"chains": chains,
		"count":  len(chains),
	})
}

func (h *Handler) GetChain(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["chainName"]

	c, ok := h.monitor.Config().Chain(name)
	if !ok {
		h.handleError(w, fmt.Errorf("%w: %s", chain.ErrUnknownChain, name), http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, h.chainView(c))
}

// GetChainStatus probes the chain, or with ?cached=true returns the last
// probe result.
func (h *Handler) GetChainStatus(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["chainName"]

	if r.URL.Query().Get("cached") == "true" {
		if _, ok := h.monitor.Config().Chain(name); !ok {
			h.handleError(w, fmt.Errorf("%w: %s", chain.ErrUnknownChain, name), http.StatusNotFound)
			return
		}
		status, ok := h.monitor.Status(name)
		if !ok {
			h.handleError(w, fmt.Errorf("no cached status for %s", name), http.StatusNotFound)
			return
		}
		h.writeJSON(w, http.StatusOK, status)
		return
	}

	status, err := h.monitor.ProbeChain(r.Context(), name)
	if err != nil {
		h.handleError(w, err, statusFor(err))
		return
	}
	h.writeJSON(w, http.StatusOK, status)
}

func contractView(c types.Contract, detailed bool) ContractView {
	view := ContractView{
		Name:       c.Name,
		Chain:      c.Chain,
		ABI:        c.ABIName(),
		Address:    c.Address,
		StartBlock: c.StartBlock,
	}
	if detailed && c.ABI != nil {
		view.Events = c.ABI.Events()
		view.Methods = c.ABI.Methods()
	}
	return view
}

func (h *Handler) ListContracts(w http.ResponseWriter, r *http.Request) {
	cfg := h.monitor.Config()

	contracts := make([]ContractView, 0, len(cfg.ContractNames()))
	for _, name := range cfg.ContractNames() {
		c, _ := cfg.Contract(name)
		contracts = append(contracts, contractView(c, false))
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"contracts": contracts,
		"count":     len(contracts),
	})
}

func (h *Handler) contract(w http.ResponseWriter, r *http.Request) (types.Contract, bool) {
	name := mux.Vars(r)["contractName"]

	c, ok := h.monitor.Config().Contract(name)
	if !ok {
		h.handleError(w, fmt.Errorf("%w: %s", chain.ErrUnknownContract, name), http.StatusNotFound)
	}
	return c, ok
}

func (h *Handler) GetContract(w http.ResponseWriter, r *http.Request) {
	c, ok := h.contract(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, contractView(c, true))
}

func (h *Handler) GetContractStatus(w http.ResponseWriter, r *http.Request) {
	c, ok := h.contract(w, r)
	if !ok {
		return
	}

	status, err := h.monitor.CheckContract(r.Context(), c.Name)
	if err != nil {
		h.handleError(w, err, statusFor(err))
		return
	}
	h.writeJSON(w, http.StatusOK, status)
}

func (h *Handler) GetContractABI(w http.ResponseWriter, r *http.Request) {
	c, ok := h.contract(w, r)
	if !ok {
		return
	}
	if c.ABI == nil {
		h.handleError(w, fmt.Errorf("contract %s has no abi", c.Name), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(c.ABI.Raw)
}

func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := h.Scheduler.ListJobs()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":    jobs,
		"count":   len(jobs),
		"running": h.Scheduler.IsRunning(),
	})
}

func (h *Handler) GetJobStatus(w http.ResponseWriter, r *http.Request) {
	jobName := mux.Vars(r)["name"]

	job, next, err := h.Scheduler.GetJob(jobName)
	if err != nil {
		h.handleError(w, err, http.StatusNotFound)
		return
	}

	response := map[string]interface{}{
		"name":        job.Name,
		"schedule":    job.Schedule,
		"task":        job.TaskName,
		"enabled":     job.Enabled,
		"description": job.Description,
	}
	if !next.IsZero() {
		response["next_run"] = next.Format(time.RFC3339)
	}
	h.writeJSON(w, http.StatusOK, response)
}

func (h *Handler) StartScheduler(w http.ResponseWriter, r *http.Request) {
	if err := h.Scheduler.Start(); err != nil {
		h.handleError(w, err, http.StatusConflict)
		return
	}

	if err := h.notifier.SendAPINotification(r.URL.Path, "success", "scheduler started"); err != nil {
		h.logger.Warnf("Failed to send API notification: %v", err)
	}
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status": "scheduler started successfully",
	})
}

func (h *Handler) StopScheduler(w http.ResponseWriter, r *http.Request) {
	h.Scheduler.Stop()

	if err := h.notifier.SendAPINotification(r.URL.Path, "success", "scheduler stopped"); err != nil {
		h.logger.Warnf("Failed to send API notification: %v", err)
	}
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status": "scheduler stopped successfully",
	})
}

func statusFor(err error) int {
	if errors.Is(err, chain.ErrUnknownChain) || errors.Is(err, chain.ErrUnknownContract) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) handleError(w http.ResponseWriter, err error, code int) {
	if code >= http.StatusInternalServerError {
		h.logger.Error(err)
	} else {
		h.logger.Debug(err)
	}
	h.writeJSON(w, code, map[string]string{
		"error": err.Error(),
	})
}

// Router returns the API routes behind the logging, CORS and metrics
// middleware.
// Router returns the router built by NewHandler.
func (h *Handler) Router() *mux.Router {
	return h.router
}

func (h *Handler) newRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(loggingMiddleware(h.logger))
	router.Use(corsMiddleware)
	router.Use(metricsMiddleware)
	SetupRoutes(router, h)
	return router
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}
