package api

import (
	"net/http"

	"github.com/0xPuncker/evm-indexer/internal/metrics"
	"github.com/gorilla/mux"
)

func SetupRoutes(router *mux.Router, handler *Handler) {
	v1 := router.PathPrefix("/api/v1").Subrouter()

	v1.HandleFunc("/health", handler.HealthCheck).Methods(http.MethodGet)
	v1.HandleFunc("/config", handler.GetConfig).Methods(http.MethodGet)

	v1.HandleFunc("/chains", handler.ListChains).Methods(http.MethodGet)
	v1.HandleFunc("/chains/{chainName}", handler.GetChain).Methods(http.MethodGet)
	v1.HandleFunc("/chains/{chainName}/status", handler.GetChainStatus).Methods(http.MethodGet)

	v1.HandleFunc("/contracts", handler.ListContracts).Methods(http.MethodGet)
	v1.HandleFunc("/contracts/{contractName}", handler.GetContract).Methods(http.MethodGet)
	v1.HandleFunc("/contracts/{contractName}/status", handler.GetContractStatus).Methods(http.MethodGet)
	v1.HandleFunc("/contracts/{contractName}/abi", handler.GetContractABI).Methods(http.MethodGet)

	v1.HandleFunc("/jobs", handler.ListJobs).Methods(http.MethodGet)
	v1.HandleFunc("/jobs/{name}", handler.GetJobStatus).Methods(http.MethodGet)
	v1.HandleFunc("/scheduler/start", handler.StartScheduler).Methods(http.MethodPost)
	v1.HandleFunc("/scheduler/stop", handler.StopScheduler).Methods(http.MethodPost)

	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
}
