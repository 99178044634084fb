package config

import "time"

type AppConfig struct {
	Port                 int
	Endpoint             string
	WatchDir             string
	WatchSettle          time.Duration
	ProviderBaseURL      string
	ProviderPollInterval time.Duration
	Workers              int
	TileSize             int
	Bands                []string
	Indices              []string
	Debug                bool
	DebugAcqRate         float64
	UIRate               time.Duration
	RawLogEnabled        bool
	RawLogDir            string
	OutputDir            string
	IngestLogEvery       int
	IngestFallback       bool
}
