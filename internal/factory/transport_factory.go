package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/vams/mailrisk/internal/adapters/httpserver"
	"github.com/vams/mailrisk/internal/adapters/smtpserver"
	"github.com/vams/mailrisk/internal/config"
	"github.com/vams/mailrisk/internal/core"
	"github.com/vams/mailrisk/internal/parser"
	"github.com/vams/mailrisk/internal/ports"
)

// TransportFactory creates analysis transports based on configuration
type TransportFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *core.AnalysisService
	parser  *parser.Parser
}

// NewTransportFactory creates a new transport factory
func NewTransportFactory(cfg *config.Config, logger *zap.Logger, service *core.AnalysisService, p *parser.Parser) *TransportFactory {
	return &TransportFactory{
		cfg:     cfg,
		logger:  logger,
		service: service,
		parser:  p,
	}
}

// CreateTransport creates a transport based on the configuration
func (f *TransportFactory) CreateTransport() (ports.Transport, error) {
	serverCfg := f.cfg.GetServer()

	switch serverCfg.Transport {
	case "http":
		return httpserver.NewServer(
			serverCfg.ListenAddress,
			f.service,
			f.parser,
			f.logger,
		), nil
	case "smtp":
		return smtpserver.NewFilter(
			f.service,
			f.parser,
			f.logger,
			serverCfg.SMTPListenAddress,
			serverCfg.UpstreamAddress,
			serverCfg.UpstreamPort,
			serverCfg.BlockOnRisk,
		), nil
	default:
		return nil, fmt.Errorf("unsupported transport type: %s", serverCfg.Transport)
	}
}
